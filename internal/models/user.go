package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// User represents a storefront customer. Accounts may be provisioned via
// email+password, phone OTP, or Google sign-in; PasswordHash is empty for
// the latter two.
type User struct {
	BaseModel
	Email        string `gorm:"uniqueIndex" json:"email"`
	Phone        string `gorm:"index" json:"phone"`
	GoogleID     string `gorm:"index" json:"-"`
	AuthProvider string `json:"auth_provider"`
	PasswordHash string `json:"-"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	AvatarURL    string `json:"avatar_url"`
	IsVerified   bool   `json:"is_verified"`
	IsActive     bool   `gorm:"default:true" json:"is_active"`

	Addresses []UserAddress `json:"addresses,omitempty"`
	Orders    []Order       `json:"orders,omitempty"`
}

// AdminUser marks a user as having administrator access.
type AdminUser struct {
	BaseModel
	UserID      uuid.UUID       `gorm:"type:uuid;uniqueIndex" json:"user_id"`
	Role        string          `json:"role"`
	Permissions json.RawMessage `gorm:"type:jsonb" json:"permissions"`
}

// OTPCode is a one-time passcode sent to a phone number. Codes expire after
// ten minutes and are consumed (is_used set) on first successful verify.
type OTPCode struct {
	BaseModel
	Phone     string    `gorm:"index" json:"phone"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
	IsUsed    bool      `json:"is_used"`
}

// UserSession is a blacklist entry for a bearer token invalidated before its
// natural expiry (logout). TokenHash is the hex SHA-256 of the raw token.
type UserSession struct {
	BaseModel
	UserID    uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	TokenHash string    `gorm:"index" json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}
