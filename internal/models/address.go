package models

import "github.com/google/uuid"

type UserAddress struct {
	BaseModel
	UserID       uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	AddressType  string    `json:"address_type"` // shipping|billing
	IsDefault    bool      `json:"is_default"`
	FullName     string    `json:"full_name"`
	AddressLine1 string    `json:"address_line1"`
	AddressLine2 string    `json:"address_line2"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	PostalCode   string    `json:"postal_code"`
	Country      string    `json:"country"`
	Phone        string    `json:"phone"`
}
