package handlers

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/flexora/internal/config"
	"github.com/example/flexora/internal/middleware"
	"github.com/example/flexora/internal/models"
	"github.com/example/flexora/internal/utils"
)

const (
	otpTTL       = 10 * time.Minute
	blacklistTTL = 7 * 24 * time.Hour
)

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	db  *gorm.DB
	cfg *config.Config
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg}
}

type signupRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	FirstName string `json:"firstName" validate:"required,min=2"`
	LastName  string `json:"lastName" validate:"required,min=2"`
	Phone     string `json:"phone" validate:"omitempty,min=7"`
}

// Signup creates a new email+password account.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}

	var count int64
	query := h.db.Model(&models.User{}).Where("email = ?", req.Email)
	if req.Phone != "" {
		query = h.db.Model(&models.User{}).Where("email = ? OR phone = ?", req.Email, req.Phone)
	}
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fiber.NewError(fiber.StatusConflict, "user already exists with this email or phone")
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}

	user := models.User{
		Email:        req.Email,
		Phone:        req.Phone,
		AuthProvider: "email",
		PasswordHash: passwordHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		IsVerified:   false,
		IsActive:     true,
	}

	if err := h.db.Create(&user).Error; err != nil {
		return err
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, user.ID, h.cfg.TokenExpires)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"user":    userResponse(&user),
		"token":   token,
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates an existing email+password account.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
		}
		return err
	}

	if !user.IsActive {
		return fiber.NewError(fiber.StatusUnauthorized, "account is deactivated")
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, user.ID, h.cfg.TokenExpires)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    userResponse(&user),
		"token":   token,
	})
}

type sendOTPRequest struct {
	Phone string `json:"phone" validate:"required,min=7"`
}

// SendOTP creates a one-time passcode for phone verification. There is no
// SMS provider wired in; the code is written to the server log.
func (h *AuthHandler) SendOTP(c *fiber.Ctx) error {
	var req sendOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}

	code, err := utils.GenerateOTP()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate OTP")
	}

	otp := models.OTPCode{
		Phone:     req.Phone,
		Code:      code,
		ExpiresAt: time.Now().Add(otpTTL),
	}

	if err := h.db.Create(&otp).Error; err != nil {
		return err
	}

	log.Printf("[Auth] OTP for %s: %s", req.Phone, code)

	return c.JSON(fiber.Map{"success": true, "message": "OTP sent successfully"})
}

type verifyOTPRequest struct {
	Phone     string `json:"phone" validate:"required,min=7"`
	OTP       string `json:"otp" validate:"required,len=6,numeric"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// VerifyOTP consumes a passcode and logs the caller in, creating a
// phone-provisioned account on first use.
func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}

	var otp models.OTPCode
	err := h.db.Where("phone = ? AND code = ? AND expires_at > ? AND is_used = ?",
		req.Phone, req.OTP, time.Now(), false).
		Order("created_at desc").
		First(&otp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusBadRequest, "invalid or expired OTP")
		}
		return err
	}

	if err := h.db.Model(&models.OTPCode{}).Where("id = ?", otp.ID).
		Update("is_used", true).Error; err != nil {
		return err
	}

	var user models.User
	err = h.db.Where("phone = ?", req.Phone).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if req.FirstName == "" || req.LastName == "" || req.Email == "" {
			return fiber.NewError(fiber.StatusBadRequest, "first name, last name, and email are required for new users")
		}
		user = models.User{
			Email:        req.Email,
			Phone:        req.Phone,
			AuthProvider: "phone",
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			IsVerified:   true,
			IsActive:     true,
		}
		if err := h.db.Create(&user).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if !user.IsActive {
		return fiber.NewError(fiber.StatusUnauthorized, "account is deactivated")
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, user.ID, h.cfg.TokenExpires)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    userResponse(&user),
		"token":   token,
	})
}

type googleAuthRequest struct {
	GoogleID  string `json:"googleId" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	AvatarURL string `json:"avatarUrl"`
}

// Google handles Google sign-in, creating an account on first login and
// backfilling the Google id on accounts created by email.
func (h *AuthHandler) Google(c *fiber.Ctx) error {
	var req googleAuthRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}

	var user models.User
	err := h.db.Where("google_id = ? OR email = ?", req.GoogleID, req.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			Email:        req.Email,
			GoogleID:     req.GoogleID,
			AuthProvider: "google",
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			AvatarURL:    req.AvatarURL,
			IsVerified:   true,
			IsActive:     true,
		}
		if err := h.db.Create(&user).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	} else if user.GoogleID == "" {
		if err := h.db.Model(&models.User{}).Where("id = ?", user.ID).
			Updates(map[string]interface{}{"google_id": req.GoogleID, "avatar_url": req.AvatarURL}).Error; err != nil {
			return err
		}
		user.GoogleID = req.GoogleID
		user.AvatarURL = req.AvatarURL
	}

	if !user.IsActive {
		return fiber.NewError(fiber.StatusUnauthorized, "account is deactivated")
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, user.ID, h.cfg.TokenExpires)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    userResponse(&user),
		"token":   token,
	})
}

// Me returns the authenticated caller.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	return c.JSON(fiber.Map{"success": true, "user": userResponse(user)})
}

// Logout blacklists the current token so it is rejected immediately, even
// though its own signature and expiry remain valid.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	token, ok := middleware.GetCurrentToken(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	session := models.UserSession{
		UserID:    user.ID,
		TokenHash: utils.HashToken(token),
		ExpiresAt: time.Now().Add(blacklistTTL),
	}

	if err := h.db.Create(&session).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "message": "logged out successfully"})
}

func userResponse(user *models.User) fiber.Map {
	return fiber.Map{
		"id":          user.ID,
		"email":       user.Email,
		"firstName":   user.FirstName,
		"lastName":    user.LastName,
		"phone":       user.Phone,
		"avatarUrl":   user.AvatarURL,
		"isVerified":  user.IsVerified,
		"createdAt":   user.CreatedAt,
	}
}
