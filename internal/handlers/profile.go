package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/flexora/internal/middleware"
	"github.com/example/flexora/internal/models"
	"github.com/example/flexora/internal/utils"
)

// ProfileHandler manages the account profile and address book.
type ProfileHandler struct {
	db *gorm.DB
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(db *gorm.DB) *ProfileHandler {
	return &ProfileHandler{db: db}
}

// GetProfile returns the caller's profile along with their address book.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var addresses []models.UserAddress
	if err := h.db.Where("user_id = ?", user.ID).
		Order("is_default desc, created_at desc").
		Find(&addresses).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"user":      userResponse(user),
		"addresses": addresses,
	})
}

type updateProfileRequest struct {
	FirstName string `json:"firstName" validate:"omitempty,min=2"`
	LastName  string `json:"lastName" validate:"omitempty,min=2"`
	Phone     string `json:"phone" validate:"omitempty,min=7"`
}

// UpdateProfile applies the provided fields to the caller's profile.
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}

	updates := map[string]interface{}{}
	if req.FirstName != "" {
		updates["first_name"] = req.FirstName
	}
	if req.LastName != "" {
		updates["last_name"] = req.LastName
	}
	if req.Phone != "" {
		updates["phone"] = req.Phone
	}
	if len(updates) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no fields to update")
	}

	if err := h.db.Model(&models.User{}).Where("id = ?", user.ID).
		Updates(updates).Error; err != nil {
		return err
	}

	var updated models.User
	if err := h.db.First(&updated, "id = ?", user.ID).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "profile updated successfully",
		"user":    userResponse(&updated),
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// ChangePassword verifies the current password before replacing it.
func (h *ProfileHandler) ChangePassword(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}

	if !utils.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		return fiber.NewError(fiber.StatusBadRequest, "current password is incorrect")
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}

	if err := h.db.Model(&models.User{}).Where("id = ?", user.ID).
		Update("password_hash", hash).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "message": "password changed successfully"})
}

// ListAddresses returns the caller's saved addresses, defaults first.
func (h *ProfileHandler) ListAddresses(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var addresses []models.UserAddress
	if err := h.db.Where("user_id = ?", user.ID).
		Order("is_default desc, created_at desc").
		Find(&addresses).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "addresses": addresses})
}

type addressRequest struct {
	AddressType  string `json:"addressType" validate:"omitempty,oneof=shipping billing"`
	IsDefault    bool   `json:"isDefault"`
	FullName     string `json:"fullName" validate:"required"`
	AddressLine1 string `json:"addressLine1" validate:"required"`
	AddressLine2 string `json:"addressLine2"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state" validate:"required"`
	PostalCode   string `json:"postalCode" validate:"required"`
	Country      string `json:"country"`
	Phone        string `json:"phone" validate:"omitempty,min=7"`
}

// CreateAddress saves a new address. Marking it default clears any other
// default of the same type.
func (h *ProfileHandler) CreateAddress(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req addressRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}

	if req.AddressType == "" {
		req.AddressType = "shipping"
	}
	if req.Country == "" {
		req.Country = "India"
	}

	address := models.UserAddress{
		UserID:       user.ID,
		AddressType:  req.AddressType,
		IsDefault:    req.IsDefault,
		FullName:     req.FullName,
		AddressLine1: req.AddressLine1,
		AddressLine2: req.AddressLine2,
		City:         req.City,
		State:        req.State,
		PostalCode:   req.PostalCode,
		Country:      req.Country,
		Phone:        req.Phone,
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if req.IsDefault {
			if err := tx.Model(&models.UserAddress{}).
				Where("user_id = ? AND address_type = ?", user.ID, req.AddressType).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(&address).Error
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "address added successfully",
		"address": address,
	})
}

type updateAddressRequest struct {
	AddressType  string  `json:"addressType" validate:"omitempty,oneof=shipping billing"`
	FullName     string  `json:"fullName"`
	AddressLine1 string  `json:"addressLine1"`
	AddressLine2 *string `json:"addressLine2"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	PostalCode   string  `json:"postalCode"`
	Country      string  `json:"country"`
	Phone        string  `json:"phone" validate:"omitempty,min=7"`
}

// UpdateAddress applies the provided fields to an owned address.
func (h *ProfileHandler) UpdateAddress(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req updateAddressRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}

	var address models.UserAddress
	if err := h.db.First(&address, "id = ? AND user_id = ?", id, user.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "address not found")
		}
		return err
	}

	updates := map[string]interface{}{}
	if req.AddressType != "" {
		updates["address_type"] = req.AddressType
	}
	if req.FullName != "" {
		updates["full_name"] = req.FullName
	}
	if req.AddressLine1 != "" {
		updates["address_line1"] = req.AddressLine1
	}
	if req.AddressLine2 != nil {
		updates["address_line2"] = *req.AddressLine2
	}
	if req.City != "" {
		updates["city"] = req.City
	}
	if req.State != "" {
		updates["state"] = req.State
	}
	if req.PostalCode != "" {
		updates["postal_code"] = req.PostalCode
	}
	if req.Country != "" {
		updates["country"] = req.Country
	}
	if req.Phone != "" {
		updates["phone"] = req.Phone
	}
	if len(updates) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no fields to update")
	}

	if err := h.db.Model(&address).Updates(updates).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "address updated successfully",
		"address": address,
	})
}

// DeleteAddress removes an owned address.
func (h *ProfileHandler) DeleteAddress(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	res := h.db.Where("id = ? AND user_id = ?", id, user.ID).Delete(&models.UserAddress{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "address not found")
	}

	return c.JSON(fiber.Map{"success": true, "message": "address deleted successfully"})
}

// SetDefaultAddress marks an owned address as the default for its type,
// clearing the previous default of that type.
func (h *ProfileHandler) SetDefaultAddress(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var address models.UserAddress
	if err := h.db.First(&address, "id = ? AND user_id = ?", id, user.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "address not found")
		}
		return err
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.UserAddress{}).
			Where("user_id = ? AND address_type = ?", user.ID, address.AddressType).
			Update("is_default", false).Error; err != nil {
			return err
		}
		return tx.Model(&models.UserAddress{}).
			Where("id = ?", address.ID).
			Update("is_default", true).Error
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "message": "default address updated successfully"})
}
