package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/flexora/internal/models"
	"github.com/example/flexora/internal/utils"
)

// ContactHandler stores and lists contact form submissions.
type ContactHandler struct {
	db *gorm.DB
}

// NewContactHandler constructs ContactHandler.
func NewContactHandler(db *gorm.DB) *ContactHandler {
	return &ContactHandler{db: db}
}

type contactRequest struct {
	Name    string `json:"name" validate:"required,min=2"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required,min=2"`
	Message string `json:"message" validate:"required,min=10"`
}

// Submit persists a contact form submission.
func (h *ContactHandler) Submit(c *fiber.Ctx) error {
	var req contactRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}

	message := models.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	}

	if err := h.db.Create(&message).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "message sent successfully",
	})
}

// List returns contact submissions for the back office, newest first.
func (h *ContactHandler) List(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)

	var total int64
	if err := h.db.Model(&models.ContactMessage{}).Count(&total).Error; err != nil {
		return err
	}

	var messages []models.ContactMessage
	if err := h.db.Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&messages).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"messages":   messages,
		"pagination": pg.Meta(total),
	})
}
