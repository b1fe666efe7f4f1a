package handlers

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/flexora/internal/middleware"
	"github.com/example/flexora/internal/models"
	"github.com/example/flexora/internal/utils"
	"github.com/example/flexora/pkg/events"
)

// AdminHandler serves the back-office endpoints.
type AdminHandler struct {
	db     *gorm.DB
	events *events.Publisher
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(db *gorm.DB, publisher *events.Publisher) *AdminHandler {
	return &AdminHandler{db: db, events: publisher}
}

// Dashboard returns aggregate storefront stats, the latest orders, and the
// order status distribution.
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	var totalUsers int64
	if err := h.db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		return err
	}

	var totalOrders int64
	if err := h.db.Model(&models.Order{}).Count(&totalOrders).Error; err != nil {
		return err
	}

	var totalRevenue float64
	if err := h.db.Model(&models.Order{}).
		Where("status != ?", models.OrderStatusCancelled).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&totalRevenue).Error; err != nil {
		return err
	}

	var recentOrders []models.Order
	if err := h.db.Preload("User").
		Order("created_at desc").
		Limit(10).
		Find(&recentOrders).Error; err != nil {
		return err
	}

	type statusCount struct {
		Status string
		Count  int64
	}
	var counts []statusCount
	if err := h.db.Model(&models.Order{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Find(&counts).Error; err != nil {
		return err
	}

	distribution := make(map[string]int64, len(counts))
	for _, sc := range counts {
		distribution[sc.Status] = sc.Count
	}

	return c.JSON(fiber.Map{
		"success": true,
		"stats": fiber.Map{
			"totalUsers":   totalUsers,
			"totalOrders":  totalOrders,
			"totalRevenue": totalRevenue,
		},
		"recentOrders":       recentOrders,
		"statusDistribution": distribution,
	})
}

// ListUsers returns all accounts with optional search and status filters.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.User{})

	if search := c.Query("search"); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("email LIKE ? OR first_name LIKE ? OR last_name LIKE ?",
			pattern, pattern, pattern)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("is_active = ?", status == "active")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var users []models.User
	if err := query.Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&users).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"users":      users,
		"pagination": pg.Meta(total),
	})
}

type updateUserStatusRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

// UpdateUserStatus activates or deactivates an account.
func (h *AdminHandler) UpdateUserStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req updateUserStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.IsActive == nil {
		return fiber.NewError(fiber.StatusBadRequest, "isActive is required")
	}

	res := h.db.Model(&models.User{}).Where("id = ?", id).
		Update("is_active", *req.IsActive)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "user not found")
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", id).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "user status updated successfully",
		"user":    userResponse(&user),
	})
}

// ListOrders returns all orders with optional status and search filters.
func (h *AdminHandler) ListOrders(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Order{}).
		Joins("JOIN users ON users.id = orders.user_id")

	if status := c.Query("status"); status != "" {
		query = query.Where("orders.status = ?", status)
	}
	if search := c.Query("search"); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("orders.order_number LIKE ? OR users.email LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var orders []models.Order
	if err := query.Preload("User").
		Order("orders.created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&orders).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"orders":     orders,
		"pagination": pg.Meta(total),
	})
}

// GetOrder returns the full order detail for the back office, including the
// customer, line items, tracking history, and latest payment attempt.
func (h *AdminHandler) GetOrder(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var order models.Order
	if err := h.db.Preload("User").Preload("Items").
		Preload("Tracking", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at desc")
		}).
		First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	var payment *models.Payment
	var latest models.Payment
	if err := h.db.Where("order_id = ?", order.ID).
		Order("created_at desc").
		First(&latest).Error; err == nil {
		payment = &latest
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	customer := fiber.Map{}
	if order.User != nil {
		customer = fiber.Map{
			"name":  order.User.FirstName + " " + order.User.LastName,
			"email": order.User.Email,
			"phone": order.User.Phone,
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"order": fiber.Map{
			"id":              order.ID,
			"orderNumber":     order.OrderNumber,
			"status":          order.Status,
			"totalAmount":     order.TotalAmount,
			"currency":        order.Currency,
			"shippingAddress": order.ShippingAddress,
			"billingAddress":  order.BillingAddress,
			"notes":           order.Notes,
			"createdAt":       order.CreatedAt,
			"updatedAt":       order.UpdatedAt,
			"customer":        customer,
		},
		"items":    order.Items,
		"tracking": order.Tracking,
		"payment":  payment,
	})
}

type updateOrderStatusRequest struct {
	Status         string `json:"status" validate:"required,oneof=pending processing shipped delivered cancelled"`
	Description    string `json:"description"`
	Location       string `json:"location"`
	TrackingNumber string `json:"trackingNumber"`
}

// UpdateOrderStatus moves an order to a new status and appends a tracking
// entry, atomically.
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	admin, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req updateOrderStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}

	var order models.Order
	if err := h.db.First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	description := req.Description
	if description == "" {
		description = fmt.Sprintf("Order status updated to %s", req.Status)
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).
			Update("status", req.Status).Error; err != nil {
			return err
		}

		tracking := models.OrderTracking{
			OrderID:        order.ID,
			Status:         req.Status,
			Description:    description,
			Location:       req.Location,
			TrackingNumber: req.TrackingNumber,
			UpdatedBy:      &admin.ID,
		}
		return tx.Create(&tracking).Error
	})
	if err != nil {
		return err
	}

	h.events.Publish(events.OrderStatusChanged, map[string]any{
		"orderId":     order.ID,
		"orderNumber": order.OrderNumber,
		"status":      req.Status,
	})

	return c.JSON(fiber.Map{"success": true, "message": "order status updated successfully"})
}

// ListProducts returns all products including inactive ones.
func (h *AdminHandler) ListProducts(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Product{})

	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if search := c.Query("search"); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var products []models.Product
	if err := query.Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&products).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"products":   products,
		"pagination": pg.Meta(total),
	})
}

type createProductRequest struct {
	Name           string          `json:"name" validate:"required"`
	Description    string          `json:"description"`
	Price          float64         `json:"price" validate:"required,gt=0"`
	OriginalPrice  float64         `json:"originalPrice" validate:"omitempty,gt=0"`
	Currency       string          `json:"currency"`
	Category       string          `json:"category"`
	Subcategory    string          `json:"subcategory"`
	StockQuantity  int             `json:"stockQuantity" validate:"omitempty,min=0"`
	Images         json.RawMessage `json:"images"`
	Features       json.RawMessage `json:"features"`
	Specifications json.RawMessage `json:"specifications"`
}

// CreateProduct adds a product to the catalog.
func (h *AdminHandler) CreateProduct(c *fiber.Ctx) error {
	var req createProductRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}

	if req.Currency == "" {
		req.Currency = "INR"
	}
	if len(req.Images) == 0 {
		req.Images = json.RawMessage("[]")
	}
	if len(req.Features) == 0 {
		req.Features = json.RawMessage("{}")
	}
	if len(req.Specifications) == 0 {
		req.Specifications = json.RawMessage("{}")
	}

	product := models.Product{
		Name:           req.Name,
		Description:    req.Description,
		Price:          req.Price,
		OriginalPrice:  req.OriginalPrice,
		Currency:       req.Currency,
		Category:       req.Category,
		Subcategory:    req.Subcategory,
		StockQuantity:  req.StockQuantity,
		Images:         req.Images,
		Features:       req.Features,
		Specifications: req.Specifications,
		IsActive:       true,
	}

	if err := h.db.Create(&product).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "product created successfully",
		"product": product,
	})
}

type updateProductRequest struct {
	Name           string          `json:"name"`
	Description    *string         `json:"description"`
	Price          float64         `json:"price" validate:"omitempty,gt=0"`
	OriginalPrice  float64         `json:"originalPrice" validate:"omitempty,gt=0"`
	Category       string          `json:"category"`
	Subcategory    string          `json:"subcategory"`
	StockQuantity  *int            `json:"stockQuantity" validate:"omitempty"`
	IsActive       *bool           `json:"isActive"`
	Images         json.RawMessage `json:"images"`
	Features       json.RawMessage `json:"features"`
	Specifications json.RawMessage `json:"specifications"`
}

// UpdateProduct applies the provided fields to a product.
func (h *AdminHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req updateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}

	var product models.Product
	if err := h.db.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return err
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price > 0 {
		updates["price"] = req.Price
	}
	if req.OriginalPrice > 0 {
		updates["original_price"] = req.OriginalPrice
	}
	if req.Category != "" {
		updates["category"] = req.Category
	}
	if req.Subcategory != "" {
		updates["subcategory"] = req.Subcategory
	}
	if req.StockQuantity != nil {
		if *req.StockQuantity < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "stockQuantity cannot be negative")
		}
		updates["stock_quantity"] = *req.StockQuantity
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(req.Images) > 0 {
		updates["images"] = req.Images
	}
	if len(req.Features) > 0 {
		updates["features"] = req.Features
	}
	if len(req.Specifications) > 0 {
		updates["specifications"] = req.Specifications
	}
	if len(updates) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no fields to update")
	}

	if err := h.db.Model(&product).Updates(updates).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "product updated successfully",
		"product": product,
	})
}

// DeleteProduct deactivates a product instead of removing the row, so
// order item snapshots keep a valid parent.
func (h *AdminHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	res := h.db.Model(&models.Product{}).Where("id = ?", id).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "product not found")
	}

	return c.JSON(fiber.Map{"success": true, "message": "product deleted successfully"})
}
