package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/flexora/internal/middleware"
	"github.com/example/flexora/internal/models"
	"github.com/example/flexora/internal/services"
	"github.com/example/flexora/internal/utils"
	"github.com/example/flexora/pkg/events"
)

// OrderHandler manages order endpoints.
type OrderHandler struct {
	db       *gorm.DB
	telegram *services.TelegramService
	events   *events.Publisher
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(db *gorm.DB, telegram *services.TelegramService, publisher *events.Publisher) *OrderHandler {
	return &OrderHandler{db: db, telegram: telegram, events: publisher}
}

type orderItemRequest struct {
	ProductID string `json:"productId" validate:"required,uuid4"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type createOrderRequest struct {
	Items           []orderItemRequest `json:"items" validate:"required,min=1,dive"`
	ShippingAddress json.RawMessage    `json:"shippingAddress" validate:"required"`
	BillingAddress  json.RawMessage    `json:"billingAddress"`
	Notes           string             `json:"notes"`
}

// CreateOrder places an order for the authenticated user. Stock decrements,
// the order row, its item snapshots, and the first tracking entry are all
// written in one transaction; any failure rolls everything back.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}

	billing := req.BillingAddress
	if len(billing) == 0 {
		billing = req.ShippingAddress
	}

	order := models.Order{
		OrderNumber:     utils.GenerateOrderNumber(),
		UserID:          user.ID,
		Status:          models.OrderStatusPending,
		Currency:        "INR",
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  billing,
		Notes:           req.Notes,
	}
	trackingNumber := utils.GenerateTrackingNumber()

	err := h.db.Transaction(func(tx *gorm.DB) error {
		var totalAmount float64
		items := make([]models.OrderItem, 0, len(req.Items))

		for _, item := range req.Items {
			productID, err := uuid.Parse(item.ProductID)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid product id")
			}

			var product models.Product
			if err := tx.Where("id = ? AND is_active = ?", productID, true).First(&product).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("product %s not found", item.ProductID))
				}
				return err
			}

			// Conditional decrement: zero rows affected means the stock ran
			// out between any earlier read and now, so the order fails
			// without a separate check-then-write race.
			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock_quantity >= ?", product.ID, item.Quantity).
				Update("stock_quantity", gorm.Expr("stock_quantity - ?", item.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fiber.NewError(fiber.StatusConflict, fmt.Sprintf("insufficient stock for %s", product.Name))
			}

			lineTotal := product.Price * float64(item.Quantity)
			totalAmount += lineTotal

			items = append(items, models.OrderItem{
				ProductID:    product.ID,
				ProductName:  product.Name,
				ProductPrice: product.Price,
				Quantity:     item.Quantity,
				TotalPrice:   lineTotal,
			})
		}

		order.TotalAmount = totalAmount
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
		order.Items = items

		tracking := models.OrderTracking{
			OrderID:        order.ID,
			Status:         models.OrderStatusPending,
			Description:    "Order placed successfully",
			TrackingNumber: trackingNumber,
		}
		return tx.Create(&tracking).Error
	})
	if err != nil {
		return err
	}

	h.events.Publish(events.OrderCreated, map[string]any{
		"orderId":     order.ID,
		"orderNumber": order.OrderNumber,
		"userId":      user.ID,
		"total":       order.TotalAmount,
		"status":      order.Status,
	})

	if h.telegram != nil {
		go func() {
			err := h.telegram.NotifyNewOrder(services.OrderNotification{
				OrderNumber:  order.OrderNumber,
				CustomerName: user.FirstName + " " + user.LastName,
				TotalAmount:  order.TotalAmount,
				Currency:     order.Currency,
				ItemCount:    len(order.Items),
			})
			if err != nil {
				log.Printf("[Order] Telegram notification failed: %v", err)
			}
		}()
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"order": fiber.Map{
			"id":             order.ID,
			"orderNumber":    order.OrderNumber,
			"totalAmount":    order.TotalAmount,
			"currency":       order.Currency,
			"status":         order.Status,
			"trackingNumber": trackingNumber,
			"createdAt":      order.CreatedAt,
		},
	})
}

// ListMyOrders returns the caller's orders, newest first.
func (h *OrderHandler) ListMyOrders(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Order{}).Where("user_id = ?", user.ID)

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var orders []models.Order
	if err := query.Preload("Items").
		Preload("Tracking", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at desc")
		}).
		Order("created_at desc").
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

// GetOrder returns a single order with items, tracking history, and the
// latest payment attempt.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var order models.Order
	if err := h.db.Preload("Items").
		Preload("Tracking", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at desc")
		}).
		First(&order, "id = ? AND user_id = ?", id, user.ID).Error; err != nil {
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

	return c.JSON(fiber.Map{
		"success": true,
		"order":   order,
		"payment": payment,
	})
}

// CancelOrder cancels a pending order, restoring every line item's stock and
// appending a tracking entry, atomically.
func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var order models.Order
	if err := h.db.First(&order, "id = ? AND user_id = ?", id, user.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	if order.Status != models.OrderStatusPending {
		return fiber.NewError(fiber.StatusConflict, "order cannot be cancelled at this stage")
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		// Conditional flip: a concurrent cancel that already moved the order
		// off pending leaves zero rows, so stock is restocked exactly once.
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, models.OrderStatusPending).
			Update("status", models.OrderStatusCancelled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusConflict, "order cannot be cancelled at this stage")
		}

		var items []models.OrderItem
		if err := tx.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
			return err
		}

		for _, item := range items {
			if err := tx.Model(&models.Product{}).
				Where("id = ?", item.ProductID).
				Update("stock_quantity", gorm.Expr("stock_quantity + ?", item.Quantity)).Error; err != nil {
				return err
			}
		}

		tracking := models.OrderTracking{
			OrderID:     order.ID,
			Status:      models.OrderStatusCancelled,
			Description: "Order cancelled by customer",
			UpdatedBy:   &user.ID,
		}
		return tx.Create(&tracking).Error
	})
	if err != nil {
		return err
	}

	h.events.Publish(events.OrderStatusChanged, map[string]any{
		"orderId":     order.ID,
		"orderNumber": order.OrderNumber,
		"status":      models.OrderStatusCancelled,
	})

	return c.JSON(fiber.Map{"success": true, "message": "order cancelled successfully"})
}

// TrackOrder looks up an order by its human-readable number. Authenticated
// owners see their own orders; guests must supply the account email.
func (h *OrderHandler) TrackOrder(c *fiber.Ctx) error {
	orderNumber := c.Params("orderNumber")
	email := c.Query("email")
	user, authed := middleware.GetCurrentUser(c)

	if !authed && email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email is required for guest tracking")
	}

	var order models.Order
	if err := h.db.Preload("User").
		First(&order, "order_number = ?", orderNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	owner := authed && order.UserID == user.ID
	if !owner {
		if email == "" || order.User == nil || order.User.Email != email {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
	}

	var tracking []models.OrderTracking
	if err := h.db.Where("order_id = ?", order.ID).
		Order("created_at desc").
		Find(&tracking).Error; err != nil {
		return err
	}

	customerName := ""
	customerEmail := ""
	if order.User != nil {
		customerName = order.User.FirstName + " " + order.User.LastName
		customerEmail = order.User.Email
	}

	return c.JSON(fiber.Map{
		"success": true,
		"order": fiber.Map{
			"orderNumber":   order.OrderNumber,
			"status":        order.Status,
			"totalAmount":   order.TotalAmount,
			"currency":      order.Currency,
			"customerName":  customerName,
			"customerEmail": customerEmail,
			"createdAt":     order.CreatedAt,
		},
		"tracking": tracking,
	})
}
