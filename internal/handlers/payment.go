package handlers

import (
	"errors"
	"log"
	"math"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/flexora/internal/config"
	"github.com/example/flexora/internal/middleware"
	"github.com/example/flexora/internal/models"
	"github.com/example/flexora/internal/services"
	"github.com/example/flexora/internal/utils"
)

// PaymentHandler manages payment gateway endpoints.
type PaymentHandler struct {
	db       *gorm.DB
	cfg      *config.Config
	gateway  services.PaymentGateway
	telegram *services.TelegramService
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(db *gorm.DB, cfg *config.Config, gateway services.PaymentGateway, telegram *services.TelegramService) *PaymentHandler {
	return &PaymentHandler{db: db, cfg: cfg, gateway: gateway, telegram: telegram}
}

type createPaymentRequest struct {
	OrderID  string  `json:"orderId" validate:"required,uuid4"`
	Amount   float64 `json:"amount" validate:"required,gt=0"`
	Currency string  `json:"currency"`
}

// CreatePaymentOrder creates a remote payment intent for an order and
// persists a pending payment row holding the gateway's identifiers.
func (h *PaymentHandler) CreatePaymentOrder(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req createPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}
	if req.Currency == "" {
		req.Currency = "INR"
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	var order models.Order
	if err := h.db.First(&order, "id = ? AND user_id = ?", orderID, user.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	if order.Status == models.OrderStatusCancelled {
		return fiber.NewError(fiber.StatusConflict, "cannot process payment for cancelled order")
	}

	var paid int64
	if err := h.db.Model(&models.Payment{}).
		Where("order_id = ? AND payment_status = ?", order.ID, models.PaymentStatusPaid).
		Count(&paid).Error; err != nil {
		return err
	}
	if paid > 0 {
		return fiber.NewError(fiber.StatusConflict, "payment already completed for this order")
	}

	gatewayOrder, err := h.gateway.CreateOrder(
		int64(math.Round(req.Amount*100)),
		req.Currency,
		order.OrderNumber,
		map[string]string{
			"order_id": order.ID.String(),
			"user_id":  user.ID.String(),
		},
	)
	if err != nil {
		log.Printf("[Payment] Gateway order creation failed for order %s: %v", order.ID, err)
		return fiber.NewError(fiber.StatusBadGateway, "failed to create payment order")
	}

	payment := models.Payment{
		OrderID:         order.ID,
		Amount:          req.Amount,
		Currency:        req.Currency,
		PaymentMethod:   "razorpay",
		PaymentStatus:   models.PaymentStatusPending,
		TransactionID:   gatewayOrder.ID,
		GatewayResponse: gatewayOrder.Raw,
	}

	if err := h.db.Create(&payment).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"payment": fiber.Map{
			"id":             payment.ID,
			"gatewayOrderId": gatewayOrder.ID,
			"amount":         req.Amount,
			"currency":       req.Currency,
			"key":            h.cfg.RazorpayKeyID,
		},
	})
}

type verifyPaymentRequest struct {
	OrderID   string `json:"orderId" validate:"required,uuid4"`
	PaymentID string `json:"paymentId" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// VerifyPayment checks the gateway callback signature, confirms capture with
// the gateway directly, then atomically flips the payment to paid, the order
// to processing, and appends a tracking entry. The paid flip is guarded by
// the pending predicate so a repeated verify cannot apply twice.
func (h *PaymentHandler) VerifyPayment(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req verifyPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	var order models.Order
	if err := h.db.First(&order, "id = ? AND user_id = ?", orderID, user.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	if !services.VerifyPaymentSignature(h.cfg.RazorpayKeySecret, req.OrderID, req.PaymentID, req.Signature) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payment signature")
	}

	gatewayPayment, err := h.gateway.FetchPayment(req.PaymentID)
	if err != nil {
		log.Printf("[Payment] Gateway fetch failed for payment %s: %v", req.PaymentID, err)
		return fiber.NewError(fiber.StatusBadGateway, "failed to verify payment with gateway")
	}

	if gatewayPayment.Status != "captured" {
		return fiber.NewError(fiber.StatusConflict, "payment not captured")
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Payment{}).
			Where("order_id = ? AND payment_status = ?", order.ID, models.PaymentStatusPending).
			Updates(map[string]interface{}{
				"payment_status":   models.PaymentStatusPaid,
				"transaction_id":   req.PaymentID,
				"gateway_response": gatewayPayment.Raw,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusConflict, "no pending payment for this order")
		}

		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).
			Update("status", models.OrderStatusProcessing).Error; err != nil {
			return err
		}

		tracking := models.OrderTracking{
			OrderID:     order.ID,
			Status:      models.OrderStatusProcessing,
			Description: "Payment received, order processing started",
		}
		return tx.Create(&tracking).Error
	})
	if err != nil {
		return err
	}

	if h.telegram != nil {
		go func() {
			if err := h.telegram.NotifyPaymentCaptured(order.OrderNumber, float64(gatewayPayment.Amount)/100, gatewayPayment.Currency); err != nil {
				log.Printf("[Payment] Telegram notification failed: %v", err)
			}
		}()
	}

	return c.JSON(fiber.Map{
		"success": true,
		"payment": fiber.Map{
			"id":       req.PaymentID,
			"status":   models.PaymentStatusPaid,
			"amount":   float64(gatewayPayment.Amount) / 100,
			"currency": gatewayPayment.Currency,
		},
	})
}

// PaymentStatus returns the latest payment attempt for an order.
func (h *PaymentHandler) PaymentStatus(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	orderID, err := uuid.Parse(c.Params("orderId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	var order models.Order
	if err := h.db.First(&order, "id = ? AND user_id = ?", orderID, user.ID).Error; err != nil {
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
		"order": fiber.Map{
			"id":          order.ID,
			"orderNumber": order.OrderNumber,
			"status":      order.Status,
			"totalAmount": order.TotalAmount,
		},
		"payment": payment,
	})
}

// PaymentHistory lists the caller's payments, newest first.
func (h *PaymentHandler) PaymentHistory(c *fiber.Ctx) error {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Payment{}).
		Joins("JOIN orders ON orders.id = payments.order_id").
		Where("orders.user_id = ?", user.ID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var payments []models.Payment
	if err := query.Preload("Order").
		Order("payments.created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&payments).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"payments":   payments,
		"pagination": pg.Meta(total),
	})
}

type refundRequest struct {
	Amount float64 `json:"amount" validate:"omitempty,gt=0"`
	Reason string  `json:"reason"`
}

// RefundPayment refunds a captured payment through the gateway. A full
// refund also cancels the order and appends a tracking entry; a partial
// refund records a tracking entry and leaves the order status untouched.
func (h *PaymentHandler) RefundPayment(c *fiber.Ctx) error {
	admin, ok := middleware.GetCurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	paymentID := c.Params("paymentId")

	var req refundRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return err
	}

	var payment models.Payment
	if err := h.db.First(&payment, "transaction_id = ? AND payment_status = ?", paymentID, models.PaymentStatusPaid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "payment not found or not eligible for refund")
		}
		return err
	}

	reason := req.Reason
	if reason == "" {
		reason = "Customer request"
	}

	var refundMinor int64
	if req.Amount > 0 {
		refundMinor = int64(math.Round(req.Amount * 100))
	}

	refund, err := h.gateway.RefundPayment(paymentID, refundMinor, map[string]string{"reason": reason})
	if err != nil {
		log.Printf("[Payment] Gateway refund failed for payment %s: %v", paymentID, err)
		return fiber.NewError(fiber.StatusBadGateway, "failed to process refund")
	}

	fullRefund := req.Amount == 0 || req.Amount >= payment.Amount

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Payment{}).Where("id = ?", payment.ID).
			Updates(map[string]interface{}{
				"payment_status":   models.PaymentStatusRefunded,
				"gateway_response": refund.Raw,
			}).Error; err != nil {
			return err
		}

		tracking := models.OrderTracking{
			OrderID:   payment.OrderID,
			UpdatedBy: &admin.ID,
		}

		if fullRefund {
			if err := tx.Model(&models.Order{}).Where("id = ?", payment.OrderID).
				Update("status", models.OrderStatusCancelled).Error; err != nil {
				return err
			}
			tracking.Status = models.OrderStatusCancelled
			tracking.Description = "Order cancelled due to refund"
		} else {
			var order models.Order
			if err := tx.First(&order, "id = ?", payment.OrderID).Error; err != nil {
				return err
			}
			tracking.Status = order.Status
			tracking.Description = "Partial refund issued"
		}

		return tx.Create(&tracking).Error
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"refund": fiber.Map{
			"id":     refund.ID,
			"amount": float64(refund.Amount) / 100,
			"status": refund.Status,
		},
	})
}
