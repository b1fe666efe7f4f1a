package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Payment statuses.
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// Payment records one payment attempt against an order. TransactionID holds
// the gateway's order id while pending and the captured payment id once
// paid; GatewayResponse is a raw snapshot of the gateway's last reply.
type Payment struct {
	BaseModel
	OrderID         uuid.UUID       `gorm:"type:uuid;index" json:"order_id"`
	Order           *Order          `json:"order,omitempty"`
	Amount          float64         `json:"amount"`
	Currency        string          `json:"currency"`
	PaymentMethod   string          `json:"payment_method"`
	PaymentStatus   string          `gorm:"index" json:"payment_status"`
	TransactionID   string          `gorm:"index" json:"transaction_id"`
	GatewayResponse json.RawMessage `gorm:"type:jsonb" json:"gateway_response"`
}
