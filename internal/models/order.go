package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Order statuses. An order moves pending -> processing -> shipped ->
// delivered, or pending -> cancelled. Status is the denormalized current
// state; the full history lives in order_tracking.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

type Order struct {
	BaseModel
	OrderNumber string    `gorm:"uniqueIndex" json:"order_number"`
	UserID      uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	User        *User     `json:"user,omitempty"`
	Status      string    `gorm:"index" json:"status"`
	TotalAmount float64   `json:"total_amount"`
	Currency    string    `json:"currency"`
	// Address snapshots marshal as raw JSON, never base64.
	ShippingAddress json.RawMessage `gorm:"type:jsonb" json:"shipping_address"`
	BillingAddress  json.RawMessage `gorm:"type:jsonb" json:"billing_address"`
	Notes           string          `json:"notes"`

	Items    []OrderItem     `json:"items,omitempty"`
	Tracking []OrderTracking `json:"tracking,omitempty"`
}

// OrderItem is an immutable snapshot of a product at order time. The price
// recorded here is the store's price, never a client-supplied one.
type OrderItem struct {
	BaseModel
	OrderID      uuid.UUID `gorm:"type:uuid;index" json:"order_id"`
	ProductID    uuid.UUID `gorm:"type:uuid" json:"product_id"`
	ProductName  string    `json:"product_name"`
	ProductPrice float64   `json:"product_price"`
	Quantity     int       `json:"quantity"`
	TotalPrice   float64   `json:"total_price"`
}

// OrderTracking is an append-only log of status transitions. Rows are never
// updated or deleted.
type OrderTracking struct {
	BaseModel
	OrderID        uuid.UUID  `gorm:"type:uuid;index" json:"order_id"`
	Status         string     `json:"status"`
	Description    string     `json:"description"`
	Location       string     `json:"location"`
	TrackingNumber string     `json:"tracking_number"`
	UpdatedBy      *uuid.UUID `gorm:"type:uuid" json:"updated_by"`
}
