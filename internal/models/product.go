package models

import "encoding/json"

// Product is a catalog entry. StockQuantity must never go negative; order
// creation decrements it with a conditional update rather than a separate
// read-then-write.
type Product struct {
	BaseModel
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Price          float64         `json:"price"`
	OriginalPrice  float64         `json:"original_price"`
	Currency       string          `json:"currency"`
	Category       string          `gorm:"index" json:"category"`
	Subcategory    string          `json:"subcategory"`
	Images         json.RawMessage `gorm:"type:jsonb" json:"images"`
	Features       json.RawMessage `gorm:"type:jsonb" json:"features"`
	Specifications json.RawMessage `gorm:"type:jsonb" json:"specifications"`
	StockQuantity  int             `json:"stock_quantity"`
	IsActive       bool            `gorm:"default:true" json:"is_active"`
}
