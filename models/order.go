package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus represents the lifecycle status of an order
type OrderStatus string

const (
	OrderStatusPlaced OrderStatus = "PLACED"
)

// TaxRate is the flat sales tax applied to every order
const TaxRate = 0.06

// Line item quantity bounds
const (
	MinQty = 1
	MaxQty = 99
)

// LineItem is a validated, priced order line
type LineItem struct {
	Name      string  `json:"name"`
	Qty       int     `json:"qty"`
	Price     float64 `json:"price"`
	LineTotal float64 `json:"lineTotal"`
}

// Order represents a placed order owned by one identity
type Order struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	OwnerUID  string      `json:"ownerUid" db:"owner_uid"`
	Items     []LineItem  `json:"items" db:"items"`
	Subtotal  float64     `json:"subtotal" db:"subtotal"`
	TaxRate   float64     `json:"taxRate" db:"tax_rate"`
	Tax       float64     `json:"tax" db:"tax"`
	Total     float64     `json:"total" db:"total"`
	Status    OrderStatus `json:"status" db:"status"`
	CreatedAt time.Time   `json:"createdAt" db:"created_at"` // Assigned by the database on insert
}

// TableName returns the table name for the Order model
func (Order) TableName() string {
	return "orders"
}
