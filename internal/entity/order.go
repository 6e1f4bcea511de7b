package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// OrderType distinguishes how the customer receives the order.
type OrderType string

const (
	OrderTypeDelivery OrderType = "delivery"
	OrderTypePickup   OrderType = "pickup"
)

// OrderTypes lists every accepted order type.
var OrderTypes = []OrderType{OrderTypeDelivery, OrderTypePickup}

// Valid reports whether t is a known order type.
func (t OrderType) Valid() bool {
	for _, known := range OrderTypes {
		if t == known {
			return true
		}
	}
	return false
}

// OrderStatus is the lifecycle stage of an order. Any status may follow any other.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusReady     OrderStatus = "ready"
	StatusCompleted OrderStatus = "completed"
	StatusDelivered OrderStatus = "delivered"
)

// OrderStatuses lists every accepted order status.
var OrderStatuses = []OrderStatus{
	StatusPending,
	StatusConfirmed,
	StatusReady,
	StatusCompleted,
	StatusDelivered,
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Order represents a customer order stored in the relational database.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID               string          `bun:"id,pk"`
	CustomerName     string          `bun:"customer_name,notnull"`
	CustomerEmail    string          `bun:"customer_email,notnull"`
	OrderType        OrderType       `bun:"order_type,notnull"`
	Status           OrderStatus     `bun:"status,notnull"`
	Total            decimal.Decimal `bun:"total,notnull"`
	ScheduledFor     *time.Time      `bun:"scheduled_for"`
	PreparationNotes *string         `bun:"preparation_notes"`
	CreatedAt        time.Time       `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time       `bun:"updated_at,nullzero"`

	Items []*OrderItem `bun:"rel:has-many,join:id=order_id"`
}

// OrderItem is a single line of an order. Items are owned by their order.
type OrderItem struct {
	bun.BaseModel `bun:"table:order_items,alias:oi"`

	ID                  string          `bun:"id,pk"`
	OrderID             string          `bun:"order_id,notnull"`
	Position            int             `bun:"position,notnull"`
	Name                string          `bun:"name,notnull"`
	Quantity            int             `bun:"quantity,notnull"`
	Price               decimal.Decimal `bun:"price,notnull"`
	SpecialInstructions *string         `bun:"special_instructions"`
}

// LineTotal returns price multiplied by quantity.
func (i *OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
