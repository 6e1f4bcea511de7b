package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderResponse represents an order as exposed via transport layers.
type OrderResponse struct {
	ID               string              `json:"id"`
	CustomerName     string              `json:"customerName"`
	CustomerEmail    string              `json:"customerEmail"`
	OrderType        string              `json:"orderType"`
	Status           string              `json:"status"`
	Total            float64             `json:"total"`
	ScheduledFor     *time.Time          `json:"scheduledFor"`
	PreparationNotes *string             `json:"preparationNotes"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
	Items            []OrderItemResponse `json:"items"`
}

// OrderItemResponse is a single order line in responses.
type OrderItemResponse struct {
	ID                  string  `json:"id"`
	OrderID             string  `json:"orderId"`
	Name                string  `json:"name"`
	Quantity            int     `json:"quantity"`
	Price               float64 `json:"price"`
	SpecialInstructions *string `json:"specialInstructions"`
}

// OrderListResponse is a page of orders.
type OrderListResponse struct {
	Orders     []OrderResponse `json:"orders"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	TotalPages int             `json:"totalPages"`
}

// CreateOrderRequest is the body accepted by POST /orders.
type CreateOrderRequest struct {
	CustomerName     string             `json:"customerName"`
	CustomerEmail    string             `json:"customerEmail"`
	OrderType        string             `json:"orderType"`
	Items            []OrderItemRequest `json:"items"`
	ScheduledFor     *string            `json:"scheduledFor"`
	PreparationNotes *string            `json:"preparationNotes"`
}

// OrderItemRequest is a single order line submitted on creation.
type OrderItemRequest struct {
	Name                string          `json:"name"`
	Quantity            int             `json:"quantity"`
	Price               decimal.Decimal `json:"price"`
	SpecialInstructions *string         `json:"specialInstructions"`
}

// UpdateOrderRequest is the body accepted by PATCH /orders/:id.
type UpdateOrderRequest struct {
	Status           *string `json:"status"`
	PreparationNotes *string `json:"preparationNotes"`
}
