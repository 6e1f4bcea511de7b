package order

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/Additional-Code/orderdesk/internal/entity"
	"github.com/Additional-Code/orderdesk/internal/messaging"
)

// Event types published on the orders topic.
const (
	EventOrderCreated = "order.created"
	EventOrderUpdated = "order.updated"
)

// OrderEvent is emitted when an order is created or updated.
type OrderEvent struct {
	Type      string             `json:"type"`
	ID        string             `json:"id"`
	OrderType entity.OrderType   `json:"order_type"`
	Status    entity.OrderStatus `json:"status"`
	Total     string             `json:"total"`
	Items     int                `json:"items"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func newOrderEvent(eventType string, order *entity.Order) OrderEvent {
	return OrderEvent{
		Type:      eventType,
		ID:        order.ID,
		OrderType: order.OrderType,
		Status:    order.Status,
		Total:     order.Total.StringFixed(2),
		Items:     len(order.Items),
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
	}
}

// publish is best effort: failures are logged and never fail the request.
func (s *Service) publish(ctx context.Context, eventType string, order *entity.Order) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	payload, err := json.Marshal(newOrderEvent(eventType, order))
	if err != nil {
		s.logger.Error("marshal order event", zap.String("type", eventType), zap.Error(err))
		return
	}
	headers := map[string]string{messaging.HeaderEventType: eventType}
	if err := s.publisher.Publish(ctx, []byte(order.ID), payload, headers); err != nil {
		s.logger.Error("publish order event", zap.String("type", eventType), zap.String("id", order.ID), zap.Error(err))
	}
}
