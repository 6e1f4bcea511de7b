package order

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderdesk/internal/config"
	"github.com/Additional-Code/orderdesk/internal/messaging"
	ordersvc "github.com/Additional-Code/orderdesk/internal/service/order"
	"github.com/Additional-Code/orderdesk/internal/worker"
)

var workerTracer = otel.Tracer("github.com/Additional-Code/orderdesk/worker/order")

// Module registers order-related worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewOrderEventsHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewOrderEventsHandler sets up a worker handler that logs order lifecycle events.
func NewOrderEventsHandler(logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handleOrderEvent(logger),
	}
}

func handleOrderEvent(logger *zap.Logger) messaging.Handler {
	return func(ctx context.Context, msg messaging.Message) error {
		_, span := workerTracer.Start(ctx, "worker.orders.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event ordersvc.OrderEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode order event", zap.Error(err), zap.Int64("offset", msg.Offset))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}
		if event.Type == "" {
			event.Type = msg.Headers[messaging.HeaderEventType]
		}
		span.SetAttributes(attribute.String("order.event", event.Type), attribute.String("order.id", event.ID))

		switch event.Type {
		case ordersvc.EventOrderCreated:
			logger.Info("order created",
				zap.String("id", event.ID),
				zap.String("order_type", string(event.OrderType)),
				zap.String("total", event.Total),
				zap.Int("items", event.Items),
			)
		case ordersvc.EventOrderUpdated:
			logger.Info("order updated",
				zap.String("id", event.ID),
				zap.String("status", string(event.Status)),
			)
		default:
			logger.Warn("unknown order event", zap.String("type", event.Type), zap.String("id", event.ID))
		}

		return nil
	}
}
