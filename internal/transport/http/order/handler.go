package order

import (
	"context"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/orderdesk/internal/dto"
	"github.com/Additional-Code/orderdesk/internal/entity"
	"github.com/Additional-Code/orderdesk/internal/presentation/http/response"
	service "github.com/Additional-Code/orderdesk/internal/service/order"
	"github.com/Additional-Code/orderdesk/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/orderdesk/transport/http/order")

const (
	defaultPage  = 1
	defaultLimit = 10

	// maxOffset bounds (page-1)*limit so the query offset cannot overflow.
	maxOffset = math.MaxInt32

	invalidOrderTypeMessage = `Invalid order type. Must be either "delivery" or "pickup"`
	invalidStatusMessage    = "Invalid order status"
)

// OrderService is the subset of the order service used by the handler.
type OrderService interface {
	FindAll(ctx context.Context, page, limit int, filters service.Filters) (*service.Page, error)
	FindByID(ctx context.Context, id string) (*entity.Order, error)
	Create(ctx context.Context, in service.CreateInput) (*entity.Order, error)
	Update(ctx context.Context, id string, in service.UpdateInput) (*entity.Order, error)
}

// Handler exposes order endpoints over HTTP.
type Handler struct {
	svc OrderService
}

// NewHandler constructs an order Handler.
func NewHandler(svc OrderService) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/orders")
	g.GET("", h.list)
	g.GET("/:id", h.getByID)
	g.PATCH("/:id", h.update)
	g.POST("", h.create)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	page := queryInt(c, "page", defaultPage)
	limit := queryInt(c, "limit", defaultLimit)
	if page-1 > maxOffset/limit {
		page = defaultPage
	}
	filters := service.Filters{
		Status:    entity.OrderStatus(c.QueryParam("status")),
		OrderType: entity.OrderType(c.QueryParam("orderType")),
		Search:    c.QueryParam("search"),
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.list", trace.WithAttributes(
		attribute.Int("page", page),
		attribute.Int("limit", limit),
	))
	defer span.End()

	result, err := h.svc.FindAll(ctx, page, limit, filters)
	if err != nil {
		return b.WithError(err).Build()
	}

	orders := make([]dto.OrderResponse, 0, len(result.Orders))
	for _, order := range result.Orders {
		orders = append(orders, toDTO(order))
	}
	return b.WithData(dto.OrderListResponse{
		Orders:     orders,
		Total:      result.Total,
		Page:       result.Page,
		TotalPages: result.TotalPages,
	}).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByID", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order, err := h.svc.FindByID(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(toDTO(order)).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var payload dto.CreateOrderRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	orderType := entity.OrderType(payload.OrderType)
	if !orderType.Valid() {
		return b.WithError(errorbank.BadRequest(invalidOrderTypeMessage)).Build()
	}

	in := service.CreateInput{
		CustomerName:     payload.CustomerName,
		CustomerEmail:    payload.CustomerEmail,
		OrderType:        orderType,
		Items:            make([]service.ItemInput, 0, len(payload.Items)),
		ScheduledFor:     payload.ScheduledFor,
		PreparationNotes: payload.PreparationNotes,
	}
	for _, item := range payload.Items {
		in.Items = append(in.Items, service.ItemInput{
			Name:                item.Name,
			Quantity:            item.Quantity,
			Price:               item.Price,
			SpecialInstructions: item.SpecialInstructions,
		})
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create")
	span.SetAttributes(
		attribute.String("order.type", string(orderType)),
		attribute.Int("order.items", len(in.Items)),
	)
	defer span.End()

	order, err := h.svc.Create(ctx, in)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).WithData(toDTO(order)).Build()
}

func (h *Handler) update(c echo.Context) error {
	b := response.New(c)
	id := c.Param("id")

	var payload dto.UpdateOrderRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	var in service.UpdateInput
	if payload.Status != nil && *payload.Status != "" {
		status := entity.OrderStatus(*payload.Status)
		if !status.Valid() {
			return b.WithError(errorbank.BadRequest(invalidStatusMessage)).Build()
		}
		in.Status = &status
	}
	in.PreparationNotes = payload.PreparationNotes

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.update", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order, err := h.svc.Update(ctx, id, in)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(toDTO(order)).Build()
}

// queryInt reads a positive integer query parameter, falling back to def.
func queryInt(c echo.Context, name string, def int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return def
	}
	return v
}

func toDTO(order *entity.Order) dto.OrderResponse {
	items := make([]dto.OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, dto.OrderItemResponse{
			ID:                  item.ID,
			OrderID:             item.OrderID,
			Name:                item.Name,
			Quantity:            item.Quantity,
			Price:               item.Price.InexactFloat64(),
			SpecialInstructions: item.SpecialInstructions,
		})
	}
	return dto.OrderResponse{
		ID:               order.ID,
		CustomerName:     order.CustomerName,
		CustomerEmail:    order.CustomerEmail,
		OrderType:        string(order.OrderType),
		Status:           string(order.Status),
		Total:            order.Total.InexactFloat64(),
		ScheduledFor:     order.ScheduledFor,
		PreparationNotes: order.PreparationNotes,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
		Items:            items,
	}
}
