package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Additional-Code/orderdesk/internal/cache"
	"github.com/Additional-Code/orderdesk/internal/config"
	"github.com/Additional-Code/orderdesk/internal/entity"
	"github.com/Additional-Code/orderdesk/internal/messaging"
	repo "github.com/Additional-Code/orderdesk/internal/repository/order"
	"github.com/Additional-Code/orderdesk/pkg/errorbank"
)

var (
	serviceTracer = otel.Tracer("github.com/Additional-Code/orderdesk/service/order")
	serviceMeter  = otel.Meter("github.com/Additional-Code/orderdesk/service/order")
)

// Repository is the persistence contract the service relies on.
type Repository interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id string) (*entity.Order, error)
	List(ctx context.Context, filter repo.Filter, offset, limit int) ([]*entity.Order, error)
	Count(ctx context.Context, filter repo.Filter) (int, error)
	Update(ctx context.Context, id string, changes repo.Changes) (*entity.Order, error)
}

// Filters narrows FindAll results. Values are passed through unvalidated.
type Filters struct {
	Status    entity.OrderStatus
	OrderType entity.OrderType
	Search    string
}

// Page is one window of the ordered result set.
type Page struct {
	Orders     []*entity.Order
	Total      int
	Page       int
	TotalPages int
}

// ItemInput describes one line of a new order.
type ItemInput struct {
	Name                string
	Quantity            int
	Price               decimal.Decimal
	SpecialInstructions *string
}

// CreateInput carries the data for a new order.
type CreateInput struct {
	CustomerName     string
	CustomerEmail    string
	OrderType        entity.OrderType
	Items            []ItemInput
	ScheduledFor     *string
	PreparationNotes *string
}

// UpdateInput carries a partial order update.
type UpdateInput struct {
	Status           *entity.OrderStatus
	PreparationNotes *string
}

// Service encapsulates business logic around orders.
type Service struct {
	repo      Repository
	cache     cache.Store
	cacheTTL  time.Duration
	logger    *zap.Logger
	publisher messaging.Client
	messaging messagingConfig
	now       func() time.Time

	createdCounter metric.Int64Counter
	updatedCounter metric.Int64Counter
}

// messagingConfig contains messaging specific knobs we care about.
type messagingConfig struct {
	enabled bool
	topic   string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository Repository
	Cache      cache.Store
	Config     config.Config
	Logger     *zap.Logger
	Publisher  messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		repo:      p.Repository,
		cache:     p.Cache,
		cacheTTL:  p.Config.Cache.DefaultTTL,
		logger:    logger,
		publisher: p.Publisher,
		messaging: messagingConfig{
			enabled: p.Config.Messaging.Enabled,
			topic:   p.Config.Messaging.Kafka.Topic,
		},
		now: func() time.Time { return time.Now().UTC() },
	}

	var err error
	if s.createdCounter, err = serviceMeter.Int64Counter("orders.created", metric.WithDescription("Orders created")); err != nil {
		logger.Warn("orders.created counter unavailable", zap.Error(err))
	}
	if s.updatedCounter, err = serviceMeter.Int64Counter("orders.updated", metric.WithDescription("Orders updated")); err != nil {
		logger.Warn("orders.updated counter unavailable", zap.Error(err))
	}
	return s
}

// FindAll returns a page of orders matching filters, newest first.
// page and limit are trusted as given.
func (s *Service) FindAll(ctx context.Context, page, limit int, filters Filters) (*Page, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.FindAll", trace.WithAttributes(
		attribute.Int("page", page),
		attribute.Int("limit", limit),
		attribute.String("filter.status", string(filters.Status)),
		attribute.String("filter.order_type", string(filters.OrderType)),
	))
	defer span.End()

	filter := repo.Filter{
		Status:    filters.Status,
		OrderType: filters.OrderType,
		Search:    filters.Search,
	}
	offset := (page - 1) * limit

	var (
		orders []*entity.Order
		total  int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = s.repo.List(gctx, filter, offset, limit)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.Count(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list orders", errorbank.WithCause(err))
	}

	return &Page{
		Orders:     orders,
		Total:      total,
		Page:       page,
		TotalPages: totalPages(total, limit),
	}, nil
}

// FindByID retrieves an order by id, consulting cache when available.
func (s *Service) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.FindByID", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	if order, err := s.getFromCache(ctx, id); err == nil {
		return order, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("orders cache read failed", zap.String("id", id), zap.Error(err))
	}

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.repositoryError(span, err, "failed to load order")
	}

	s.refreshCache(ctx, order)
	return order, nil
}

// Create persists a new pending order whose total is the sum of its line totals.
func (s *Service) Create(ctx context.Context, in CreateInput) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Create", trace.WithAttributes(
		attribute.String("order.type", string(in.OrderType)),
		attribute.Int("order.items", len(in.Items)),
	))
	defer span.End()

	scheduledFor, err := parseSchedule(in.ScheduledFor)
	if err != nil {
		return nil, errorbank.BadRequest("invalid scheduledFor", errorbank.WithCause(err))
	}

	now := s.now()
	order := &entity.Order{
		ID:               uuid.NewString(),
		CustomerName:     in.CustomerName,
		CustomerEmail:    in.CustomerEmail,
		OrderType:        in.OrderType,
		Status:           entity.StatusPending,
		ScheduledFor:     scheduledFor,
		PreparationNotes: in.PreparationNotes,
		CreatedAt:        now,
		UpdatedAt:        now,
		Items:            make([]*entity.OrderItem, 0, len(in.Items)),
	}
	for _, item := range in.Items {
		order.Items = append(order.Items, &entity.OrderItem{
			ID:                  uuid.NewString(),
			OrderID:             order.ID,
			Name:                item.Name,
			Quantity:            item.Quantity,
			Price:               item.Price,
			SpecialInstructions: item.SpecialInstructions,
		})
	}
	order.Total = Total(order.Items)
	span.SetAttributes(attribute.String("order.id", order.ID))

	if err := s.repo.Create(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to create order", errorbank.WithCause(err))
	}

	if s.createdCounter != nil {
		s.createdCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("order.type", string(order.OrderType))))
	}
	s.publish(ctx, EventOrderCreated, order)
	return order, nil
}

// Update applies a partial update of status and/or preparation notes.
// Status transitions are not restricted and the total is left as created.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Update", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order, err := s.repo.Update(ctx, id, repo.Changes{
		Status:           in.Status,
		PreparationNotes: in.PreparationNotes,
	})
	// only FindByID fills the cache
	s.evictCache(ctx, id)
	if err != nil {
		return nil, s.repositoryError(span, err, "failed to update order")
	}

	if s.updatedCounter != nil {
		s.updatedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("order.status", string(order.Status))))
	}
	s.publish(ctx, EventOrderUpdated, order)
	return order, nil
}

// Total sums price × quantity across items.
func Total(items []*entity.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

func totalPages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

var scheduleLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func parseSchedule(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	var lastErr error
	for _, layout := range scheduleLayouts {
		t, err := time.Parse(layout, *raw)
		if err == nil {
			t = t.UTC()
			return &t, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (s *Service) repositoryError(span trace.Span, err error, message string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return errorbank.NotFound("Order not found")
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "repository error")
	return errorbank.Internal(message, errorbank.WithCause(err))
}

func (s *Service) cacheKey(id string) string {
	return "orders:" + id
}

func (s *Service) getFromCache(ctx context.Context, id string) (*entity.Order, error) {
	var order entity.Order
	if err := cache.GetJSON(ctx, s.cache, s.cacheKey(id), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) refreshCache(ctx context.Context, order *entity.Order) {
	if order == nil {
		return
	}
	if err := cache.SetJSON(ctx, s.cache, s.cacheKey(order.ID), order, s.cacheTTL); err != nil {
		s.logger.Warn("orders cache write failed", zap.String("id", order.ID), zap.Error(err))
	}
}

func (s *Service) evictCache(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, s.cacheKey(id)); err != nil {
		s.logger.Warn("orders cache delete failed", zap.String("id", id), zap.Error(err))
	}
}
