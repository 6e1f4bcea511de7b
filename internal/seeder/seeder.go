package seeder

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderdesk/internal/database"
	"github.com/Additional-Code/orderdesk/internal/entity"
	repo "github.com/Additional-Code/orderdesk/internal/repository/order"
	ordersvc "github.com/Additional-Code/orderdesk/internal/service/order"
)

// DefaultOrderCount is how many orders Orders generates.
const DefaultOrderCount = 50

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

type menuItem struct {
	name  string
	price string
}

var menu = []menuItem{
	{"Margherita Pizza", "12.99"},
	{"Pepperoni Pizza", "14.99"},
	{"Vegetarian Pizza", "13.99"},
	{"Caesar Salad", "8.99"},
	{"Greek Salad", "9.99"},
	{"Chicken Wings (8pcs)", "11.99"},
	{"Garlic Bread", "4.99"},
	{"Spaghetti Carbonara", "15.99"},
	{"Fettuccine Alfredo", "14.99"},
	{"Grilled Salmon", "22.99"},
	{"Chicken Parmesan", "17.99"},
	{"Tiramisu", "7.99"},
	{"Cheesecake", "6.99"},
	{"Soft Drinks", "2.99"},
	{"House Wine (Glass)", "8.99"},
}

var specialInstructions = []string{
	"Extra spicy",
	"No onions",
	"Gluten-free if possible",
	"Extra cheese",
	"Well done",
	"Dressing on the side",
	"No garlic",
	"Extra sauce",
}

var preparationNotes = []string{
	"Allergy alert: Customer has nut allergy",
	"Regular customer - likes extra sauce",
	"VIP customer",
	"Birthday celebration",
	"Rush order",
	"Corporate order - needs proper presentation",
}

var firstNames = []string{"Ava", "Liam", "Mia", "Noah", "Zoe", "Omar", "Lena", "Kai", "Iris", "Theo"}
var lastNames = []string{"Rossi", "Nguyen", "Smith", "Kowalski", "Haddad", "Tanaka", "Garcia", "Okafor"}

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	repo   *repo.Repository
	logger *zap.Logger
	rnd    *rand.Rand
	now    func() time.Time
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, repository *repo.Repository, logger *zap.Logger) *Seeder {
	return &Seeder{
		db:     conns.Writer,
		repo:   repository,
		logger: logger,
		rnd:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Orders clears existing orders and inserts count randomly generated ones,
// oldest first.
func (s *Seeder) Orders(ctx context.Context, count int) error {
	if count <= 0 {
		count = DefaultOrderCount
	}

	// items go with their orders through ON DELETE CASCADE, but not every
	// sqlite connection enforces foreign keys.
	if _, err := s.db.NewDelete().Model((*entity.OrderItem)(nil)).Where("1 = 1").Exec(ctx); err != nil {
		return fmt.Errorf("clear order items: %w", err)
	}
	if _, err := s.db.NewDelete().Model((*entity.Order)(nil)).Where("1 = 1").Exec(ctx); err != nil {
		return fmt.Errorf("clear orders: %w", err)
	}

	orders := make([]*entity.Order, 0, count)
	for i := 0; i < count; i++ {
		orders = append(orders, s.generateOrder())
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})

	for i, order := range orders {
		if err := s.repo.Create(ctx, order); err != nil {
			return fmt.Errorf("create order %d: %w", i+1, err)
		}
		if s.logger != nil {
			s.logger.Debug("seeded order", zap.Int("n", i+1), zap.String("id", order.ID))
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded orders", zap.Int("count", len(orders)))
	}
	return nil
}

func (s *Seeder) generateOrder() *entity.Order {
	now := s.now()
	first := pick(s.rnd, firstNames)
	last := pick(s.rnd, lastNames)

	order := &entity.Order{
		ID:            uuid.NewString(),
		CustomerName:  first + " " + last,
		CustomerEmail: fmt.Sprintf("%s.%s%d@example.com", strings.ToLower(first), strings.ToLower(last), s.rnd.IntN(100)),
		OrderType:     pick(s.rnd, entity.OrderTypes),
	}

	itemCount := 1 + s.rnd.IntN(5)
	for i := 0; i < itemCount; i++ {
		m := pick(s.rnd, menu)
		item := &entity.OrderItem{
			ID:       uuid.NewString(),
			OrderID:  order.ID,
			Name:     m.name,
			Price:    decimal.RequireFromString(m.price),
			Quantity: 1 + s.rnd.IntN(4),
		}
		if s.rnd.Float64() < 0.3 {
			v := pick(s.rnd, specialInstructions)
			item.SpecialInstructions = &v
		}
		order.Items = append(order.Items, item)
	}
	order.Total = ordersvc.Total(order.Items)

	// within the last six months
	order.CreatedAt = now.Add(-time.Duration(s.rnd.Int64N(int64(180 * 24 * time.Hour))))
	order.UpdatedAt = order.CreatedAt
	if s.rnd.Float64() < 0.4 {
		scheduled := order.CreatedAt.Add(time.Duration(s.rnd.Int64N(int64(36 * 24 * time.Hour))))
		order.ScheduledFor = &scheduled
	}

	if order.ScheduledFor != nil && order.ScheduledFor.After(now) {
		order.Status = entity.StatusPending
	} else {
		order.Status = pick(s.rnd, []entity.OrderStatus{
			entity.StatusCompleted,
			entity.StatusConfirmed,
			entity.StatusDelivered,
			entity.StatusReady,
		})
	}

	if s.rnd.Float64() < 0.3 {
		v := pick(s.rnd, preparationNotes)
		order.PreparationNotes = &v
	}
	return order
}

func pick[T any](rnd *rand.Rand, values []T) T {
	return values[rnd.IntN(len(values))]
}
