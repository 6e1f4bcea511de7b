package order

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/orderdesk/internal/database"
	"github.com/Additional-Code/orderdesk/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/orderdesk/repository/order")

// ErrNotFound is returned when an order is missing.
var ErrNotFound = errors.New("order not found")

// Filter narrows the set of listed orders. Zero values are ignored.
type Filter struct {
	Status    entity.OrderStatus
	OrderType entity.OrderType
	Search    string
}

// Changes is a partial update; nil fields are left untouched.
type Changes struct {
	Status           *entity.OrderStatus
	PreparationNotes *string
}

// Empty reports whether no field is set.
func (c Changes) Empty() bool {
	return c.Status == nil && c.PreparationNotes == nil
}

// Repository encapsulates read/write access for orders.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Create persists a new order and its items in a single transaction.
func (r *Repository) Create(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Create", trace.WithAttributes(
		attribute.String("order.id", order.ID),
		attribute.Int("order.items", len(order.Items)),
	))
	defer span.End()

	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(order).Exec(ctx); err != nil {
			return err
		}
		if len(order.Items) == 0 {
			return nil
		}
		for i, item := range order.Items {
			item.OrderID = order.ID
			item.Position = i
		}
		_, err := tx.NewInsert().Model(&order.Items).Exec(ctx)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByID fetches an order with its items using the read replica when available.
func (r *Repository) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByID", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order, err := getByID(ctx, r.reader, id)
	if errors.Is(err, ErrNotFound) {
		span.SetStatus(codes.Error, "not found")
		return nil, err
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// List returns one window of orders matching filter, newest first, items included.
func (r *Repository) List(ctx context.Context, filter Filter, offset, limit int) ([]*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.List", trace.WithAttributes(
		attribute.Int("query.offset", offset),
		attribute.Int("query.limit", limit),
	))
	defer span.End()

	orders := make([]*entity.Order, 0)
	q := r.reader.NewSelect().
		Model(&orders).
		Relation("Items", orderItemsByPosition).
		OrderExpr("o.created_at DESC").
		Offset(offset).
		Limit(limit)
	applyFilter(q, filter)

	if err := q.Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// Count returns how many orders match filter.
func (r *Repository) Count(ctx context.Context, filter Filter) (int, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Count")
	defer span.End()

	q := r.reader.NewSelect().Model((*entity.Order)(nil))
	applyFilter(q, filter)

	total, err := q.Count(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count failed")
		return 0, err
	}
	return total, nil
}

// Update applies changes to the order and returns the stored result.
// The row is not checked beforehand; a missing order surfaces as ErrNotFound on reload.
func (r *Repository) Update(ctx context.Context, id string, changes Changes) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Update", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	var updated *entity.Order
	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if !changes.Empty() {
			q := tx.NewUpdate().
				Model((*entity.Order)(nil)).
				Set("updated_at = ?", time.Now().UTC()).
				Where("id = ?", id)
			if changes.Status != nil {
				q = q.Set("status = ?", *changes.Status)
			}
			if changes.PreparationNotes != nil {
				q = q.Set("preparation_notes = ?", *changes.PreparationNotes)
			}
			if _, err := q.Exec(ctx); err != nil {
				return err
			}
		}

		order, err := getByID(ctx, tx, id)
		if err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			span.RecordError(err)
		}
		span.SetStatus(codes.Error, "update failed")
		return nil, err
	}
	return updated, nil
}

func getByID(ctx context.Context, db bun.IDB, id string) (*entity.Order, error) {
	order := new(entity.Order)
	err := db.NewSelect().
		Model(order).
		Relation("Items", orderItemsByPosition).
		Where("o.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func orderItemsByPosition(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Order("position ASC")
}

func applyFilter(q *bun.SelectQuery, filter Filter) {
	if filter.Status != "" {
		q.Where("o.status = ?", filter.Status)
	}
	if filter.OrderType != "" {
		q.Where("o.order_type = ?", filter.OrderType)
	}
	if filter.Search == "" {
		return
	}

	pattern := containsPattern(filter.Search)
	q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.
			WhereOr("LOWER(o.customer_name) LIKE ? ESCAPE '!'", pattern).
			WhereOr("LOWER(o.customer_email) LIKE ? ESCAPE '!'", pattern).
			WhereOr("EXISTS (SELECT 1 FROM order_items AS oi WHERE oi.order_id = o.id AND LOWER(oi.name) LIKE ? ESCAPE '!')", pattern).
			WhereOr("LOWER(o.preparation_notes) LIKE ? ESCAPE '!'", pattern)
	})
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// containsPattern builds a case-insensitive substring LIKE pattern with wildcards escaped.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}
