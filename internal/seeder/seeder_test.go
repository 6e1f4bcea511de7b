package seeder

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderdesk/internal/entity"
	repo "github.com/Additional-Code/orderdesk/internal/repository/order"
	ordersvc "github.com/Additional-Code/orderdesk/internal/service/order"
	"github.com/Additional-Code/orderdesk/internal/testutil"
)

func TestGenerateOrder(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := &Seeder{
		rnd: rand.New(rand.NewPCG(1, 2)),
		now: func() time.Time { return now },
	}

	for i := 0; i < 200; i++ {
		order := s.generateOrder()

		require.NotEmpty(t, order.Items)
		assert.LessOrEqual(t, len(order.Items), 5)
		assert.True(t, ordersvc.Total(order.Items).Equal(order.Total))
		assert.True(t, order.OrderType.Valid())
		assert.True(t, order.Status.Valid())
		assert.False(t, order.CreatedAt.After(now))
		assert.True(t, order.CreatedAt.After(now.AddDate(0, 0, -181)))

		if order.ScheduledFor != nil && order.ScheduledFor.After(now) {
			assert.Equal(t, entity.StatusPending, order.Status)
		} else {
			assert.NotEqual(t, entity.StatusPending, order.Status)
		}
		for _, item := range order.Items {
			assert.Equal(t, order.ID, item.OrderID)
			assert.GreaterOrEqual(t, item.Quantity, 1)
		}
	}
}

func TestOrdersReplacesExistingData(t *testing.T) {
	conns := testutil.NewSQLite(t)
	r := repo.NewRepository(conns)
	s := New(conns, r, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, s.Orders(ctx, 12))
	require.NoError(t, s.Orders(ctx, 7))

	count, err := r.Count(ctx, repo.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 7, count)

	var items int
	items, err = conns.Reader.NewSelect().Model((*entity.OrderItem)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, items, 7)
	assert.LessOrEqual(t, items, 35)
}
