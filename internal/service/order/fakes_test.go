package order_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Additional-Code/orderdesk/internal/cache"
	"github.com/Additional-Code/orderdesk/internal/entity"
	"github.com/Additional-Code/orderdesk/internal/messaging"
	repo "github.com/Additional-Code/orderdesk/internal/repository/order"
)

type fakeRepo struct {
	mu     sync.Mutex
	orders map[string]*entity.Order

	createErr error
	listErr   error
	countErr  error

	// afterUpdate runs once an update has committed, outside the lock.
	afterUpdate func(repo.Changes)

	gets       int
	lastFilter repo.Filter
	lastOffset int
	lastLimit  int
}

func newFakeRepo(orders ...*entity.Order) *fakeRepo {
	r := &fakeRepo{orders: make(map[string]*entity.Order)}
	for _, o := range orders {
		r.orders[o.ID] = o
	}
	return r
}

func (r *fakeRepo) Create(_ context.Context, order *entity.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.orders[order.ID] = order
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	order, ok := r.orders[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return order, nil
}

func (r *fakeRepo) List(_ context.Context, filter repo.Filter, offset, limit int) ([]*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFilter, r.lastOffset, r.lastLimit = filter, offset, limit
	if r.listErr != nil {
		return nil, r.listErr
	}

	all := r.matching(filter)
	if offset >= len(all) {
		return []*entity.Order{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *fakeRepo) Count(_ context.Context, filter repo.Filter) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.countErr != nil {
		return 0, r.countErr
	}
	return len(r.matching(filter)), nil
}

func (r *fakeRepo) Update(_ context.Context, id string, changes repo.Changes) (*entity.Order, error) {
	updated, err := r.update(id, changes)
	if err == nil && r.afterUpdate != nil {
		r.afterUpdate(changes)
	}
	return updated, err
}

func (r *fakeRepo) update(id string, changes repo.Changes) (*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	updated := *order
	if changes.Status != nil {
		updated.Status = *changes.Status
	}
	if changes.PreparationNotes != nil {
		notes := *changes.PreparationNotes
		updated.PreparationNotes = &notes
	}
	r.orders[id] = &updated
	return &updated, nil
}

func (r *fakeRepo) matching(filter repo.Filter) []*entity.Order {
	out := make([]*entity.Order, 0, len(r.orders))
	for _, o := range r.orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.OrderType != "" && o.OrderType != filter.OrderType {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return v, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

type published struct {
	key     string
	value   []byte
	headers map[string]string
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, key, value []byte, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{key: string(key), value: value, headers: headers})
	return nil
}

func (p *recordingPublisher) Consume(ctx context.Context, _ messaging.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (p *recordingPublisher) Topic() string { return "orders.events" }

var errBoom = errors.New("boom")
