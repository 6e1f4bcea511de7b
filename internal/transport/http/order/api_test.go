package order_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderdesk/internal/config"
	"github.com/Additional-Code/orderdesk/internal/dto"
	"github.com/Additional-Code/orderdesk/internal/entity"
	repo "github.com/Additional-Code/orderdesk/internal/repository/order"
	service "github.com/Additional-Code/orderdesk/internal/service/order"
	"github.com/Additional-Code/orderdesk/internal/testutil"
)

// newAPI wires the real service and repository over an in-memory database.
func newAPI(t *testing.T) (*echo.Echo, *repo.Repository) {
	t.Helper()
	r := repo.NewRepository(testutil.NewSQLite(t))
	svc := service.NewService(service.Params{
		Repository: r,
		Config:     config.Config{},
		Logger:     zap.NewNop(),
	})
	return newEcho(svc), r
}

func createOrder(t *testing.T, e *echo.Echo, payload string) dto.OrderResponse {
	t.Helper()
	rec := do(e, http.MethodPost, "/orders", payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var got dto.OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	return got
}

func TestAPICreateAndFetch(t *testing.T) {
	e, r := newAPI(t)

	created := createOrder(t, e, `{
		"customerName": "John Doe",
		"customerEmail": "john@example.com",
		"orderType": "delivery",
		"items": [{"name": "Margherita Pizza", "quantity": 2, "price": 10.99}]
	}`)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, 21.98, created.Total)
	require.Len(t, created.Items, 1)

	stored, err := r.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 1)
	assert.Equal(t, "21.98", stored.Total.StringFixed(2))

	rec := do(e, http.MethodGet, "/orders/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var fetched dto.OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, 21.98, fetched.Total)
	require.Len(t, fetched.Items, 1)
	assert.Equal(t, "Margherita Pizza", fetched.Items[0].Name)
	assert.Equal(t, 2, fetched.Items[0].Quantity)
}

func TestAPIInvalidOrderTypeHasNoSideEffects(t *testing.T) {
	e, r := newAPI(t)

	rec := do(e, http.MethodPost, "/orders", `{"customerName":"A","customerEmail":"a@b.c","orderType":"dine-in","items":[]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	count, err := r.Count(context.Background(), repo.Filter{})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAPIUpdate(t *testing.T) {
	e, r := newAPI(t)
	created := createOrder(t, e, `{"customerName":"A","customerEmail":"a@b.c","orderType":"pickup","items":[]}`)

	rec := do(e, http.MethodPatch, "/orders/"+created.ID, `{"status":"ready"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated dto.OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "ready", updated.Status)
	assert.Zero(t, updated.Total)

	rec = do(e, http.MethodPatch, "/orders/"+created.ID, `{"status":"teleported"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	stored, err := r.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusReady, stored.Status)

	rec = do(e, http.MethodPatch, "/orders/does-not-exist", `{"status":"ready"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Order not found", decodeError(t, rec).Message)
}

func TestAPIListFilters(t *testing.T) {
	e, _ := newAPI(t)

	first := createOrder(t, e, `{"customerName":"Mia","customerEmail":"mia@example.com","orderType":"pickup","items":[{"name":"Caesar Salad","quantity":1,"price":8.99}]}`)
	createOrder(t, e, `{"customerName":"Noah","customerEmail":"noah@example.com","orderType":"delivery","items":[{"name":"Tiramisu","quantity":1,"price":6.99}]}`)
	createOrder(t, e, `{"customerName":"Olivia","customerEmail":"olivia@example.com","orderType":"delivery","items":[]}`)

	rec := do(e, http.MethodPatch, "/orders/"+first.ID, `{"status":"confirmed"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	list := func(query string) dto.OrderListResponse {
		t.Helper()
		rec := do(e, http.MethodGet, "/orders"+query, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var body dto.OrderListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return body
	}

	all := list("")
	assert.Equal(t, 3, all.Total)
	assert.Equal(t, 1, all.TotalPages)
	assert.Len(t, all.Orders, 3)

	confirmed := list("?status=confirmed")
	require.Len(t, confirmed.Orders, 1)
	assert.Equal(t, first.ID, confirmed.Orders[0].ID)

	delivery := list("?orderType=delivery")
	assert.Equal(t, 2, delivery.Total)

	search := list("?search=TIRAMISU")
	require.Len(t, search.Orders, 1)
	assert.Equal(t, "Noah", search.Orders[0].CustomerName)

	paged := list("?limit=2&page=2")
	assert.Equal(t, 3, paged.Total)
	assert.Equal(t, 2, paged.Page)
	assert.Equal(t, 2, paged.TotalPages)
	assert.Len(t, paged.Orders, 1)

	none := list("?status=lost")
	assert.Empty(t, none.Orders)
	assert.Zero(t, none.Total)
}
