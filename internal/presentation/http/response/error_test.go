package response_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderdesk/internal/presentation/http/response"
	"github.com/Additional-Code/orderdesk/pkg/errorbank"
)

func serve(t *testing.T, method string, err error) (*httptest.ResponseRecorder, response.ErrorBody) {
	t.Helper()
	e := echo.New()
	e.HTTPErrorHandler = response.ErrorHandler(zap.NewNop())
	e.Add(method, "/fail", func(c echo.Context) error {
		return response.New(c).WithError(err).Build()
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, "/fail", nil))

	var body response.ErrorBody
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestErrorHandler(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"bad request", errorbank.BadRequest("Invalid order status"), http.StatusBadRequest, "Invalid order status"},
		{"not found", errorbank.NotFound("Order not found"), http.StatusNotFound, "Order not found"},
		{"internal keeps message", errorbank.Internal("failed to list orders", errorbank.WithCause(errors.New("dial tcp"))), http.StatusInternalServerError, "failed to list orders"},
		{"unknown error", errors.New("secret detail"), http.StatusInternalServerError, response.InternalErrorMessage},
		{"echo client error", echo.NewHTTPError(http.StatusUnsupportedMediaType, "unsupported"), http.StatusUnsupportedMediaType, "unsupported"},
		{"echo server error", echo.NewHTTPError(http.StatusBadGateway, "upstream"), http.StatusBadGateway, response.InternalErrorMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := serve(t, http.MethodGet, tc.err)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "error", body.Status)
			assert.Equal(t, tc.message, body.Message)
		})
	}
}

func TestErrorHandlerUnknownRoute(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = response.ErrorHandler(nil)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"status":"error","message":"Not Found"}`, rec.Body.String())
}

func TestErrorHandlerHead(t *testing.T) {
	rec, _ := serve(t, http.MethodHead, errorbank.NotFound("Order not found"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

func TestBuilderSuccess(t *testing.T) {
	e := echo.New()
	e.POST("/ok", func(c echo.Context) error {
		return response.New(c).WithStatus(http.StatusCreated).WithData(map[string]int{"n": 1}).Build()
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ok", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"n":1}`, rec.Body.String())
}
