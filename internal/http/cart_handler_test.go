package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fjod/medmarket/internal/cart"
	"github.com/fjod/medmarket/internal/catalog"
	"github.com/fjod/medmarket/internal/domain"
	"github.com/fjod/medmarket/internal/format"
	"github.com/fjod/medmarket/internal/metrics"
	"github.com/fjod/medmarket/internal/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCartService keeps one in-memory cart and drives it through the
// aggregator, like the real service does against the repository.
type fakeCartService struct {
	cart     *domain.Cart
	products map[int64]*domain.Product
	err      error
	lastQty  int
}

func newFakeCartService() *fakeCartService {
	return &fakeCartService{
		cart: &domain.Cart{UserID: "42"},
		products: map[int64]*domain.Product{
			1: {ID: 1, Name: "Blood pressure monitor", Price: decimal.RequireFromString("65.50"), Stock: 10},
			2: {ID: 2, Name: "Pulse oximeter", Price: decimal.RequireFromString("172.50"), Stock: 3},
		},
	}
}

func (f *fakeCartService) mutate(fn func(a *cart.Aggregator) error) (*domain.Cart, error) {
	if f.err != nil {
		return nil, f.err
	}
	a := cart.New(f.cart.Items)
	if err := fn(a); err != nil {
		return nil, err
	}
	f.cart.Items = a.Items()
	return f.cart, nil
}

func (f *fakeCartService) GetCart(context.Context, string) (*domain.Cart, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.cart, nil
}

func (f *fakeCartService) AddItem(_ context.Context, _ string, productID int64, quantity int) (*domain.Cart, error) {
	f.lastQty = quantity
	p, ok := f.products[productID]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return f.mutate(func(a *cart.Aggregator) error {
		a.AddOrUpdateItem(domain.LineItem{
			ProductID: p.ID, Name: p.Name, Quantity: quantity, UnitPrice: p.Price, Stock: p.Stock, Selected: true,
		})
		return nil
	})
}

func (f *fakeCartService) Increment(_ context.Context, _ string, productID int64) (*domain.Cart, error) {
	return f.mutate(func(a *cart.Aggregator) error {
		_, err := a.Increment(productID)
		return err
	})
}

func (f *fakeCartService) Decrement(_ context.Context, _ string, productID int64) (*domain.Cart, error) {
	return f.mutate(func(a *cart.Aggregator) error {
		_, err := a.Decrement(productID)
		return err
	})
}

func (f *fakeCartService) SetSelected(_ context.Context, _ string, productID int64, selected bool) (*domain.Cart, error) {
	return f.mutate(func(a *cart.Aggregator) error { return a.SetSelected(productID, selected) })
}

func (f *fakeCartService) RemoveItem(_ context.Context, _ string, productID int64) (*domain.Cart, error) {
	return f.mutate(func(a *cart.Aggregator) error { return a.RemoveItem(productID) })
}

func (f *fakeCartService) ClearCart(context.Context, string) error {
	if f.err != nil {
		return f.err
	}
	if len(f.cart.Items) == 0 {
		return repository.ErrCartNotFound
	}
	f.cart.Items = nil
	return nil
}

type fakeCatalog struct {
	products []*domain.Product
	err      error
}

func (f *fakeCatalog) GetAllProducts(context.Context) ([]*domain.Product, error) {
	return f.products, f.err
}

func (f *fakeCatalog) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, catalog.ErrProductNotFound
}

func newTestServer(svc CartService, cat catalog.ProductReader) http.Handler {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := format.New(format.WithClock(func() time.Time { return now }))
	log := zerolog.Nop()
	return NewRouter(
		NewCartHandler(svc, f, time.Second, log),
		NewProductHandler(cat, f, time.Second, log),
		5*time.Second,
		log,
		nil,
	)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(UserIDHeader, "42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) CartView {
	t.Helper()
	var v CartView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e), rec.Body.String())
	return e
}

func TestGetCart_Empty(t *testing.T) {
	h := newTestServer(newFakeCartService(), &fakeCatalog{})

	rec := do(t, h, http.MethodGet, "/api/v1/cart", "")

	require.Equal(t, http.StatusOK, rec.Code)
	v := decodeCart(t, rec)
	assert.True(t, v.Empty)
	assert.Equal(t, "0.00", v.Total)
	assert.Equal(t, "0 items", v.ItemCountLabel)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestGetCart_Unauthorized(t *testing.T) {
	h := newTestServer(newFakeCartService(), &fakeCatalog{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Code)
}

func TestAddItem_TotalsAcrossItems(t *testing.T) {
	h := newTestServer(newFakeCartService(), &fakeCatalog{})

	rec := do(t, h, http.MethodPost, "/api/v1/cart/items", `{"product_id": 1, "quantity": 2}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, h, http.MethodPost, "/api/v1/cart/items", `{"product_id": 2, "quantity": 1}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	v := decodeCart(t, rec)
	assert.False(t, v.Empty)
	assert.Equal(t, "303.50", v.Total)
	assert.Equal(t, "303.50", v.TotalLabel)
	assert.Equal(t, "2 items", v.ItemCountLabel)
	require.Len(t, v.Items, 2)
	assert.Equal(t, "131.00", v.Items[0].Subtotal)
	assert.True(t, v.Items[0].CanIncrement)
	assert.True(t, v.Items[0].CanDecrement)
	assert.Equal(t, "normal", v.Items[1].State)
}

func TestAddItem_SoftQuantity(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"number", `{"product_id": 1, "quantity": 3}`, 3},
		{"numeric string", `{"product_id": 1, "quantity": "4"}`, 4},
		{"garbage string", `{"product_id": 1, "quantity": "lots"}`, 0},
		{"negative", `{"product_id": 1, "quantity": -2}`, 0},
		{"missing", `{"product_id": 1}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeCartService()
			h := newTestServer(svc, &fakeCatalog{})

			rec := do(t, h, http.MethodPost, "/api/v1/cart/items", tt.body)

			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
			assert.Equal(t, tt.want, svc.lastQty)
		})
	}
}

func TestAddItem_BadRequests(t *testing.T) {
	h := newTestServer(newFakeCartService(), &fakeCatalog{})

	rec := do(t, h, http.MethodPost, "/api/v1/cart/items", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decodeError(t, rec).Code)

	rec = do(t, h, http.MethodPost, "/api/v1/cart/items", `{"product_id": 0, "quantity": 1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_product_id", decodeError(t, rec).Code)
}

func TestAddItem_ProductNotFound(t *testing.T) {
	h := newTestServer(newFakeCartService(), &fakeCatalog{})

	rec := do(t, h, http.MethodPost, "/api/v1/cart/items", `{"product_id": 77, "quantity": 1}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "product_not_found", decodeError(t, rec).Code)
}

func TestStepper_Endpoints(t *testing.T) {
	h := newTestServer(newFakeCartService(), &fakeCatalog{})
	do(t, h, http.MethodPost, "/api/v1/cart/items", `{"product_id": 2, "quantity": 2}`)

	rec := do(t, h, http.MethodPost, "/api/v1/cart/items/2/increment", "")
	require.Equal(t, http.StatusOK, rec.Code)
	v := decodeCart(t, rec)
	assert.Equal(t, 3, v.Items[0].Quantity)
	assert.False(t, v.Items[0].CanIncrement)

	rec = do(t, h, http.MethodPost, "/api/v1/cart/items/2/increment", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decodeCart(t, rec).Items[0].Quantity, "increment past stock is a no-op")

	do(t, h, http.MethodPost, "/api/v1/cart/items/2/decrement", "")
	do(t, h, http.MethodPost, "/api/v1/cart/items/2/decrement", "")
	rec = do(t, h, http.MethodPost, "/api/v1/cart/items/2/decrement", "")
	require.Equal(t, http.StatusOK, rec.Code)
	v = decodeCart(t, rec)
	assert.Equal(t, 1, v.Items[0].Quantity, "decrement below one is a no-op")
	assert.False(t, v.Items[0].CanDecrement)
	assert.Equal(t, "172.50", v.Total)
}

func TestStepper_ItemNotFound(t *testing.T) {
	h := newTestServer(newFakeCartService(), &fakeCatalog{})

	rec := do(t, h, http.MethodPost, "/api/v1/cart/items/9/increment", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "item_not_found", decodeError(t, rec).Code)
}

func TestStepper_InvalidProductID(t *testing.T) {
	h := newTestServer(newFakeCartService(), &fakeCatalog{})

	rec := do(t, h, http.MethodPost, "/api/v1/cart/items/abc/increment", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetSelected_Endpoint(t *testing.T) {
	h := newTestServer(newFakeCartService(), &fakeCatalog{})
	do(t, h, http.MethodPost, "/api/v1/cart/items", `{"product_id": 1, "quantity": 2}`)
	do(t, h, http.MethodPost, "/api/v1/cart/items", `{"product_id": 2, "quantity": 1}`)

	rec := do(t, h, http.MethodPut, "/api/v1/cart/items/2/selection", `{"selected": false}`)

	require.Equal(t, http.StatusOK, rec.Code)
	v := decodeCart(t, rec)
	assert.Equal(t, "131.00", v.Total)
	assert.False(t, v.Items[1].Selected)
	assert.Equal(t, "0.00", v.Items[1].Subtotal)
}

func TestRemoveItem_LastItemEmptiesCart(t *testing.T) {
	h := newTestServer(newFakeCartService(), &fakeCatalog{})
	do(t, h, http.MethodPost, "/api/v1/cart/items", `{"product_id": 1, "quantity": 1}`)

	rec := do(t, h, http.MethodDelete, "/api/v1/cart/items/1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	v := decodeCart(t, rec)
	assert.True(t, v.Empty)
	assert.Equal(t, "0.00", v.Total)
}

func TestClearCart_Endpoint(t *testing.T) {
	h := newTestServer(newFakeCartService(), &fakeCatalog{})
	do(t, h, http.MethodPost, "/api/v1/cart/items", `{"product_id": 1, "quantity": 1}`)

	rec := do(t, h, http.MethodDelete, "/api/v1/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeCart(t, rec).Empty)

	rec = do(t, h, http.MethodDelete, "/api/v1/cart", "")
	assert.Equal(t, http.StatusOK, rec.Code, "clearing an absent cart is fine")
}

func TestServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"breaker open", gobreaker.ErrOpenState, http.StatusServiceUnavailable, "service_unavailable"},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
		{"unknown", errors.New("mongo exploded"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeCartService()
			svc.err = tt.err
			h := newTestServer(svc, &fakeCatalog{})

			rec := do(t, h, http.MethodGet, "/api/v1/cart", "")

			assert.Equal(t, tt.status, rec.Code)
			e := decodeError(t, rec)
			assert.Equal(t, tt.code, e.Code)
			assert.NotContains(t, e.Error, "mongo", "internal errors are not leaked")
		})
	}
}

func TestHealth(t *testing.T) {
	h := newTestServer(newFakeCartService(), &fakeCatalog{})

	rec := do(t, h, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRequestID_IsPropagated(t *testing.T) {
	h := newTestServer(newFakeCartService(), &fakeCatalog{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := format.New(format.WithClock(func() time.Time { return now }))
	m := metrics.New(prometheus.NewRegistry())
	h := NewRouter(
		NewCartHandler(newFakeCartService(), f, time.Second, zerolog.Nop()),
		NewProductHandler(&fakeCatalog{}, f, time.Second, zerolog.Nop()),
		5*time.Second,
		zerolog.Nop(),
		m,
	)

	do(t, h, http.MethodGet, "/api/v1/cart", "")
	rec := do(t, h, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
