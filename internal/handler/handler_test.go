package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/xenking/vera-store/internal/domain/asset"
	"github.com/xenking/vera-store/internal/domain/catalog"
	"github.com/xenking/vera-store/internal/domain/checkout"
	"github.com/xenking/vera-store/internal/domain/product"
	"github.com/xenking/vera-store/internal/session"
)

// --- Mock implementations ---

type mockProvider struct {
	err error
}

func (m *mockProvider) Charge(context.Context, checkout.Charge) error {
	return m.err
}

type brokenProducts struct {
	*catalog.Catalog
}

func (brokenProducts) GetByID(context.Context, int) (*product.Product, error) {
	return nil, errors.New("storage offline")
}

// --- Helpers ---

type testEnv struct {
	catalog *catalog.Catalog
	mux     *http.ServeMux
}

type envOption func(*envConfig)

type envConfig struct {
	payments  checkout.PaymentProvider
	maxActive int
	products  func(*catalog.Catalog) Products
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	cfg := envConfig{
		payments: checkout.NoopProvider{},
		products: func(c *catalog.Catalog) Products { return c },
	}
	for _, o := range opts {
		o(&cfg)
	}

	c, err := catalog.Generate(catalog.GeneratorConfig{Size: 300, Seed: 7})
	require.NoError(t, err)

	svc, err := checkout.NewService(cfg.payments, tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
	require.NoError(t, err)

	h, err := NewHandler(HandlerConfig{},
		cfg.products(c),
		session.NewStore(c, session.StoreConfig{MaxActive: cfg.maxActive}),
		svc,
		asset.NewStaticResolver(asset.NewURLBuilder("https://img.test")),
		metricnoop.NewMeterProvider(),
	)
	require.NoError(t, err)

	mux := http.NewServeMux()
	h.Register(mux)
	return &testEnv{catalog: c, mux: mux}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, req)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"), "%s %s", method, path)

	var out map[string]any
	if strings.HasPrefix(strings.TrimSpace(w.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func (e *testEnv) newSession(t *testing.T) string {
	t.Helper()
	code, body := e.do(t, http.MethodPost, "/api/sessions", "")
	require.Equal(t, http.StatusCreated, code)
	id, ok := body["id"].(string)
	require.True(t, ok)
	return id
}

func items(body map[string]any) []map[string]any {
	raw, _ := body["items"].([]any)
	out := make([]map[string]any, len(raw))
	for i, v := range raw {
		out[i], _ = v.(map[string]any)
	}
	return out
}

func (e *testEnv) addItem(t *testing.T, sessionID string, productID int) map[string]any {
	t.Helper()
	code, body := e.do(t, http.MethodPost, "/api/sessions/"+sessionID+"/cart/items", fmt.Sprintf(`{"productId":%d}`, productID))
	require.Equal(t, http.StatusOK, code, "add product %d: %v", productID, body)
	return body
}

func lines(body map[string]any) []map[string]any {
	raw, _ := body["lines"].([]any)
	out := make([]map[string]any, len(raw))
	for i, v := range raw {
		out[i], _ = v.(map[string]any)
	}
	return out
}

// --- Tests ---

func TestListCategories(t *testing.T) {
	env := newTestEnv(t)
	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/categories", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["All","Living Room","Bedroom","Office","Dining","Decor"]`, w.Body.String())
}

func TestListProducts(t *testing.T) {
	env := newTestEnv(t)

	t.Run("default page", func(t *testing.T) {
		code, body := env.do(t, http.MethodGet, "/api/products", "")
		require.Equal(t, http.StatusOK, code)
		assert.EqualValues(t, 300, body["total"])
		assert.EqualValues(t, 48, body["shown"])
		assert.Equal(t, false, body["empty"])
		assert.NotContains(t, body, "message")
		assert.Len(t, items(body), 48)

		first := items(body)[0]
		assert.EqualValues(t, 1, first["id"])
		assert.True(t, strings.HasPrefix(first["image"].(string), "https://img.test/photo-"))
		assert.Equal(t, asset.Fallback(1), first["fallbackImage"])
	})

	t.Run("category and view", func(t *testing.T) {
		code, body := env.do(t, http.MethodGet, "/api/products?category=decor&view=New&limit=300", "")
		require.Equal(t, http.StatusOK, code)

		filter := body["filter"].(map[string]any)
		assert.Equal(t, "Decor", filter["category"])
		assert.Equal(t, "New Arrivals", filter["viewLabel"])
		for _, p := range items(body) {
			assert.Equal(t, "Decor", p["category"])
			assert.Equal(t, true, p["isNew"])
			assert.Zero(t, int(p["id"].(float64))%5)
		}
		assert.EqualValues(t, len(items(body)), body["total"])
	})

	t.Run("search", func(t *testing.T) {
		code, body := env.do(t, http.MethodGet, "/api/products?q=NORDIC&limit=300", "")
		require.Equal(t, http.StatusOK, code)
		require.NotEmpty(t, items(body))
		for _, p := range items(body) {
			assert.Contains(t, strings.ToLower(p["name"].(string)), "nordic")
		}
	})

	t.Run("empty result", func(t *testing.T) {
		code, body := env.do(t, http.MethodGet, "/api/products?q=zzzz", "")
		require.Equal(t, http.StatusOK, code)
		assert.EqualValues(t, 0, body["total"])
		assert.Equal(t, true, body["empty"])
		assert.Equal(t, catalog.EmptyMessage, body["message"])
		assert.Empty(t, items(body))
	})

	for _, query := range []string{"category=Garage", "view=Winter", "limit=abc", "limit=0", "limit=501"} {
		t.Run("bad "+query, func(t *testing.T) {
			code, body := env.do(t, http.MethodGet, "/api/products?"+query, "")
			assert.Equal(t, http.StatusBadRequest, code)
			assert.EqualValues(t, 400, body["code"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestGetProduct(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodGet, "/api/products/40", "")
	require.Equal(t, http.StatusOK, code)
	want, ok := env.catalog.Get(40)
	require.True(t, ok)
	assert.EqualValues(t, 40, body["id"])
	assert.Equal(t, want.Name, body["name"])
	assert.Equal(t, true, body["isNew"])
	assert.Equal(t, true, body["isSummer"])

	code, body = env.do(t, http.MethodGet, "/api/products/9999", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "product not found", body["message"])

	code, _ = env.do(t, http.MethodGet, "/api/products/abc", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestGetProduct_RepositoryError(t *testing.T) {
	env := newTestEnv(t, func(c *envConfig) {
		c.products = func(cat *catalog.Catalog) Products { return brokenProducts{cat} }
	})

	code, body := env.do(t, http.MethodGet, "/api/products/1", "")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal server error", body["message"])
}

func TestCartFlow(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)
	base := "/api/sessions/" + id

	code, body := env.do(t, http.MethodGet, base+"/cart", "")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, lines(body))
	assert.EqualValues(t, 0, body["totalItems"])

	env.addItem(t, id, 1)
	env.addItem(t, id, 1)
	body = env.addItem(t, id, 2)

	p1, _ := env.catalog.Get(1)
	p2, _ := env.catalog.Get(2)
	require.Len(t, lines(body), 2)
	assert.EqualValues(t, 2, lines(body)[0]["quantity"])
	assert.EqualValues(t, 3, body["totalItems"])
	assert.InDelta(t, 2*p1.Price.InexactFloat64()+p2.Price.InexactFloat64(), body["subtotal"], 0.001)

	code, body = env.do(t, http.MethodPatch, base+"/cart/items/0", `{"delta":-5}`)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, lines(body)[0]["quantity"], "quantity floors at one")

	code, body = env.do(t, http.MethodPatch, base+"/cart/items/0", `{"delta":3}`)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 4, lines(body)[0]["quantity"])

	code, body = env.do(t, http.MethodPatch, base+"/cart/items/7", `{"delta":1}`)
	require.Equal(t, http.StatusOK, code, "bad index is a no-op")
	assert.EqualValues(t, 5, body["totalItems"])

	code, body = env.do(t, http.MethodDelete, base+"/cart/items/-1", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, lines(body), 2)

	code, body = env.do(t, http.MethodDelete, base+"/cart/items/0", "")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, lines(body), 1)
	assert.EqualValues(t, 2, lines(body)[0]["product"].(map[string]any)["id"])
	assert.EqualValues(t, 0, lines(body)[0]["index"])

	code, body = env.do(t, http.MethodDelete, base+"/cart", "")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, lines(body))
	assert.EqualValues(t, 0, body["subtotal"])
}

func TestCartScenario(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)

	env.addItem(t, id, 1)
	env.addItem(t, id, 1)
	body := env.addItem(t, id, 2)

	p1, _ := env.catalog.Get(1)
	p2, _ := env.catalog.Get(2)
	want := p1.Price.Mul(decimal.NewFromInt(2)).Add(p2.Price)

	assert.EqualValues(t, 3, body["totalItems"])
	assert.InDelta(t, want.InexactFloat64(), body["subtotal"], 0.001)
	require.Len(t, lines(body), 2)
	assert.EqualValues(t, 1, lines(body)[0]["product"].(map[string]any)["id"])
	assert.EqualValues(t, 2, lines(body)[0]["quantity"])
	assert.EqualValues(t, 2, lines(body)[1]["product"].(map[string]any)["id"])
	assert.EqualValues(t, 1, lines(body)[1]["quantity"])
}

func TestCheckoutFlow(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)
	base := "/api/sessions/" + id

	code, body := env.do(t, http.MethodPost, base+"/checkout", "")
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "cart is empty", body["message"])

	env.addItem(t, id, 10)
	env.addItem(t, id, 10)

	code, body = env.do(t, http.MethodPost, base+"/checkout", "")
	require.Equal(t, http.StatusOK, code)
	p, _ := env.catalog.Get(10)
	assert.NotEmpty(t, body["id"])
	assert.EqualValues(t, 2, body["itemCount"])
	assert.InDelta(t, 2*p.Price.InexactFloat64(), body["total"], 0.001)
	assert.EqualValues(t, 0, body["shipping"])
	assert.Equal(t, checkout.ProcessingMessage, body["message"])
	assert.NotEmpty(t, body["completedAt"])

	_, body = env.do(t, http.MethodGet, base+"/cart", "")
	assert.Empty(t, lines(body), "checkout clears the cart")
}

func TestCheckout_Declined(t *testing.T) {
	env := newTestEnv(t, func(c *envConfig) {
		c.payments = &mockProvider{err: checkout.ErrPaymentDeclined}
	})
	id := env.newSession(t)
	base := "/api/sessions/" + id
	env.addItem(t, id, 3)

	code, body := env.do(t, http.MethodPost, base+"/checkout", "")
	assert.Equal(t, http.StatusPaymentRequired, code)
	assert.Equal(t, "payment declined", body["message"])

	_, body = env.do(t, http.MethodGet, base+"/cart", "")
	assert.Len(t, lines(body), 1, "failed checkout keeps the cart")
}

func TestAddItem_Errors(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)
	path := "/api/sessions/" + id + "/cart/items"

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantMsg  string
	}{
		{name: "unknown product", body: `{"productId":301}`, wantCode: http.StatusUnprocessableEntity, wantMsg: "product 301 not found"},
		{name: "zero id", body: `{"productId":0}`, wantCode: http.StatusBadRequest, wantMsg: "ProductID: failed gt=0"},
		{name: "missing id", body: `{}`, wantCode: http.StatusBadRequest},
		{name: "wrong type", body: `{"productId":"one"}`, wantCode: http.StatusBadRequest},
		{name: "not json", body: `nope`, wantCode: http.StatusBadRequest},
		{name: "too large", body: `{"pad":"` + strings.Repeat("x", maxBodyBytes) + `"}`, wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := env.do(t, http.MethodPost, path, tt.body)
			assert.Equal(t, tt.wantCode, code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, body["message"])
			}
		})
	}

	code, _ := env.do(t, http.MethodPatch, "/api/sessions/"+id+"/cart/items/x", `{"delta":1}`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = env.do(t, http.MethodPatch, "/api/sessions/"+id+"/cart/items/0", `{"delta":5000}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestUnknownSession(t *testing.T) {
	env := newTestEnv(t)
	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/sessions/nope/view", ""},
		{http.MethodGet, "/api/sessions/00000000-0000-0000-0000-000000000000/cart", ""},
		{http.MethodPost, "/api/sessions/nope/cart/items", `{"productId":1}`},
		{http.MethodPost, "/api/sessions/nope/checkout", ""},
	} {
		code, body := env.do(t, tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusNotFound, code, tc.path)
		assert.Equal(t, "session not found", body["message"])
	}
}

func TestSessionView(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)
	base := "/api/sessions/" + id

	code, body := env.do(t, http.MethodGet, base+"/view", "")
	require.Equal(t, http.StatusOK, code)
	filter := body["filter"].(map[string]any)
	assert.Equal(t, "All", filter["category"])
	assert.Equal(t, "All", filter["view"])
	assert.Equal(t, "Shop All", filter["viewLabel"])
	assert.EqualValues(t, 300, body["total"])

	code, body = env.do(t, http.MethodPut, base+"/filter", `{"category":"Office","view":"summer","query":""}`)
	require.Equal(t, http.StatusOK, code)
	filter = body["filter"].(map[string]any)
	assert.Equal(t, "Office", filter["category"])
	assert.Equal(t, "Summer", filter["view"])
	assert.Equal(t, "Collections", filter["viewLabel"])
	for _, p := range items(body) {
		assert.Equal(t, "Office", p["category"])
		assert.Equal(t, true, p["isSummer"])
	}

	_, again := env.do(t, http.MethodGet, base+"/view?limit=2", "")
	assert.Equal(t, body["total"], again["total"], "filter persists in the session")
	assert.LessOrEqual(t, len(items(again)), 2)

	code, _ = env.do(t, http.MethodPut, base+"/filter", `{"view":"Winter"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = env.do(t, http.MethodPut, base+"/filter", `{"query":"`+strings.Repeat("q", 129)+`"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	_, again = env.do(t, http.MethodGet, base+"/view", "")
	assert.Equal(t, "Office", again["filter"].(map[string]any)["category"], "rejected filter is not applied")
}

func TestCreateSession_Capacity(t *testing.T) {
	env := newTestEnv(t, func(c *envConfig) { c.maxActive = 1 })
	env.newSession(t)

	code, body := env.do(t, http.MethodPost, "/api/sessions", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "too many active sessions", body["message"])
}

func TestRequestDecode(t *testing.T) {
	var f filterRequest
	require.NoError(t, f.Decode(jx.DecodeStr(`{"category":"Decor","view":"New","query":"vase","extra":[1,2]}`)))
	assert.Equal(t, filterRequest{Category: "Decor", View: "New", Query: "vase"}, f)

	var a addItemRequest
	require.NoError(t, a.Decode(jx.DecodeStr(`{"productId":12}`)))
	assert.Equal(t, 12, a.ProductID)

	var u updateItemRequest
	require.NoError(t, u.Decode(jx.DecodeStr(`{"delta":-3}`)))
	assert.Equal(t, -3, u.Delta)

	err := a.Decode(jx.DecodeStr(`{"productId":true}`))
	assert.ErrorContains(t, err, `field "productId"`)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{badRequest("bad"), http.StatusBadRequest},
		{&product.ValidationError{Field: "category", Reason: "unknown"}, http.StatusBadRequest},
		{&UnprocessableError{Message: "nope"}, http.StatusUnprocessableEntity},
		{errors.Wrap(session.ErrNotFound, "get"), http.StatusNotFound},
		{errors.Wrap(product.ErrNotFound, "get"), http.StatusNotFound},
		{errors.Wrap(checkout.ErrEmptyCart, "checkout"), http.StatusUnprocessableEntity},
		{errors.Wrap(checkout.ErrPaymentDeclined, "charge"), http.StatusPaymentRequired},
		{session.ErrCapacity, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		code, msg := mapError(tt.err)
		assert.Equal(t, tt.code, code, tt.err.Error())
		assert.NotEmpty(t, msg)
	}
}
