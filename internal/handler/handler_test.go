package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/medsupply-storefront/internal/domain/cart"
	"github.com/xenking/medsupply-storefront/internal/domain/catalog"
	"github.com/xenking/medsupply-storefront/internal/domain/checkout"
	"github.com/xenking/medsupply-storefront/internal/domain/compare"
	"github.com/xenking/medsupply-storefront/internal/domain/product"
	"github.com/xenking/medsupply-storefront/internal/domain/recent"
	"github.com/xenking/medsupply-storefront/internal/domain/session"
	"github.com/xenking/medsupply-storefront/internal/domain/wishlist"
	"github.com/xenking/medsupply-storefront/internal/notify"
	"github.com/xenking/medsupply-storefront/internal/remote"
	"github.com/xenking/medsupply-storefront/internal/storage/kv"
)

// fakeRemote stands in for the remote catalog/order service.
type fakeRemote struct {
	mu       sync.Mutex
	products []product.Product
	wishlist []string
	orders   []checkout.OrderPayload
	orderErr error
}

func (f *fakeRemote) find(id string) (product.Product, bool) {
	i := slices.IndexFunc(f.products, func(p product.Product) bool { return p.ID == id })
	if i < 0 {
		return product.Product{}, false
	}
	return f.products[i], true
}

func (f *fakeRemote) GetProduct(_ context.Context, id string) (*product.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.find(id)
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (f *fakeRemote) ListProducts(_ context.Context, q url.Values) ([]product.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	search := strings.ToLower(q.Get("search"))
	var out []product.Product
	for _, p := range f.products {
		if search == "" || strings.Contains(strings.ToLower(p.Name), search) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRemote) ListWishlist(context.Context) ([]product.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]product.Product, 0, len(f.wishlist))
	for _, id := range f.wishlist {
		out = append(out, product.Product{ID: id})
	}
	return out, nil
}

func (f *fakeRemote) AddToWishlist(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.wishlist = append(f.wishlist, id)
	return nil
}

func (f *fakeRemote) RemoveFromWishlist(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.wishlist = slices.DeleteFunc(f.wishlist, func(v string) bool { return v == id })
	return nil
}

func (f *fakeRemote) ValidateCoupon(_ context.Context, code string) (*checkout.Coupon, error) {
	if code != "SAVE20" {
		return nil, checkout.ErrInvalidCoupon
	}
	return &checkout.Coupon{Code: code, DiscountPercentage: decimal.NewFromInt(20)}, nil
}

func (f *fakeRemote) CreateOrder(_ context.Context, p checkout.OrderPayload) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.orderErr != nil {
		return "", f.orderErr
	}
	f.orders = append(f.orders, p)
	return "order-1", nil
}

type testAPI struct {
	mux    *http.ServeMux
	remote *fakeRemote
	deps   Deps
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()

	fr := &fakeRemote{products: []product.Product{
		{ID: "p1", Name: "Nitrile Gloves", Price: decimal.NewFromInt(10), CountInStock: 5},
		{ID: "p2", Name: "Surgical Masks", Price: decimal.RequireFromString("4.99"), CountInStock: 5},
		{ID: "p3", Name: "Gauze Pads", Price: decimal.NewFromInt(3), CountInStock: 5},
		{ID: "p4", Name: "Digital Thermometer", Price: decimal.NewFromInt(20), CountInStock: 0},
	}}

	store := kv.NewMemory()
	feed := notify.NewFeed(nil, 10)
	sess := session.New(ctx, store, nil)
	c := cart.New(ctx, store, nil)
	wl := wishlist.New(fr, sess, feed, nil)
	sess.Subscribe(wl.HandleSession)

	cat, err := catalog.New(fr, catalog.Options{Refresher: make(catalog.ManualRefresher)})
	require.NoError(t, err)
	require.NoError(t, cat.Start(ctx))
	t.Cleanup(cat.Stop)

	deps := Deps{
		Session:       sess,
		Cart:          c,
		Compare:       compare.New(ctx, store, feed, nil),
		Wishlist:      wl,
		Catalog:       cat,
		Checkout:      checkout.NewService(c, fr, fr, checkout.Options{}),
		Recent:        recent.New(ctx, store, nil),
		Products:      fr,
		Notifications: feed,
	}
	mux := http.NewServeMux()
	New(deps).Register(mux)

	return &testAPI{mux: mux, remote: fr, deps: deps}
}

func (a *testAPI) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()
	a.mux.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 && strings.HasPrefix(strings.TrimSpace(w.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func TestCartFlow(t *testing.T) {
	api := newTestAPI(t)

	code, body := api.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1","quantity":2}`)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, body["count"])
	assert.Equal(t, "20", body["subtotal"])

	code, body = api.do(t, http.MethodPatch, "/api/cart/items/p1", `{"quantity":0}`)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["count"], "quantity floors at 1")

	code, body = api.do(t, http.MethodGet, "/api/checkout/quote", "")
	require.Equal(t, http.StatusOK, code)
	pricing := body["pricing"].(map[string]any)
	assert.Equal(t, "25", pricing["shippingCost"])
	assert.Equal(t, "35", pricing["total"])

	code, body = api.do(t, http.MethodDelete, "/api/cart/items/p1", "")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 0, body["count"])
}

func TestCart_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{name: "malformed body", body: `{`, wantCode: http.StatusBadRequest},
		{name: "missing product id", body: `{"quantity":1}`, wantCode: http.StatusBadRequest},
		{name: "unknown product", body: `{"productId":"nope"}`, wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)

			code, body := api.do(t, http.MethodPost, "/api/cart/items", tt.body)
			assert.Equal(t, tt.wantCode, code)
			assert.EqualValues(t, tt.wantCode, body["code"])
			assert.Empty(t, api.deps.Cart.Lines())
		})
	}
}

func TestCompare_Limit(t *testing.T) {
	api := newTestAPI(t)

	for _, id := range []string{"p1", "p2", "p3"} {
		code, _ := api.do(t, http.MethodPost, "/api/compare/"+id, "")
		require.Equal(t, http.StatusOK, code)
	}

	code, _ := api.do(t, http.MethodPost, "/api/compare/p4", "")
	assert.Equal(t, http.StatusConflict, code)
	code, _ = api.do(t, http.MethodPost, "/api/compare/p1", "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Len(t, api.deps.Compare.Entries(), 3)

	notes := api.deps.Notifications.Drain()
	require.Len(t, notes, 5)
	assert.Equal(t, notify.LevelError, notes[3].Level)
	assert.Equal(t, notify.LevelError, notes[4].Level)

	code, _ = api.do(t, http.MethodDelete, "/api/compare", "")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, api.deps.Compare.Entries())
}

func TestWishlist_RequiresSession(t *testing.T) {
	api := newTestAPI(t)

	code, _ := api.do(t, http.MethodPost, "/api/wishlist/p1", "")
	assert.Equal(t, http.StatusUnauthorized, code)

	api.remote.wishlist = []string{"p3"}
	code, body := api.do(t, http.MethodPost, "/api/session", `{"_id":"u1","name":"Nurse Joy","token":"opaque"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["authenticated"])
	user := body["user"].(map[string]any)
	assert.NotContains(t, user, "token")

	code, body = api.do(t, http.MethodPost, "/api/wishlist/p1", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{"p3", "p1"}, body["ids"])

	code, _ = api.do(t, http.MethodDelete, "/api/session", "")
	require.Equal(t, http.StatusNoContent, code)
	assert.Empty(t, api.deps.Wishlist.IDs())
}

func TestCatalog_Filter(t *testing.T) {
	api := newTestAPI(t)

	code, body := api.do(t, http.MethodGet, "/api/catalog", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["products"], 4)

	code, body = api.do(t, http.MethodPut, "/api/catalog/filter", `{"searchText":"gauze","priceMax":"0"}`)
	require.Equal(t, http.StatusOK, code)
	products := body["products"].([]any)
	require.Len(t, products, 1)
	assert.Equal(t, "p3", products[0].(map[string]any)["_id"])
	assert.Equal(t, false, body["loading"])

	code, body = api.do(t, http.MethodDelete, "/api/catalog/filter", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["products"], 4)
}

func TestProductDetail_TracksRecent(t *testing.T) {
	api := newTestAPI(t)

	code, body := api.do(t, http.MethodGet, "/api/products/p2", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Surgical Masks", body["name"])

	code, _ = api.do(t, http.MethodGet, "/api/products/missing", "")
	assert.Equal(t, http.StatusNotFound, code)

	assert.Equal(t, []string{"p2"}, api.deps.Recent.IDs())
}

func TestCheckout(t *testing.T) {
	api := newTestAPI(t)
	code, _ := api.do(t, http.MethodPost, "/api/cart/items", `{"productId":"p1","quantity":10}`)
	require.Equal(t, http.StatusOK, code)

	code, body := api.do(t, http.MethodPost, "/api/checkout/coupon", `{"code":"BOGUS"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "Invalid or expired coupon", body["message"])

	code, body = api.do(t, http.MethodPost, "/api/checkout/coupon", `{"code":"SAVE20"}`)
	require.Equal(t, http.StatusOK, code)
	pricing := body["pricing"].(map[string]any)
	assert.Equal(t, "20", pricing["discountAmount"])
	assert.Equal(t, "105", pricing["total"])

	order := `{"shippingAddress":{"address":"1 Main St","city":"Springfield","postalCode":"12345","country":"US"},"paymentMethod":"PayPal"}`

	code, _ = api.do(t, http.MethodPost, "/api/checkout/orders", `{"paymentMethod":"PayPal"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	api.remote.orderErr = &remote.StatusError{StatusCode: http.StatusBadRequest, Message: "Nitrile Gloves is out of stock"}
	code, body = api.do(t, http.MethodPost, "/api/checkout/orders", order)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "Nitrile Gloves is out of stock", body["message"])
	assert.Len(t, api.deps.Cart.Lines(), 1, "cart kept after failure")

	api.remote.orderErr = nil
	code, body = api.do(t, http.MethodPost, "/api/checkout/orders", order)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "order-1", body["id"])
	assert.Empty(t, api.deps.Cart.Lines())
	assert.Nil(t, api.deps.Checkout.AppliedCoupon())

	require.Len(t, api.remote.orders, 1)
	assert.Equal(t, "SAVE20", api.remote.orders[0].CouponCode)
	assert.InDelta(t, 105.0, api.remote.orders[0].TotalPrice, 0.001)

	code, _ = api.do(t, http.MethodPost, "/api/checkout/orders", order)
	assert.Equal(t, http.StatusBadRequest, code, "empty cart")
}
