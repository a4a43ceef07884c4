// Package handler exposes the commerce engines to the UI collaborator as a
// small local JSON API.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

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
)

// maxBody bounds request bodies of the local API.
const maxBody = 1 << 20

var errBadRequest = errors.New("malformed request body")

// ProductSource fetches product details from the remote catalog.
type ProductSource interface {
	GetProduct(ctx context.Context, id string) (*product.Product, error)
}

// Deps are the engines of one shopper session.
type Deps struct {
	Session       *session.Manager
	Cart          *cart.Engine
	Compare       *compare.Engine
	Wishlist      *wishlist.Engine
	Catalog       *catalog.Engine
	Checkout      *checkout.Service
	Recent        *recent.Tracker
	Products      ProductSource
	Notifications *notify.Feed
}

// Handler serves the local API.
type Handler struct {
	Deps
}

// New creates a Handler.
func New(deps Deps) *Handler {
	return &Handler{Deps: deps}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/session", h.getSession)
	mux.HandleFunc("POST /api/session", h.login)
	mux.HandleFunc("DELETE /api/session", h.logout)

	mux.HandleFunc("GET /api/cart", h.getCart)
	mux.HandleFunc("POST /api/cart/items", h.addCartItem)
	mux.HandleFunc("PATCH /api/cart/items/{id}", h.updateCartItem)
	mux.HandleFunc("DELETE /api/cart/items/{id}", h.removeCartItem)
	mux.HandleFunc("DELETE /api/cart", h.clearCart)

	mux.HandleFunc("GET /api/compare", h.getCompare)
	mux.HandleFunc("POST /api/compare/{id}", h.addCompare)
	mux.HandleFunc("DELETE /api/compare/{id}", h.removeCompare)
	mux.HandleFunc("DELETE /api/compare", h.clearCompare)

	mux.HandleFunc("GET /api/wishlist", h.getWishlist)
	mux.HandleFunc("POST /api/wishlist/{id}", h.addWishlist)
	mux.HandleFunc("DELETE /api/wishlist/{id}", h.removeWishlist)

	mux.HandleFunc("GET /api/catalog", h.getCatalog)
	mux.HandleFunc("PUT /api/catalog/filter", h.setFilter)
	mux.HandleFunc("DELETE /api/catalog/filter", h.resetFilter)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)
	mux.HandleFunc("GET /api/recent", h.getRecent)

	mux.HandleFunc("GET /api/checkout/quote", h.getQuote)
	mux.HandleFunc("POST /api/checkout/coupon", h.applyCoupon)
	mux.HandleFunc("DELETE /api/checkout/coupon", h.removeCoupon)
	mux.HandleFunc("POST /api/checkout/orders", h.placeOrder)

	mux.HandleFunc("GET /api/notifications", h.getNotifications)
}

// errorResponse is the body of every non-2xx answer.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(errBadRequest, err.Error())
	}
	return nil
}

// writeError maps err to a status code and writes it.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		zctx.From(r.Context()).Warn("Request error",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	writeJSON(w, status, errorResponse{Code: status, Message: msg})
}

func classify(err error) (int, string) {
	var (
		orderErr  *checkout.OrderError
		statusErr *remote.StatusError
		netErr    net.Error
	)
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, cart.ErrMissingProductID),
		errors.Is(err, compare.ErrMissingProductID),
		errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, wishlist.ErrLoginRequired):
		return http.StatusUnauthorized, "You must be logged in"
	case errors.Is(err, product.ErrNotFound):
		return http.StatusNotFound, "Product not found"
	case errors.Is(err, compare.ErrAlreadyInCompare),
		errors.Is(err, compare.ErrCompareFull):
		return http.StatusConflict, err.Error()
	case errors.Is(err, checkout.ErrInvalidCoupon):
		return http.StatusUnprocessableEntity, "Invalid or expired coupon"
	case errors.Is(err, checkout.ErrShippingAddressRequired),
		errors.Is(err, checkout.ErrPaymentMethodRequired),
		errors.Is(err, session.ErrTokenRequired):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.As(err, &orderErr):
		return http.StatusBadGateway, orderErr.Message
	case errors.As(err, &statusErr):
		if msg := statusErr.ServerMessage(); msg != "" {
			return http.StatusBadGateway, msg
		}
		return http.StatusBadGateway, "Upstream service error"
	case errors.As(err, &netErr):
		return http.StatusBadGateway, "Upstream service unavailable"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}

func (h *Handler) getNotifications(w http.ResponseWriter, _ *http.Request) {
	var out []notify.Notification
	if h.Notifications != nil {
		out = h.Notifications.Drain()
	}
	if out == nil {
		out = []notify.Notification{}
	}
	writeJSON(w, http.StatusOK, out)
}
