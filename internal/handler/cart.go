package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/xenking/medsupply-storefront/internal/domain/cart"
)

type cartResponse struct {
	Lines    []cart.Line     `json:"lines"`
	Count    int             `json:"count"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type addCartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) cartState() cartResponse {
	lines := h.Cart.Lines()
	if lines == nil {
		lines = []cart.Line{}
	}
	return cartResponse{
		Lines:    lines,
		Count:    h.Cart.Count(),
		Subtotal: h.Cart.Subtotal(),
	}
}

func (h *Handler) getCart(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.cartState())
}

// addCartItem fetches the product so the line snapshots its current price.
func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ProductID == "" {
		writeError(w, r, cart.ErrMissingProductID)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	p, err := h.Products.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Cart.Add(r.Context(), *p, req.Quantity); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.cartState())
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Cart.UpdateQuantity(r.Context(), r.PathValue("id"), req.Quantity); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.cartState())
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	if err := h.Cart.Remove(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.cartState())
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.Cart.Clear(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.cartState())
}
