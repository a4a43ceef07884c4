package handler

import (
	"net/http"

	"github.com/xenking/medsupply-storefront/internal/domain/checkout"
)

type quoteResponse struct {
	Pricing checkout.Result  `json:"pricing"`
	Coupon  *checkout.Coupon `json:"coupon,omitempty"`
}

type couponRequest struct {
	Code string `json:"code"`
}

func (h *Handler) quote() quoteResponse {
	return quoteResponse{
		Pricing: h.Checkout.Quote(),
		Coupon:  h.Checkout.AppliedCoupon(),
	}
}

func (h *Handler) getQuote(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.quote())
}

func (h *Handler) applyCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.Checkout.ApplyCoupon(r.Context(), req.Code); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.quote())
}

func (h *Handler) removeCoupon(w http.ResponseWriter, _ *http.Request) {
	h.Checkout.RemoveCoupon()
	writeJSON(w, http.StatusOK, h.quote())
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req checkout.PlaceOrderRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	placed, err := h.Checkout.PlaceOrder(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, placed)
}
