package handler

import (
	"net/http"
)

type wishlistResponse struct {
	IDs []string `json:"ids"`
}

func (h *Handler) wishlistState() wishlistResponse {
	ids := h.Wishlist.IDs()
	if ids == nil {
		ids = []string{}
	}
	return wishlistResponse{IDs: ids}
}

func (h *Handler) getWishlist(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.wishlistState())
}

func (h *Handler) addWishlist(w http.ResponseWriter, r *http.Request) {
	if err := h.Wishlist.Add(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.wishlistState())
}

func (h *Handler) removeWishlist(w http.ResponseWriter, r *http.Request) {
	if err := h.Wishlist.Remove(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.wishlistState())
}
