package handler

import (
	"net/http"

	"github.com/xenking/medsupply-storefront/internal/domain/compare"
	"github.com/xenking/medsupply-storefront/internal/domain/product"
)

func (h *Handler) compareState() []compare.Entry {
	entries := h.Compare.Entries()
	if entries == nil {
		entries = []compare.Entry{}
	}
	return entries
}

func (h *Handler) getCompare(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.compareState())
}

func (h *Handler) addCompare(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if h.Compare.Contains(id) {
		// No remote fetch needed; Add reports the duplicate.
		writeError(w, r, h.Compare.Add(r.Context(), product.Product{ID: id}))
		return
	}

	p, err := h.Products.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Compare.Add(r.Context(), *p); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.compareState())
}

func (h *Handler) removeCompare(w http.ResponseWriter, r *http.Request) {
	if err := h.Compare.Remove(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.compareState())
}

func (h *Handler) clearCompare(w http.ResponseWriter, r *http.Request) {
	if err := h.Compare.Clear(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.compareState())
}
