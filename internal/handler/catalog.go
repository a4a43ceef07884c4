package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/medsupply-storefront/internal/domain/catalog"
	"github.com/xenking/medsupply-storefront/internal/domain/product"
)

func (h *Handler) getCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Catalog.Snapshot())
}

func (h *Handler) setFilter(w http.ResponseWriter, r *http.Request) {
	var f catalog.Filter
	if err := readJSON(r, &f); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeCatalog(w, r, h.Catalog.SetFilter(r.Context(), f))
}

func (h *Handler) resetFilter(w http.ResponseWriter, r *http.Request) {
	h.writeCatalog(w, r, h.Catalog.Reset(r.Context()))
}

// writeCatalog answers with the current snapshot. A superseded fetch is not
// an error for the caller: a newer one owns the results.
func (h *Handler) writeCatalog(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil && !errors.Is(err, catalog.ErrStale) {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Catalog.Snapshot())
}

// getProduct returns the product detail and records the view.
func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Products.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if h.Recent != nil {
		if err := h.Recent.Track(r.Context(), *p); err != nil {
			zctx.From(r.Context()).Warn("Track recently viewed", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) getRecent(w http.ResponseWriter, _ *http.Request) {
	products := []product.Product{}
	if h.Recent != nil {
		products = append(products, h.Recent.Products()...)
	}
	writeJSON(w, http.StatusOK, products)
}
