// Package recent tracks the products a shopper viewed most recently.
package recent

import (
	"context"
	"slices"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/medsupply-storefront/internal/domain/product"
	"github.com/xenking/medsupply-storefront/internal/storage/kv"
)

// Limit is the number of products remembered.
const Limit = 10

// Tracker keeps the most recent views first.
type Tracker struct {
	mu       sync.Mutex
	store    kv.Store
	lg       *zap.Logger
	products []product.Product
}

// New creates a Tracker hydrated from the store. The snapshot list wins;
// ids without a snapshot are dropped.
func New(ctx context.Context, store kv.Store, lg *zap.Logger) *Tracker {
	if lg == nil {
		lg = zap.NewNop()
	}
	t := &Tracker{store: store, lg: lg}

	var products []product.Product
	if _, err := kv.LoadJSON(ctx, store, kv.KeyRecent, &products); err != nil {
		lg.Warn("Discarding unreadable recently viewed list", zap.Error(err))
		products = nil
	}
	for _, p := range products {
		if p.ID == "" || t.index(p.ID) >= 0 {
			continue
		}
		t.products = append(t.products, p)
		if len(t.products) == Limit {
			break
		}
	}
	return t
}

// Track moves p to the front of the list.
func (t *Tracker) Track(ctx context.Context, p product.Product) error {
	if p.ID == "" {
		return nil
	}
	p.Reviews = nil

	t.mu.Lock()
	defer t.mu.Unlock()

	products := slices.Clone(t.products)
	if i := t.index(p.ID); i >= 0 {
		products = slices.Delete(products, i, i+1)
	}
	products = slices.Insert(products, 0, p)
	if len(products) > Limit {
		products = products[:Limit]
	}
	if err := t.persist(ctx, products); err != nil {
		return err
	}
	t.products = products
	return nil
}

// IDs returns the tracked ids, most recent first.
func (t *Tracker) IDs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]string, len(t.products))
	for i, p := range t.products {
		ids[i] = p.ID
	}
	return ids
}

// Products returns the tracked snapshots, most recent first.
func (t *Tracker) Products() []product.Product {
	t.mu.Lock()
	defer t.mu.Unlock()

	return slices.Clone(t.products)
}

func (t *Tracker) index(id string) int {
	return slices.IndexFunc(t.products, func(p product.Product) bool { return p.ID == id })
}

func (t *Tracker) persist(ctx context.Context, products []product.Product) error {
	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	if err := kv.SaveJSON(ctx, t.store, kv.KeyRecentIDs, ids); err != nil {
		return errors.Wrap(err, "persist recently viewed ids")
	}
	if err := kv.SaveJSON(ctx, t.store, kv.KeyRecent, products); err != nil {
		return errors.Wrap(err, "persist recently viewed")
	}
	return nil
}
