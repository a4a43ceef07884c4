// Package compare keeps the bounded product comparison set.
package compare

import (
	"context"
	"slices"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/medsupply-storefront/internal/domain/product"
	"github.com/xenking/medsupply-storefront/internal/notify"
	"github.com/xenking/medsupply-storefront/internal/storage/kv"
)

// MaxEntries is the size limit of the comparison set. A full set rejects
// new entries instead of evicting old ones.
const MaxEntries = 3

// Notification texts shown to the shopper.
const (
	msgAdded    = "Added to compare list"
	msgRemoved  = "Removed from compare list"
	msgCleared  = "Compare list cleared"
	msgExists   = "Product is already in compare list"
	msgLimitHit = "Compare limit reached: you can compare up to 3 products"
)

var (
	// ErrAlreadyInCompare is returned when the product is already compared.
	ErrAlreadyInCompare = errors.New("already in compare list")
	// ErrCompareFull is returned when the set already holds MaxEntries products.
	ErrCompareFull = errors.New("compare limit reached")
	// ErrMissingProductID is returned for products without an identifier.
	ErrMissingProductID = errors.New("product has no id")
)

// Entry is the product snapshot kept for comparison.
type Entry struct {
	ID           string          `json:"_id"`
	Name         string          `json:"name"`
	Image        string          `json:"image"`
	Price        decimal.Decimal `json:"price"`
	Rating       float64         `json:"rating"`
	Category     string          `json:"category"`
	Description  string          `json:"description"`
	CountInStock int             `json:"countInStock"`
}

// EntryFrom snapshots the fields of p used by the comparison table.
func EntryFrom(p product.Product) Entry {
	return Entry{
		ID:           p.ID,
		Name:         p.Name,
		Image:        p.PrimaryImage(),
		Price:        p.Price,
		Rating:       p.Rating,
		Category:     p.Category,
		Description:  p.Description,
		CountInStock: p.CountInStock,
	}
}

// Engine owns the comparison set.
type Engine struct {
	mu       sync.Mutex
	store    kv.Store
	notifier notify.Notifier
	lg       *zap.Logger
	entries  []Entry
}

// New creates an Engine hydrated once from the store.
func New(ctx context.Context, store kv.Store, notifier notify.Notifier, lg *zap.Logger) *Engine {
	if lg == nil {
		lg = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	e := &Engine{store: store, notifier: notifier, lg: lg}

	var entries []Entry
	if _, err := kv.LoadJSON(ctx, store, kv.KeyCompare, &entries); err != nil {
		lg.Warn("Discarding unreadable compare list", zap.Error(err))
		entries = nil
	}
	for _, en := range entries {
		if len(e.entries) == MaxEntries {
			break
		}
		if en.ID == "" || e.index(en.ID) >= 0 {
			continue
		}
		e.entries = append(e.entries, en)
	}
	return e
}

// Add appends p to the set. Duplicates and a full set are rejected with an
// error notification and leave the set unchanged.
func (e *Engine) Add(ctx context.Context, p product.Product) error {
	if p.ID == "" {
		return ErrMissingProductID
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.index(p.ID) >= 0 {
		e.notifier.Notify(ctx, notify.Error(msgExists))
		return ErrAlreadyInCompare
	}
	if len(e.entries) >= MaxEntries {
		e.notifier.Notify(ctx, notify.Error(msgLimitHit))
		return ErrCompareFull
	}

	entries := append(slices.Clone(e.entries), EntryFrom(p))
	if err := e.commit(ctx, entries); err != nil {
		return err
	}
	e.notifier.Notify(ctx, notify.Success(msgAdded))
	return nil
}

// Remove drops id from the set. The notification is emitted even if id was
// not present.
func (e *Engine) Remove(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	entries := slices.DeleteFunc(slices.Clone(e.entries), func(en Entry) bool { return en.ID == id })
	if err := e.commit(ctx, entries); err != nil {
		return err
	}
	e.notifier.Notify(ctx, notify.Info(msgRemoved))
	return nil
}

// Clear empties the set and deletes the persisted record.
func (e *Engine) Clear(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.Remove(ctx, kv.KeyCompare); err != nil {
		e.lg.Error("Remove compare list", zap.Error(err))
		return errors.Wrap(err, "remove compare list")
	}
	e.entries = nil
	e.notifier.Notify(ctx, notify.Info(msgCleared))
	return nil
}

// Contains reports whether id is in the set.
func (e *Engine) Contains(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.index(id) >= 0
}

// Entries returns a copy of the set.
func (e *Engine) Entries() []Entry {
	e.mu.Lock()
	defer e.mu.Unlock()

	return slices.Clone(e.entries)
}

func (e *Engine) index(id string) int {
	return slices.IndexFunc(e.entries, func(en Entry) bool { return en.ID == id })
}

// commit persists entries and then makes them current. On a store error
// the set is left as it was.
func (e *Engine) commit(ctx context.Context, entries []Entry) error {
	stored := entries
	if stored == nil {
		stored = []Entry{}
	}
	if err := kv.SaveJSON(ctx, e.store, kv.KeyCompare, stored); err != nil {
		e.lg.Error("Persist compare list", zap.Error(err))
		return errors.Wrap(err, "persist compare list")
	}
	e.entries = entries
	return nil
}
