package cart

import (
	"context"
	"slices"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/medsupply-storefront/internal/domain/product"
	"github.com/xenking/medsupply-storefront/internal/storage/kv"
)

// ErrMissingProductID is returned when a product without an identifier is
// added. The cart is left unchanged.
var ErrMissingProductID = errors.New("product has no id")

// Line is one product entry in the cart. Price is the unit price captured
// when the line was created and is never refreshed from the catalog.
type Line struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image"`
	Quantity int             `json:"quantity"`
}

// Total returns price * quantity for the line.
func (l Line) Total() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Engine owns the shopping basket. Lines keep insertion order and are unique
// by product id. Every mutation re-persists the whole cart and takes effect
// in memory only once the store accepted it.
type Engine struct {
	mu    sync.Mutex
	store kv.Store
	lg    *zap.Logger
	lines []Line
}

// New creates an Engine hydrated from the store. A missing or unreadable
// record yields an empty cart.
func New(ctx context.Context, store kv.Store, lg *zap.Logger) *Engine {
	if lg == nil {
		lg = zap.NewNop()
	}
	e := &Engine{store: store, lg: lg}

	var lines []Line
	if _, err := kv.LoadJSON(ctx, store, kv.KeyCart, &lines); err != nil {
		lg.Warn("Discarding unreadable cart", zap.Error(err))
		lines = nil
	}
	for _, l := range lines {
		if l.ID == "" || e.index(l.ID) >= 0 {
			continue
		}
		l.Quantity = max(1, l.Quantity)
		e.lines = append(e.lines, l)
	}
	return e
}

// Add puts qty units of p into the cart. An existing line only has its
// quantity increased; its price snapshot stays as first recorded.
func (e *Engine) Add(ctx context.Context, p product.Product, qty int) error {
	if p.ID == "" {
		e.lg.Warn("Ignoring add to cart for product without id", zap.String("name", p.Name))
		return ErrMissingProductID
	}
	qty = max(1, qty)

	e.mu.Lock()
	defer e.mu.Unlock()

	lines := slices.Clone(e.lines)
	if i := e.index(p.ID); i >= 0 {
		lines[i].Quantity += qty
	} else {
		lines = append(lines, Line{
			ID:       p.ID,
			Name:     p.Name,
			Price:    p.Price,
			Image:    p.PrimaryImage(),
			Quantity: qty,
		})
	}
	return e.commit(ctx, lines)
}

// Remove drops the line for id. Unknown ids are a no-op.
func (e *Engine) Remove(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.index(id)
	if i < 0 {
		return nil
	}
	return e.commit(ctx, slices.Delete(slices.Clone(e.lines), i, i+1))
}

// UpdateQuantity sets the quantity of the line for id to max(1, qty). It
// never removes the line. Unknown ids are a no-op.
func (e *Engine) UpdateQuantity(ctx context.Context, id string, qty int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.index(id)
	if i < 0 {
		return nil
	}
	lines := slices.Clone(e.lines)
	lines[i].Quantity = max(1, qty)
	return e.commit(ctx, lines)
}

// Clear empties the cart.
func (e *Engine) Clear(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.commit(ctx, nil)
}

// Lines returns a copy of the cart lines in insertion order.
func (e *Engine) Lines() []Line {
	e.mu.Lock()
	defer e.mu.Unlock()

	return slices.Clone(e.lines)
}

// Count returns the total number of units in the cart.
func (e *Engine) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for _, l := range e.lines {
		n += l.Quantity
	}
	return n
}

// Subtotal returns the sum of price * quantity over all lines.
func (e *Engine) Subtotal() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()

	sum := decimal.Zero
	for _, l := range e.lines {
		sum = sum.Add(l.Total())
	}
	return sum
}

func (e *Engine) index(id string) int {
	return slices.IndexFunc(e.lines, func(l Line) bool { return l.ID == id })
}

// commit persists lines and then makes them current. On a store error the
// cart is left as it was. Must be called with e.mu held.
func (e *Engine) commit(ctx context.Context, lines []Line) error {
	stored := lines
	if stored == nil {
		stored = []Line{}
	}
	if err := kv.SaveJSON(ctx, e.store, kv.KeyCart, stored); err != nil {
		e.lg.Error("Persist cart", zap.Error(err))
		return errors.Wrap(err, "persist cart")
	}
	e.lines = lines
	return nil
}
