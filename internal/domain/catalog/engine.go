// Package catalog turns the shopper's filter into remote catalog queries and
// keeps the displayed result set fresh.
//
// Every filter change starts a new generation and a foreground fetch that
// shows the loading flag. A Refresher (polling by default) triggers
// background fetches of the current filter that silently replace the
// results. A response is applied only if its generation is still current
// and the engine has not been stopped, so a slow response for an older
// filter can never overwrite the results of a newer one.
package catalog

import (
	"context"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/xenking/medsupply-storefront/internal/domain/product"
)

// ErrStale is returned by a fetch whose result was discarded because a newer
// filter was applied or the engine was stopped.
var ErrStale = errors.New("catalog result superseded")

// Source fetches catalog products for a query.
type Source interface {
	ListProducts(ctx context.Context, query url.Values) ([]product.Product, error)
}

// Snapshot is the state displayed by the catalog view.
type Snapshot struct {
	Filter     Filter            `json:"filter"`
	Products   []product.Product `json:"products"`
	Loading    bool              `json:"loading"`
	Generation uint64            `json:"generation"`
	UpdatedAt  time.Time         `json:"updatedAt,omitzero"`
}

// Options configures an Engine.
type Options struct {
	// PriceCeiling is the upper bound of the price slider.
	PriceCeiling decimal.Decimal
	// Refresher drives background fetches. Defaults to a 5s Poller.
	Refresher Refresher
	Logger    *zap.Logger
	Meter     metric.Meter
}

// Engine is the catalog query/sync engine.
type Engine struct {
	source    Source
	refresher Refresher
	ceiling   decimal.Decimal
	lg        *zap.Logger
	fetches   metric.Int64Counter

	mu         sync.Mutex
	filter     Filter
	gen        uint64
	appliedGen uint64
	products   []product.Product
	loading    bool
	updatedAt  time.Time
	stopped    bool
	cancel     context.CancelFunc
	done       chan struct{}
}

// New creates an Engine with the default filter.
func New(source Source, opts Options) (*Engine, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Meter == nil {
		opts.Meter = noop.NewMeterProvider().Meter("")
	}
	if opts.Refresher == nil {
		opts.Refresher = Poller{Interval: DefaultRefreshInterval}
	}

	fetches, err := opts.Meter.Int64Counter("storefront.catalog.fetches",
		metric.WithDescription("Catalog fetches by kind and outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create fetch counter")
	}

	return &Engine{
		source:    source,
		refresher: opts.Refresher,
		ceiling:   opts.PriceCeiling,
		lg:        opts.Logger,
		fetches:   fetches,
	}, nil
}

// Start mounts the engine: it runs a foreground fetch for the current
// filter and then starts the refresher. The refresher runs until Stop is
// called or ctx is cancelled.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return errors.New("catalog engine stopped")
	}
	if e.done != nil {
		e.mu.Unlock()
		return errors.New("catalog engine already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	gen := e.bumpLocked()
	f := e.filter
	e.mu.Unlock()

	err := e.fetch(ctx, gen, f, true)

	go func() {
		defer close(e.done)
		e.refresher.Run(runCtx, func(ctx context.Context) {
			if err := e.Refresh(ctx); err != nil && !errors.Is(err, ErrStale) {
				e.lg.Warn("Background catalog refresh failed", zap.Error(err))
			}
		})
	}()

	if err != nil && !errors.Is(err, ErrStale) {
		return err
	}
	return nil
}

// Stop tears the engine down. The refresher is cancelled and joined, and
// any response still in flight is ignored. Stop is idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopped = true
	e.loading = false
	cancel, done := e.cancel, e.done
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// SetFilter applies f. If it differs from the current filter, a new
// generation starts and a foreground fetch replaces the results.
func (e *Engine) SetFilter(ctx context.Context, f Filter) error {
	f = f.Normalize(e.ceiling)

	e.mu.Lock()
	if f.Equal(e.filter) && e.appliedGen == e.gen {
		e.mu.Unlock()
		return nil
	}
	e.filter = f
	gen := e.bumpLocked()
	e.mu.Unlock()

	return e.fetch(ctx, gen, f, true)
}

// Reset restores the default filter and always forces a foreground fetch.
func (e *Engine) Reset(ctx context.Context) error {
	e.mu.Lock()
	e.filter = Filter{}
	gen := e.bumpLocked()
	e.mu.Unlock()

	return e.fetch(ctx, gen, Filter{}, true)
}

// Refresh re-runs the current query without the loading flag.
func (e *Engine) Refresh(ctx context.Context) error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return ErrStale
	}
	gen, f := e.gen, e.filter
	e.mu.Unlock()

	return e.fetch(ctx, gen, f, false)
}

// Snapshot returns the current displayed state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Snapshot{
		Filter:     e.filter,
		Products:   slices.Clone(e.products),
		Loading:    e.loading,
		Generation: e.gen,
		UpdatedAt:  e.updatedAt,
	}
}

// LastSuccess returns when results were last applied.
func (e *Engine) LastSuccess() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.updatedAt
}

// bumpLocked starts a new generation with the loading flag on.
func (e *Engine) bumpLocked() uint64 {
	e.gen++
	e.loading = true
	return e.gen
}

func (e *Engine) fetch(ctx context.Context, gen uint64, f Filter, foreground bool) error {
	kind := "background"
	if foreground {
		kind = "foreground"
	}

	products, err := e.source.ListProducts(ctx, f.Query())

	e.mu.Lock()
	defer e.mu.Unlock()

	current := !e.stopped && gen == e.gen
	if current && foreground {
		e.loading = false
	}

	switch {
	case !current:
		e.record(ctx, kind, "stale")
		return ErrStale
	case err != nil:
		e.record(ctx, kind, "error")
		return errors.Wrap(err, "list products")
	}

	if products == nil {
		products = []product.Product{}
	}
	e.products = products
	e.appliedGen = gen
	e.updatedAt = time.Now()
	e.record(ctx, kind, "applied")
	return nil
}

func (e *Engine) record(ctx context.Context, kind, outcome string) {
	e.fetches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	))
}
