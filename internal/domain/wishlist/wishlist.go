// Package wishlist caches the shopper's server-side wishlist as a set of
// product ids.
//
// The remote service is the source of truth. Local membership changes only
// after the remote call succeeds. Each mutation is tagged with a per-id
// sequence number and each session change bumps an epoch; a response is
// applied only while both are still current, so the latest request for an
// id always wins and responses from a previous session are dropped.
package wishlist

import (
	"context"
	"slices"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/medsupply-storefront/internal/domain/product"
	"github.com/xenking/medsupply-storefront/internal/domain/session"
	"github.com/xenking/medsupply-storefront/internal/notify"
)

const msgLoginRequired = "You must be logged in to use the wishlist"

// ErrLoginRequired is returned when a mutation is attempted without a session.
var ErrLoginRequired = errors.New("must be logged in")

// Remote is the wishlist part of the remote service.
type Remote interface {
	ListWishlist(ctx context.Context) ([]product.Product, error)
	AddToWishlist(ctx context.Context, productID string) error
	RemoveFromWishlist(ctx context.Context, productID string) error
}

// Authenticator reports whether a session is present.
type Authenticator interface {
	Authenticated() bool
}

// Engine is the local wishlist cache.
type Engine struct {
	remote   Remote
	auth     Authenticator
	notifier notify.Notifier
	lg       *zap.Logger

	mu      sync.Mutex
	ids     []string
	epoch   uint64
	seq     uint64
	pending map[string]uint64
}

// New creates an empty Engine. Call HandleSession (or subscribe it to the
// session manager) to hydrate it.
func New(remote Remote, auth Authenticator, notifier notify.Notifier, lg *zap.Logger) *Engine {
	if lg == nil {
		lg = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Engine{
		remote:   remote,
		auth:     auth,
		notifier: notifier,
		lg:       lg,
		pending:  make(map[string]uint64),
	}
}

// HandleSession reacts to a session change. The local set is cleared
// first; a present user then triggers a full refetch, while an absent user
// needs no remote call. A failed fetch leaves the set empty. It has the
// session.Observer signature.
func (e *Engine) HandleSession(ctx context.Context, u *session.User) {
	e.mu.Lock()
	e.epoch++
	epoch := e.epoch
	clear(e.pending)
	e.ids = nil
	e.mu.Unlock()

	if u == nil {
		return
	}

	products, err := e.remote.ListWishlist(ctx)
	if err != nil {
		e.lg.Warn("Fetch wishlist", zap.Error(err))
		return
	}

	ids := make([]string, 0, len(products))
	for _, p := range products {
		if p.ID != "" && !slices.Contains(ids, p.ID) {
			ids = append(ids, p.ID)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.epoch != epoch {
		e.lg.Debug("Dropping stale wishlist fetch")
		return
	}
	e.ids = ids
}

// Add adds id on the server and, once confirmed, to the local set.
func (e *Engine) Add(ctx context.Context, id string) error {
	return e.mutate(ctx, id, true)
}

// Remove removes id on the server and, once confirmed, from the local set.
func (e *Engine) Remove(ctx context.Context, id string) error {
	return e.mutate(ctx, id, false)
}

// Toggle adds id when absent and removes it when present.
func (e *Engine) Toggle(ctx context.Context, id string) error {
	if e.Contains(id) {
		return e.Remove(ctx, id)
	}
	return e.Add(ctx, id)
}

// Contains reports cached membership of id. Without a live session nothing
// is a member, even if the token expired without a logout.
func (e *Engine) Contains(id string) bool {
	if !e.authenticated() {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return slices.Contains(e.ids, id)
}

// IDs returns a copy of the cached set, or nil without a live session.
func (e *Engine) IDs() []string {
	if !e.authenticated() {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return slices.Clone(e.ids)
}

func (e *Engine) authenticated() bool {
	return e.auth != nil && e.auth.Authenticated()
}

func (e *Engine) mutate(ctx context.Context, id string, add bool) error {
	if !e.authenticated() {
		e.notifier.Notify(ctx, notify.Error(msgLoginRequired))
		return ErrLoginRequired
	}

	e.mu.Lock()
	e.seq++
	tag := e.seq
	epoch := e.epoch
	e.pending[id] = tag
	e.mu.Unlock()

	var err error
	if add {
		err = e.remote.AddToWishlist(ctx, id)
	} else {
		err = e.remote.RemoveFromWishlist(ctx, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.epoch == epoch && e.pending[id] == tag
	if current {
		delete(e.pending, id)
	}
	if err != nil {
		e.lg.Warn("Wishlist request failed",
			zap.String("product_id", id),
			zap.Bool("add", add),
			zap.Error(err),
		)
		if !current {
			return nil
		}
		return errors.Wrap(err, "update wishlist")
	}
	if !current {
		e.lg.Debug("Dropping superseded wishlist response", zap.String("product_id", id))
		return nil
	}

	switch {
	case add && !slices.Contains(e.ids, id):
		e.ids = append(e.ids, id)
	case !add:
		e.ids = slices.DeleteFunc(e.ids, func(v string) bool { return v == id })
	}
	return nil
}
