package catalog

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/medsupply-storefront/internal/domain/product"
)

// fakeSource answers by the "search" query value. A gate registered for a
// search value blocks the next matching call until it is closed.
type fakeSource struct {
	mu      sync.Mutex
	results map[string][]product.Product
	errs    map[string]error
	gates   map[string]chan struct{}
	started chan string
	calls   int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		results: map[string][]product.Product{},
		errs:    map[string]error{},
		gates:   map[string]chan struct{}{},
		started: make(chan string, 16),
	}
}

func (s *fakeSource) gate(search string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan struct{})
	s.gates[search] = ch
	return ch
}

func (s *fakeSource) set(search string, ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		products = append(products, product.Product{ID: id})
	}
	s.results[search] = products
}

func (s *fakeSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *fakeSource) ListProducts(ctx context.Context, q url.Values) ([]product.Product, error) {
	key := q.Get("search")

	s.mu.Lock()
	s.calls++
	gate := s.gates[key]
	delete(s.gates, key)
	s.mu.Unlock()

	s.started <- key
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results[key], s.errs[key]
}

func ids(products []product.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func startEngine(t *testing.T, src *fakeSource) (*Engine, ManualRefresher) {
	t.Helper()

	trigger := make(ManualRefresher)
	e, err := New(src, Options{Refresher: trigger})
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background()))
	<-src.started
	t.Cleanup(e.Stop)
	return e, trigger
}

func TestEngine_Start(t *testing.T) {
	src := newFakeSource()
	src.set("", "a", "b")

	e, _ := startEngine(t, src)

	snap := e.Snapshot()
	assert.Equal(t, []string{"a", "b"}, ids(snap.Products))
	assert.False(t, snap.Loading)
	assert.False(t, snap.UpdatedAt.IsZero())
	assert.Equal(t, uint64(1), snap.Generation)
}

func TestEngine_SetFilter(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	src.set("", "a")
	src.set("gauze", "g1")

	e, _ := startEngine(t, src)

	require.NoError(t, e.SetFilter(ctx, Filter{Search: " gauze "}))
	<-src.started
	snap := e.Snapshot()
	assert.Equal(t, []string{"g1"}, ids(snap.Products))
	assert.Equal(t, "gauze", snap.Filter.Search)

	// Same filter after normalization is a no-op.
	calls := src.callCount()
	require.NoError(t, e.SetFilter(ctx, Filter{Search: "gauze"}))
	assert.Equal(t, calls, src.callCount())
}

func TestEngine_ResetAlwaysFetches(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	src.set("", "a")

	e, _ := startEngine(t, src)
	calls := src.callCount()

	require.NoError(t, e.Reset(ctx))
	<-src.started
	require.NoError(t, e.Reset(ctx))
	<-src.started

	assert.Equal(t, calls+2, src.callCount())
	assert.Equal(t, Filter{}, e.Snapshot().Filter)
}

func TestEngine_FetchErrorKeepsResults(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	src.set("", "a")
	src.errs["bad"] = errors.New("boom")

	e, _ := startEngine(t, src)

	err := e.SetFilter(ctx, Filter{Search: "bad"})
	<-src.started
	require.Error(t, err)

	snap := e.Snapshot()
	assert.Equal(t, []string{"a"}, ids(snap.Products))
	assert.False(t, snap.Loading)

	// A failed load is retried even though the filter is unchanged.
	src.mu.Lock()
	delete(src.errs, "bad")
	src.mu.Unlock()
	src.set("bad", "b")
	require.NoError(t, e.SetFilter(ctx, Filter{Search: "bad"}))
	<-src.started
	assert.Equal(t, []string{"b"}, ids(e.Snapshot().Products))
}

func TestEngine_BackgroundRefresh(t *testing.T) {
	src := newFakeSource()
	src.set("", "a")

	e, trigger := startEngine(t, src)

	src.set("", "a", "new")
	trigger <- struct{}{}
	<-src.started

	require.Eventually(t, func() bool {
		return len(e.Snapshot().Products) == 2
	}, time.Second, time.Millisecond)
	assert.False(t, e.Snapshot().Loading)
}

func TestEngine_StaleBackgroundResponse(t *testing.T) {
	for _, tt := range []struct {
		name       string
		staleFirst bool
	}{
		{name: "new response first", staleFirst: false},
		{name: "stale response first", staleFirst: true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			src := newFakeSource()
			src.set("", "a")
			src.set("f1", "one")
			src.set("f2", "two")

			e, _ := startEngine(t, src)
			require.NoError(t, e.SetFilter(ctx, Filter{Search: "f1"}))
			<-src.started

			// Background refresh for F1 is in flight.
			staleGate := src.gate("f1")
			staleDone := make(chan error, 1)
			go func() { staleDone <- e.Refresh(ctx) }()
			require.Equal(t, "f1", <-src.started)

			// F2 is applied while it is still pending.
			freshGate := src.gate("f2")
			freshDone := make(chan error, 1)
			go func() { freshDone <- e.SetFilter(ctx, Filter{Search: "f2"}) }()
			require.Equal(t, "f2", <-src.started)
			assert.True(t, e.Snapshot().Loading)

			if tt.staleFirst {
				close(staleGate)
				require.ErrorIs(t, <-staleDone, ErrStale)
				close(freshGate)
				require.NoError(t, <-freshDone)
			} else {
				close(freshGate)
				require.NoError(t, <-freshDone)
				close(staleGate)
				require.ErrorIs(t, <-staleDone, ErrStale)
			}

			snap := e.Snapshot()
			assert.Equal(t, []string{"two"}, ids(snap.Products))
			assert.Equal(t, "f2", snap.Filter.Search)
			assert.False(t, snap.Loading)
		})
	}
}

func TestEngine_StopDiscardsInFlight(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	src.set("", "a")

	e, _ := startEngine(t, src)

	src.set("", "late")
	gate := src.gate("")
	done := make(chan error, 1)
	go func() { done <- e.Refresh(ctx) }()
	<-src.started

	e.Stop()
	e.Stop()
	close(gate)

	require.ErrorIs(t, <-done, ErrStale)
	assert.Equal(t, []string{"a"}, ids(e.Snapshot().Products))
	require.ErrorIs(t, e.Refresh(ctx), ErrStale)
	require.Error(t, e.Start(ctx))
}

func TestPoller(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var n atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		Poller{Interval: 5 * time.Millisecond}.Run(ctx, func(context.Context) { n.Add(1) })
	}()

	require.Eventually(t, func() bool { return n.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}
