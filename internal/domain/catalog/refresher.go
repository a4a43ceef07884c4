package catalog

import (
	"context"
	"time"
)

// DefaultRefreshInterval is the background polling period.
const DefaultRefreshInterval = 5 * time.Second

// Refresher decides when background refreshes happen. Run blocks until ctx
// is done and calls refresh for every refresh it triggers.
//
// Polling is the default. A push-based implementation can replace it
// without touching the engine.
type Refresher interface {
	Run(ctx context.Context, refresh func(ctx context.Context))
}

// Poller triggers a refresh every Interval.
type Poller struct {
	Interval time.Duration
}

var _ Refresher = Poller{}

func (p Poller) Run(ctx context.Context, refresh func(ctx context.Context)) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh(ctx)
		}
	}
}

// ManualRefresher triggers a refresh for every value sent on its channel.
// It is used by tests and by callers that receive change notifications.
type ManualRefresher chan struct{}

var _ Refresher = ManualRefresher(nil)

func (m ManualRefresher) Run(ctx context.Context, refresh func(ctx context.Context)) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-m:
			if !ok {
				return
			}
			refresh(ctx)
		}
	}
}
