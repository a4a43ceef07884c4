package health

import (
	"context"
	"runtime"
	"time"

	"github.com/go-faster/errors"
)

// Pinger is a dependency that can be pinged, such as a state store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck probes p.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return errors.Wrap(err, "ping")
		}
		return nil
	}
}

// GoroutineCountCheck fails when more than threshold goroutines are running.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(_ context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", n, threshold)
		}
		return nil
	}
}

// FreshnessCheck fails when last() is zero or older than maxAge. It is used
// for data refreshed in the background, like the catalog.
func FreshnessCheck(last func() time.Time, maxAge time.Duration) CheckFunc {
	return freshness(last, maxAge, time.Now)
}

func freshness(last func() time.Time, maxAge time.Duration, now func() time.Time) CheckFunc {
	return func(_ context.Context) error {
		t := last()
		if t.IsZero() {
			return errors.New("never refreshed")
		}
		if age := now().Sub(t); age > maxAge {
			return errors.Errorf("last refresh %s ago exceeds %s", age.Round(time.Second), maxAge)
		}
		return nil
	}
}
