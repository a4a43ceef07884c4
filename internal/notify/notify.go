// Package notify delivers transient user-visible notifications (toasts) from
// the commerce engines to the UI collaborator.
package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Level is the severity of a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// Notification is a single message for the shopper.
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notifier receives notifications. Implementations must not block.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Success is shorthand for a success notification.
func Success(msg string) Notification { return Notification{Level: LevelSuccess, Message: msg} }

// Info is shorthand for an informational notification.
func Info(msg string) Notification { return Notification{Level: LevelInfo, Message: msg} }

// Error is shorthand for an error notification.
func Error(msg string) Notification { return Notification{Level: LevelError, Message: msg} }

// Nop discards every notification.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, Notification) {}

// Feed buffers the most recent notifications so the UI can drain them, and
// mirrors each one to the logger.
type Feed struct {
	mu    sync.Mutex
	lg    *zap.Logger
	limit int
	items []Notification
}

// NewFeed creates a Feed keeping at most limit undrained notifications.
func NewFeed(lg *zap.Logger, limit int) *Feed {
	if lg == nil {
		lg = zap.NewNop()
	}
	if limit <= 0 {
		limit = 50
	}
	return &Feed{lg: lg, limit: limit}
}

// Notify appends n, dropping the oldest entry when the buffer is full.
func (f *Feed) Notify(_ context.Context, n Notification) {
	f.lg.Debug("Notification",
		zap.String("level", string(n.Level)),
		zap.String("message", n.Message),
	)

	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.items) >= f.limit {
		f.items = f.items[1:]
	}
	f.items = append(f.items, n)
}

// Drain returns and clears the buffered notifications.
func (f *Feed) Drain() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := f.items
	f.items = nil
	return out
}
