package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeed_DrainAndLimit(t *testing.T) {
	ctx := context.Background()
	f := NewFeed(nil, 2)

	f.Notify(ctx, Info("one"))
	f.Notify(ctx, Success("two"))
	f.Notify(ctx, Error("three"))

	got := f.Drain()
	assert.Equal(t, []Notification{Success("two"), Error("three")}, got)
	assert.Empty(t, f.Drain())
}
