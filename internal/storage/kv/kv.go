// Package kv defines the durable key-value store that backs every piece of
// persisted storefront state, plus an in-memory implementation.
package kv

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-faster/errors"
)

// Keys used by the storefront engines.
const (
	KeyCart      = "cart"
	KeyCompare   = "compareList"
	KeyUser      = "user"
	KeyRecentIDs = "recentlyViewedIds"
	KeyRecent    = "recentlyViewed"
)

// Store is a string-keyed durable store. A missing key is reported with
// ok=false and a nil error; it always means "empty/default".
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Pinger is implemented by stores backed by a network service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// LoadJSON decodes the value stored under key into dst. It returns false
// without touching dst when the key is absent.
func LoadJSON(ctx context.Context, s Store, key string, dst any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return false, errors.Wrapf(err, "get %q", key)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, errors.Wrapf(err, "decode %q", key)
	}
	return true, nil
}

// SaveJSON serializes v and stores it under key.
func SaveJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %q", key)
	}
	if err := s.Set(ctx, key, raw); err != nil {
		return errors.Wrapf(err, "set %q", key)
	}
	return nil
}

var _ Store = (*Memory)(nil)

// Memory is a process-local Store. State does not survive restarts.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Get returns a copy of the value stored under key.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set stores a copy of value under key.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = append([]byte(nil), value...)
	return nil
}

// Remove deletes key. Removing a missing key is a no-op.
func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}
