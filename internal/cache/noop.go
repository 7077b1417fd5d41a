package cache

import (
	"context"
	"time"
)

// Noop is a disabled cache. It is wired in when no cache backend is
// configured so callers never have to branch on cache availability.
type Noop struct{}

// NewNoop creates a no-op cache.
func NewNoop() *Noop {
	return &Noop{}
}

// Get always misses.
func (Noop) Get(_ context.Context, _ string, _ any) (bool, error) { return false, nil }

// Set discards the value.
func (Noop) Set(_ context.Context, _ string, _ any, _ time.Duration) error { return nil }

// Delete does nothing.
func (Noop) Delete(_ context.Context, _ ...string) error { return nil }

// DeletePrefix does nothing.
func (Noop) DeletePrefix(_ context.Context, _ string) error { return nil }
