package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by stores that need to signal a missing key
// explicitly. Get never returns it; missing keys are omitted instead.
var ErrNotFound = errors.New("kv: not found")

// Store is the persistent key-value map supplied by the host environment.
// Values are opaque strings; the map is unordered and eventually durable.
type Store interface {
	// Get returns the values for the requested keys. Keys without a value
	// are left out of the result.
	Get(ctx context.Context, keys []string) (map[string]string, error)
	// Set writes every entry of the mapping, replacing existing values.
	Set(ctx context.Context, values map[string]string) error
	// Remove deletes the given keys. Missing keys are ignored.
	Remove(ctx context.Context, keys []string) error
}

// Nop ignores writes and never finds anything.
type Nop struct{}

var _ Store = (*Nop)(nil)

func (n *Nop) Get(ctx context.Context, keys []string) (map[string]string, error) {
	return map[string]string{}, nil
}
func (n *Nop) Set(ctx context.Context, values map[string]string) error { return nil }
func (n *Nop) Remove(ctx context.Context, keys []string) error         { return nil }
