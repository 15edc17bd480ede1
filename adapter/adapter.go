// Package adapter defines the storage contract used by kvcache.
//
// An Adapter is a byte store with TTLs and integer counters. Values are opaque:
// Get must return exactly the bytes previously passed to Set for a key. Typed
// values are handled one level up, by kvcache.Manager and a codec.
//
// Write operations are best-effort. Adapters never retry; they return the
// backend error so callers that need reliability can observe it.
//
// Increment and Decrement are read-modify-write unless the adapter also
// implements Atomic and reports true. Concurrent callers on the same key may
// lose updates otherwise.
package adapter

import (
	"context"
	"errors"
	"time"
)

const (
	// DefaultExpiry selects the adapter's configured default expiry.
	DefaultExpiry time.Duration = 0
	// NoExpiry stores an entry without expiry where the backend supports it.
	NoExpiry time.Duration = -1
)

// ErrUnavailable is wrapped by constructors when the backing store is not
// present or cannot be initialized.
var ErrUnavailable = errors.New("kvcache: adapter unavailable")

// ErrRejected is returned when a store drops a write under pressure.
var ErrRejected = errors.New("kvcache: write rejected by store")

// ErrClosed is returned by adapters used after Close.
var ErrClosed = errors.New("kvcache: adapter closed")

// Adapter is the uniform capability set implemented by every backend.
type Adapter interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key, overwriting any existing entry.
	// ttl == DefaultExpiry uses the configured default, ttl < 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// Persist is Set with NoExpiry.
	Persist(ctx context.Context, key string, value []byte) error

	// Increment adds offset to the integer value of key and returns the result.
	// Absent or non-numeric values count as 0.
	Increment(ctx context.Context, key string, offset int64) (int64, error)

	// Decrement subtracts offset from the integer value of key.
	Decrement(ctx context.Context, key string, offset int64) (int64, error)

	// Flush removes every entry in the adapter's namespace.
	Flush(ctx context.Context) error

	// SetConfig applies recognized options and ignores the rest.
	// An empty Config leaves the adapter unchanged.
	SetConfig(cfg Config) error

	// Close releases resources.
	Close(ctx context.Context) error
}

// Atomic is implemented by adapters whose counters are applied server-side.
type Atomic interface {
	AtomicCounters() bool
}

// IsAtomic reports whether a's Increment/Decrement are atomic.
func IsAtomic(a Adapter) bool {
	at, ok := a.(Atomic)
	return ok && at.AtomicCounters()
}
