package kvcache

import (
	"context"
	"fmt"
	"time"

	"github.com/unkn0wn-root/kvcache/adapter"
	"github.com/unkn0wn-root/kvcache/codec"
)

// State of an Item relative to the store.
type State uint8

const (
	// Clean: the snapshot matches what was last read or written.
	Clean State = iota
	// Dirty: Set was called and the value has not been saved.
	Dirty
)

func (s State) String() string {
	switch s {
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Item is one cache entry: a key, the value read when it was created, and any
// local change waiting for Save. Items are owned by the caller and are not
// safe for concurrent use.
type Item[V any] struct {
	key     string
	value   V
	hit     bool
	ttl     time.Duration
	state   State
	readErr error

	a     adapter.Adapter
	codec codec.Codec[V]
	log   Logger
	hooks Hooks
}

func (it *Item[V]) fetch(ctx context.Context) {
	var zero V
	it.value, it.hit, it.readErr = zero, false, nil

	raw, ok, err := it.a.Get(ctx, it.key)
	if err != nil {
		it.readErr = err
		it.log.Warn("read failed, treating as miss", Fields{"key": it.key, "err": err})
		it.hooks.ReadFailed(it.key, err)
		return
	}
	if !ok {
		return
	}
	v, err := codec.Decode(it.codec, raw)
	if err != nil {
		it.readErr = err
		it.log.Warn("decode failed, treating as miss", Fields{"key": it.key, "bytes": len(raw), "err": err})
		it.hooks.DecodeFailed(it.key, err)
		return
	}
	it.value, it.hit = v, true
}

func (it *Item[V]) Key() string { return it.key }

// Get returns the local snapshot. It never goes to the store.
func (it *Item[V]) Get() V { return it.value }

// IsHit reports whether the key held a value at the last fetch, save or delete.
func (it *Item[V]) IsHit() bool { return it.hit }

func (it *Item[V]) IsDirty() bool { return it.state == Dirty }
func (it *Item[V]) State() State  { return it.state }

// ReadErr is the store or decode error hidden behind the last fetch's miss.
func (it *Item[V]) ReadErr() error { return it.readErr }

// Set replaces the snapshot and marks the item Dirty. Nothing is written until
// Save. ttl follows adapter semantics: adapter.DefaultExpiry uses the store's
// default, adapter.NoExpiry keeps it forever.
func (it *Item[V]) Set(v V, ttl time.Duration) {
	it.value = v
	it.ttl = ttl
	it.state = Dirty
}

// Save writes a pending value. A Clean item returns nil without I/O. On
// failure the item stays Dirty so Save can be called again.
func (it *Item[V]) Save(ctx context.Context) error {
	if it.state == Clean {
		return nil
	}
	b, err := codec.Encode(it.codec, it.value)
	if err != nil {
		it.log.Warn("encode failed", Fields{"key": it.key, "err": err})
		it.hooks.WriteFailed(it.key, "save", err)
		return fmt.Errorf("kvcache: save %q: %w", it.key, err)
	}
	if err := it.a.Set(ctx, it.key, b, it.ttl); err != nil {
		it.log.Warn("save failed", Fields{"key": it.key, "ttl": it.ttl, "err": err})
		it.hooks.WriteFailed(it.key, "save", err)
		return fmt.Errorf("kvcache: save %q: %w", it.key, err)
	}
	it.state = Clean
	it.hit = true
	it.readErr = nil
	it.log.Debug("saved", Fields{"key": it.key, "bytes": len(b)})
	return nil
}

// SaveValue is Set followed by Save.
func (it *Item[V]) SaveValue(ctx context.Context, v V, ttl time.Duration) error {
	it.Set(v, ttl)
	return it.Save(ctx)
}

// Exists asks the store whether the key is present now. The snapshot and hit
// flag are left alone.
func (it *Item[V]) Exists(ctx context.Context) (bool, error) {
	_, ok, err := it.a.Get(ctx, it.key)
	if err != nil {
		return false, fmt.Errorf("kvcache: exists %q: %w", it.key, err)
	}
	return ok, nil
}

// Delete removes the key from the store, drops the snapshot and any pending
// change.
func (it *Item[V]) Delete(ctx context.Context) error {
	if err := it.a.Delete(ctx, it.key); err != nil {
		it.log.Warn("delete failed", Fields{"key": it.key, "err": err})
		it.hooks.WriteFailed(it.key, "delete", err)
		return fmt.Errorf("kvcache: delete %q: %w", it.key, err)
	}
	var zero V
	it.value, it.hit, it.ttl, it.state = zero, false, adapter.DefaultExpiry, Clean
	return nil
}

// Reload fetches the key again and discards any pending change.
func (it *Item[V]) Reload(ctx context.Context) error {
	it.fetch(ctx)
	it.ttl, it.state = adapter.DefaultExpiry, Clean
	return it.readErr
}
