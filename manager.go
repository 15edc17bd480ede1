package kvcache

import (
	"context"
	"fmt"
	"sync"

	"github.com/unkn0wn-root/kvcache/adapter"
	"github.com/unkn0wn-root/kvcache/codec"
)

// Options configure a Manager. Adapter and Codec are required.
type Options[V any] struct {
	Adapter adapter.Adapter
	Codec   codec.Codec[V]

	Logger Logger // if nil, NopLogger is used
	Hooks  Hooks  // if nil, NopHooks is used
}

// Manager hands out Items bound to its current adapter and forwards whole-store
// operations to it. The adapter may be replaced at runtime with SetAdapter;
// Items keep the adapter they were created with.
type Manager[V any] struct {
	mu    sync.RWMutex
	a     adapter.Adapter
	codec codec.Codec[V]
	log   Logger
	hooks Hooks
}

func New[V any](opts Options[V]) (*Manager[V], error) {
	if opts.Adapter == nil {
		return nil, ErrNilAdapter
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("kvcache: codec is required")
	}
	return &Manager[V]{
		a:     opts.Adapter,
		codec: opts.Codec,
		log:   coalesce[Logger](opts.Logger, NopLogger{}),
		hooks: coalesce[Hooks](opts.Hooks, NopHooks{}),
	}, nil
}

func (m *Manager[V]) Adapter() adapter.Adapter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.a
}

// SetAdapter replaces the backing store. The previous adapter is not closed.
func (m *Manager[V]) SetAdapter(a adapter.Adapter) error {
	if a == nil {
		return ErrNilAdapter
	}
	m.mu.Lock()
	old := m.a
	m.a = a
	m.mu.Unlock()

	from, to := adapterName(old), adapterName(a)
	m.log.Info("adapter swapped", Fields{"from": from, "to": to})
	m.hooks.AdapterSwapped(from, to)
	return nil
}

func adapterName(a adapter.Adapter) string { return fmt.Sprintf("%T", a) }

// GetItem validates key and fetches it once from the current adapter.
// A read failure is not returned here: the Item is a miss and ReadErr reports
// the cause.
func (m *Manager[V]) GetItem(ctx context.Context, key string) (*Item[V], error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	it := m.newItem(key)
	it.fetch(ctx)
	return it, nil
}

// GetItems builds a Collection of GetItem results. All keys are validated
// before anything is fetched; duplicate keys collapse into one Item.
func (m *Manager[V]) GetItems(ctx context.Context, keys []string) (*Collection[V], error) {
	if err := validateKeys(keys); err != nil {
		return nil, err
	}
	c := &Collection[V]{items: make(map[string]*Item[V], len(keys)), log: m.log, hooks: m.hooks}
	for _, k := range keys {
		if _, ok := c.items[k]; ok {
			continue
		}
		it := m.newItem(k)
		it.fetch(ctx)
		c.items[k] = it
	}
	return c, nil
}

// DeleteItems deletes each key in turn and keeps going past failures.
// Invalid keys fail the call before any delete is issued.
func (m *Manager[V]) DeleteItems(ctx context.Context, keys []string) error {
	if err := validateKeys(keys); err != nil {
		return err
	}
	a := m.Adapter()
	var failed map[string]error
	for _, k := range keys {
		if err := a.Delete(ctx, k); err != nil {
			m.log.Warn("delete failed", Fields{"key": k, "err": err})
			m.hooks.WriteFailed(k, "delete", err)
			if failed == nil {
				failed = make(map[string]error)
			}
			failed[k] = err
		}
	}
	if failed == nil {
		return nil
	}
	m.hooks.BatchPartial("delete", len(keys), len(failed))
	return &BatchError{Op: "delete", Requested: len(keys), Failed: failed}
}

// Clear flushes the adapter's namespace.
func (m *Manager[V]) Clear(ctx context.Context) error {
	if err := m.Adapter().Flush(ctx); err != nil {
		m.log.Warn("clear failed", Fields{"err": err})
		m.hooks.WriteFailed("", "clear", err)
		return fmt.Errorf("kvcache: clear: %w", err)
	}
	m.log.Debug("cleared", nil)
	return nil
}

// Increment adds offset to the counter at key and returns the new value.
// It is atomic only when adapter.IsAtomic reports true for the adapter.
func (m *Manager[V]) Increment(ctx context.Context, key string, offset int64) (int64, error) {
	return m.count(ctx, "increment", key, offset)
}

// Decrement subtracts offset from the counter at key.
func (m *Manager[V]) Decrement(ctx context.Context, key string, offset int64) (int64, error) {
	return m.count(ctx, "decrement", key, offset)
}

func (m *Manager[V]) count(ctx context.Context, op, key string, offset int64) (int64, error) {
	if err := ValidateKey(key); err != nil {
		return 0, err
	}
	a := m.Adapter()
	var (
		n   int64
		err error
	)
	if op == "increment" {
		n, err = a.Increment(ctx, key, offset)
	} else {
		n, err = a.Decrement(ctx, key, offset)
	}
	if err != nil {
		m.log.Warn(op+" failed", Fields{"key": key, "offset": offset, "err": err})
		m.hooks.WriteFailed(key, op, err)
		return 0, fmt.Errorf("kvcache: %s %q: %w", op, key, err)
	}
	return n, nil
}

// Close closes the current adapter.
func (m *Manager[V]) Close(ctx context.Context) error {
	return m.Adapter().Close(ctx)
}

func (m *Manager[V]) newItem(key string) *Item[V] {
	return &Item[V]{
		key:   key,
		a:     m.Adapter(),
		codec: m.codec,
		log:   m.log,
		hooks: m.hooks,
	}
}
