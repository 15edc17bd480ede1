package kvcache

import (
	"context"
	"fmt"
	"sort"
)

// Collection holds Items by key. Items are usually obtained from
// Manager.GetItems; Save writes every Dirty member.
type Collection[V any] struct {
	items map[string]*Item[V]
	log   Logger
	hooks Hooks
}

// NewCollection keys items by Item.Key. Nil items are skipped and a later item
// replaces an earlier one with the same key.
func NewCollection[V any](items ...*Item[V]) *Collection[V] {
	c := &Collection[V]{items: make(map[string]*Item[V], len(items)), log: NopLogger{}, hooks: NopHooks{}}
	for _, it := range items {
		if it != nil {
			c.items[it.key] = it
		}
	}
	return c
}

func (c *Collection[V]) Get(key string) (*Item[V], bool) {
	it, ok := c.items[key]
	return it, ok
}

// Set stores it under key. key must be the item's own key.
func (c *Collection[V]) Set(key string, it *Item[V]) error {
	if it == nil {
		return fmt.Errorf("kvcache: collection: nil item for %q", key)
	}
	if it.key != key {
		return fmt.Errorf("%w: collection key %q holds item %q", ErrInvalidKey, key, it.key)
	}
	c.items[key] = it
	return nil
}

func (c *Collection[V]) Remove(key string)   { delete(c.items, key) }
func (c *Collection[V]) Has(key string) bool { _, ok := c.items[key]; return ok }
func (c *Collection[V]) Len() int            { return len(c.items) }

// Keys returns member keys in sorted order.
func (c *Collection[V]) Keys() []string {
	keys := make([]string, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Range calls fn for each member in key order until fn returns false.
func (c *Collection[V]) Range(fn func(key string, it *Item[V]) bool) {
	for _, k := range c.Keys() {
		if !fn(k, c.items[k]) {
			return
		}
	}
}

// Save calls Save on every member, in key order, and does not stop at the
// first failure. Members that saved stay saved. The returned *BatchError lists
// the rest.
func (c *Collection[V]) Save(ctx context.Context) error {
	var failed map[string]error
	for _, k := range c.Keys() {
		if err := c.items[k].Save(ctx); err != nil {
			if failed == nil {
				failed = make(map[string]error)
			}
			failed[k] = err
		}
	}
	if failed == nil {
		return nil
	}
	c.log.Warn("collection save partially failed", Fields{"requested": len(c.items), "failed": len(failed)})
	c.hooks.BatchPartial("save", len(c.items), len(failed))
	return &BatchError{Op: "save", Requested: len(c.items), Failed: failed}
}
