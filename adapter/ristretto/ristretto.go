// Package ristretto is the default in-process adapter, backed by
// dgraph-io/ristretto. TTLs are per entry; cost is the value length in bytes.
package ristretto

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/kvcache/adapter"
)

const (
	defaultNumCounters = 1e5
	defaultMaxCost     = 64 << 20
	defaultBufferItems = 64
)

type Adapter struct {
	c          *rc.Cache
	defaultTTL atomic.Int64
}

var _ adapter.Adapter = (*Adapter)(nil)

type Config struct {
	NumCounters   int64         // 0 => 1e5
	MaxCost       int64         // bytes; 0 => 64MiB
	BufferItems   int64         // 0 => 64
	DefaultExpiry time.Duration // 0 => entries do not expire
	Metrics       bool
}

func New(cfg Config) (*Adapter, error) {
	if cfg.NumCounters < 0 || cfg.MaxCost < 0 || cfg.BufferItems < 0 {
		return nil, fmt.Errorf("%w: ristretto: negative sizing", adapter.ErrUnavailable)
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: orDefault(cfg.NumCounters, defaultNumCounters),
		MaxCost:     orDefault(cfg.MaxCost, defaultMaxCost),
		BufferItems: orDefault(cfg.BufferItems, defaultBufferItems),
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: ristretto: %v", adapter.ErrUnavailable, err)
	}
	a := &Adapter{c: c}
	a.defaultTTL.Store(int64(cfg.DefaultExpiry))
	return a, nil
}

// FromConfig builds an adapter from num_counters, max_cost, buffer_items and
// expiry.
func FromConfig(cfg adapter.Config) (*Adapter, error) {
	s, err := adapter.ParseSettings(cfg)
	if err != nil {
		return nil, err
	}
	var c Config
	if s.NumCounters != nil {
		c.NumCounters = *s.NumCounters
	}
	if s.MaxCost != nil {
		c.MaxCost = *s.MaxCost
	}
	if s.BufferItems != nil {
		c.BufferItems = *s.BufferItems
	}
	if s.Expiry != nil {
		c.DefaultExpiry = *s.Expiry
	}
	return New(c)
}

func (a *Adapter) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := a.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// self-heal: drop unexpected entry shape
		a.c.Del(key)
		return nil, false, nil
	}
	// the stored slice is shared with every reader
	return append([]byte(nil), b...), true, nil
}

func (a *Adapter) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	ttl = adapter.ResolveTTL(ttl, time.Duration(a.defaultTTL.Load()))
	if ttl < 0 {
		ttl = 0 // ristretto: 0 => no expiry, negative => rejected
	}
	v := append([]byte(nil), value...)
	if !a.c.SetWithTTL(key, v, int64(len(v))+1, ttl) {
		return adapter.ErrRejected
	}
	// Sets are buffered; make the write visible to the next Get.
	a.c.Wait()
	if _, ok := a.c.Get(key); !ok {
		return adapter.ErrRejected
	}
	return nil
}

func (a *Adapter) Delete(_ context.Context, key string) error {
	a.c.Del(key)
	return nil
}

func (a *Adapter) Persist(ctx context.Context, key string, value []byte) error {
	return a.Set(ctx, key, value, adapter.NoExpiry)
}

func (a *Adapter) Increment(ctx context.Context, key string, offset int64) (int64, error) {
	return adapter.ReadModifyWrite(ctx, a, key, offset, adapter.DefaultExpiry)
}

func (a *Adapter) Decrement(ctx context.Context, key string, offset int64) (int64, error) {
	return adapter.ReadModifyWrite(ctx, a, key, -offset, adapter.DefaultExpiry)
}

func (a *Adapter) Flush(_ context.Context) error {
	a.c.Clear()
	return nil
}

// SetConfig recognizes expiry. Sizing is fixed at construction.
func (a *Adapter) SetConfig(cfg adapter.Config) error {
	s, err := adapter.ParseSettings(cfg)
	if err != nil {
		return err
	}
	if s.Expiry != nil {
		a.defaultTTL.Store(int64(*s.Expiry))
	}
	return nil
}

func (a *Adapter) Close(_ context.Context) error {
	a.c.Close()
	return nil
}

// Metrics exposes ristretto counters when Config.Metrics is set.
func (a *Adapter) Metrics() *rc.Metrics { return a.c.Metrics }

func orDefault(v, def int64) int64 {
	if v == 0 {
		return def
	}
	return v
}
