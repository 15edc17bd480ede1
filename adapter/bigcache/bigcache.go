// Package bigcache is an in-process adapter backed by allegro/bigcache.
//
// BigCache has no per-entry TTL, only a global LifeWindow. Entries are framed
// with their own deadline (internal/wire) and expired on read; LifeWindow stays
// the upper bound for any entry, including persisted ones.
package bigcache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"hash/maphash"
	"sync"
	"sync/atomic"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/kvcache/adapter"
	"github.com/unkn0wn-root/kvcache/internal/wire"
)

const (
	defaultLifeWindow = time.Hour
	stripes           = 64
)

type Adapter struct {
	c          *bc.BigCache
	defaultTTL atomic.Int64
	now        func() time.Time

	// writes and read-side evictions of the same key are serialized, so an
	// eviction never removes a value written after it was read
	seed  maphash.Seed
	locks [stripes]sync.Mutex
}

var _ adapter.Adapter = (*Adapter)(nil)

type Config struct {
	LifeWindow         time.Duration // 0 => 1h
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
	DefaultExpiry      time.Duration
}

func New(cfg Config) (*Adapter, error) {
	life := cfg.LifeWindow
	if life <= 0 {
		life = defaultLifeWindow
	}
	conf := bc.DefaultConfig(life)
	conf.Verbose = false
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.NewBigCache(conf)
	if err != nil {
		return nil, fmt.Errorf("%w: bigcache: %v", adapter.ErrUnavailable, err)
	}
	a := &Adapter{c: c, now: time.Now, seed: maphash.MakeSeed()}
	a.defaultTTL.Store(int64(cfg.DefaultExpiry))
	return a, nil
}

// FromConfig builds an adapter from life_window, clean_window,
// hard_max_cache_size_mb and expiry.
func FromConfig(cfg adapter.Config) (*Adapter, error) {
	s, err := adapter.ParseSettings(cfg)
	if err != nil {
		return nil, err
	}
	var c Config
	if s.LifeWindow != nil {
		c.LifeWindow = *s.LifeWindow
	}
	if s.CleanWindow != nil {
		c.CleanWindow = *s.CleanWindow
	}
	if s.HardMaxCacheSizeMB != nil {
		c.HardMaxCacheSizeMB = *s.HardMaxCacheSizeMB
	}
	if s.Expiry != nil {
		c.DefaultExpiry = *s.Expiry
	}
	return New(c)
}

func (a *Adapter) Get(_ context.Context, key string) ([]byte, bool, error) {
	raw, err := a.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	exp, payload, err := wire.DecodeEntry(raw)
	if err != nil || wire.Expired(exp, a.now()) {
		a.evict(key, raw) // expired or corrupt
		return nil, false, nil
	}
	return payload, true, nil
}

func (a *Adapter) lock(key string) *sync.Mutex {
	return &a.locks[maphash.String(a.seed, key)%stripes]
}

// evict deletes key only while it still holds the bytes that were read.
func (a *Adapter) evict(key string, seen []byte) {
	mu := a.lock(key)
	mu.Lock()
	defer mu.Unlock()
	if cur, err := a.c.Get(key); err == nil && bytes.Equal(cur, seen) {
		_ = a.c.Delete(key)
	}
}

func (a *Adapter) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	ttl = adapter.ResolveTTL(ttl, time.Duration(a.defaultTTL.Load()))
	buf := wire.EncodeEntry(wire.Deadline(a.now(), ttl), value)
	mu := a.lock(key)
	mu.Lock()
	defer mu.Unlock()
	return a.c.Set(key, buf)
}

func (a *Adapter) Delete(_ context.Context, key string) error {
	err := a.c.Delete(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil
	}
	return err
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
	return a.c.Reset()
}

// SetConfig recognizes expiry. Window and size settings are fixed at construction.
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
	return a.c.Close()
}
