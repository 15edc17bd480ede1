// Package driver opens adapters by name from a loose config map, which is how
// the CLI and gateway pick a backend.
//
//	a, err := driver.Open(ctx, "bolt", adapter.Config{"path": "/var/cache/app.db"})
package driver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/unkn0wn-root/kvcache/adapter"
	"github.com/unkn0wn-root/kvcache/adapter/bigcache"
	"github.com/unkn0wn-root/kvcache/adapter/bolt"
	"github.com/unkn0wn-root/kvcache/adapter/etcd"
	"github.com/unkn0wn-root/kvcache/adapter/null"
	"github.com/unkn0wn-root/kvcache/adapter/redis"
	"github.com/unkn0wn-root/kvcache/adapter/ristretto"
)

// ErrUnknown is returned for names nothing was registered under.
var ErrUnknown = errors.New("kvcache: unknown driver")

// Factory builds an adapter from cfg.
type Factory func(ctx context.Context, cfg adapter.Config) (adapter.Adapter, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

func init() {
	Register("ristretto", func(_ context.Context, cfg adapter.Config) (adapter.Adapter, error) {
		return ristretto.FromConfig(cfg)
	})
	Register("bigcache", func(_ context.Context, cfg adapter.Config) (adapter.Adapter, error) {
		return bigcache.FromConfig(cfg)
	})
	Register("bolt", func(_ context.Context, cfg adapter.Config) (adapter.Adapter, error) {
		return bolt.FromConfig(cfg)
	})
	Register("null", func(context.Context, adapter.Config) (adapter.Adapter, error) {
		return null.New(), nil
	})
	Register("etcd", func(_ context.Context, cfg adapter.Config) (adapter.Adapter, error) {
		return etcd.FromConfig(cfg)
	})
	Register("redis", func(ctx context.Context, cfg adapter.Config) (adapter.Adapter, error) {
		return redis.FromConfig(ctx, cfg)
	})

	alias("memory", "ristretto")
	alias("devnull", "null")
}

// Register makes f available under name (case-insensitive), replacing any
// earlier registration.
func Register(name string, f Factory) {
	if f == nil {
		panic("kvcache/driver: Register factory is nil")
	}
	mu.Lock()
	defer mu.Unlock()
	factories[strings.ToLower(name)] = f
}

func alias(name, target string) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = factories[target]
}

// Names lists registered drivers, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for n := range factories {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Open builds the adapter registered under name.
func Open(ctx context.Context, name string, cfg adapter.Config) (adapter.Adapter, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	mu.RLock()
	f, ok := factories[key]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (have %s)", ErrUnknown, name, strings.Join(Names(), ", "))
	}
	a, err := f(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("kvcache: open %s: %w", key, err)
	}
	return a, nil
}
