// Package redis is a remote adapter on github.com/redis/go-redis/v9.
//
// Keys are stored as prefix + ":" + key when a namespace is configured.
// Counters use INCRBY and are atomic; a stored value that Redis does not
// accept as an integer falls back to a read-modify-write.
package redis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/kvcache/adapter"
	"github.com/unkn0wn-root/kvcache/internal/util"
)

const (
	sep       = ":"
	scanBatch = 500
)

var ErrNilClient = errors.New("redis adapter: nil client")

type Adapter struct {
	rdb         goredis.UniversalClient
	closeClient bool

	mu         sync.RWMutex
	prefix     string
	defaultTTL time.Duration
}

var (
	_ adapter.Adapter = (*Adapter)(nil)
	_ adapter.Atomic  = (*Adapter)(nil)
)

type Config struct {
	Client        goredis.UniversalClient
	CloseClient   bool   // set true only if this adapter exclusively owns the client
	Prefix        string // "" => FLUSHDB on Flush
	DefaultExpiry time.Duration
}

func New(cfg Config) (*Adapter, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Adapter{
		rdb:         cfg.Client,
		closeClient: cfg.CloseClient,
		prefix:      cfg.Prefix,
		defaultTTL:  cfg.DefaultExpiry,
	}, nil
}

// FromConfig dials addr (or url|host) with password and db. The adapter owns
// the client. The connection is checked with PING; failure is ErrUnavailable.
func FromConfig(ctx context.Context, cfg adapter.Config) (*Adapter, error) {
	s, err := adapter.ParseSettings(cfg)
	if err != nil {
		return nil, err
	}
	opts := &goredis.Options{Addr: "127.0.0.1:6379"}
	switch {
	case s.Addr != nil && *s.Addr != "":
		opts.Addr = *s.Addr
	default:
		if addr, ok := s.Address(); ok {
			if strings.Contains(addr, "://") {
				parsed, err := goredis.ParseURL(addr)
				if err != nil {
					return nil, errors.Join(adapter.ErrUnavailable, err)
				}
				opts = parsed
			} else {
				opts.Addr = addr
			}
		}
	}
	if s.Password != nil {
		opts.Password = *s.Password
	}
	if s.DB != nil {
		opts.DB = *s.DB
	}
	if s.Timeout != nil && *s.Timeout > 0 {
		opts.DialTimeout = *s.Timeout
		opts.ReadTimeout = *s.Timeout
		opts.WriteTimeout = *s.Timeout
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Join(adapter.ErrUnavailable, err)
	}
	a, _ := New(Config{Client: client, CloseClient: true})
	if err := a.SetConfig(cfg); err != nil {
		_ = client.Close()
		return nil, err
	}
	return a, nil
}

func (a *Adapter) AtomicCounters() bool { return true }

func (a *Adapter) settings() (string, time.Duration) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.prefix, a.defaultTTL
}

func (a *Adapter) key(k string) string {
	prefix, _ := a.settings()
	return util.Scoped(prefix, sep, k)
}

func (a *Adapter) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := a.rdb.Get(ctx, a.key(key)).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

func (a *Adapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	prefix, def := a.settings()
	ttl = adapter.ResolveTTL(ttl, def)
	if ttl < 0 {
		ttl = 0 // go-redis: 0 means no expiry
	}
	return a.rdb.Set(ctx, util.Scoped(prefix, sep, key), value, ttl).Err()
}

func (a *Adapter) Delete(ctx context.Context, key string) error {
	return a.rdb.Del(ctx, a.key(key)).Err()
}

func (a *Adapter) Persist(ctx context.Context, key string, value []byte) error {
	return a.Set(ctx, key, value, adapter.NoExpiry)
}

func (a *Adapter) Increment(ctx context.Context, key string, offset int64) (int64, error) {
	return a.incrBy(ctx, key, offset)
}

func (a *Adapter) Decrement(ctx context.Context, key string, offset int64) (int64, error) {
	return a.incrBy(ctx, key, -offset)
}

// incrBy pipelines INCRBY and EXPIRE when a default expiry is set, so the
// counter gets the same lifetime as a Set with DefaultExpiry.
func (a *Adapter) incrBy(ctx context.Context, key string, delta int64) (int64, error) {
	prefix, def := a.settings()
	k := util.Scoped(prefix, sep, key)

	var (
		n   int64
		err error
	)
	if def <= 0 {
		n, err = a.rdb.IncrBy(ctx, k, delta).Result()
	} else {
		var incr *goredis.IntCmd
		_, err = a.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
			incr = p.IncrBy(ctx, k, delta)
			p.Expire(ctx, k, def)
			return nil
		})
		if err == nil {
			n = incr.Val()
		}
	}
	if err != nil && isNotInteger(err) {
		return adapter.ReadModifyWrite(ctx, a, key, delta, adapter.DefaultExpiry)
	}
	return n, err
}

func isNotInteger(err error) bool {
	return strings.Contains(err.Error(), "not an integer")
}

// Flush deletes every key under the prefix with SCAN + DEL, or runs FLUSHDB
// when no prefix is configured.
func (a *Adapter) Flush(ctx context.Context) error {
	prefix, _ := a.settings()
	if prefix == "" {
		return a.rdb.FlushDB(ctx).Err()
	}

	match := escapeGlob(prefix+sep) + "*"
	var cursor uint64
	for {
		keys, next, err := a.rdb.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := a.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func escapeGlob(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// SetConfig recognizes prefix|namespace and expiry. Connection settings are
// fixed once the client exists.
func (a *Adapter) SetConfig(cfg adapter.Config) error {
	s, err := adapter.ParseSettings(cfg)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if ns, ok := s.Scope(); ok {
		a.prefix = ns
	}
	if s.Expiry != nil {
		a.defaultTTL = *s.Expiry
	}
	return nil
}

// Close releases the underlying redis client only when this adapter owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (a *Adapter) Close(context.Context) error {
	if a.closeClient {
		if err := a.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
