// Package bolt is an embedded, file-backed adapter on go.etcd.io/bbolt.
//
// One bucket is one namespace. Entries carry their own deadline
// (internal/wire); expired entries read as a miss and are removed lazily.
// Counters run inside a single write transaction and are atomic per file.
package bolt

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/unkn0wn-root/kvcache/adapter"
	"github.com/unkn0wn-root/kvcache/internal/wire"
)

const defaultBucket = "kvcache"

type Adapter struct {
	db         *bolt.DB
	bucket     []byte
	defaultTTL atomic.Int64
	now        func() time.Time
}

var (
	_ adapter.Adapter = (*Adapter)(nil)
	_ adapter.Atomic  = (*Adapter)(nil)
)

type Options struct {
	// Bucket is the namespace flushed by Flush. Defaults to "kvcache".
	Bucket string
	// DefaultExpiry applies when Set is called with adapter.DefaultExpiry.
	DefaultExpiry time.Duration
	// Timeout bounds waiting for the file lock. Defaults to 1s.
	Timeout time.Duration
}

// Open initializes or opens a store at path.
func Open(path string, opts Options) (*Adapter, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: bolt: path is required", adapter.ErrUnavailable)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("%w: bolt: %v", adapter.ErrUnavailable, err)
	}
	bucket := []byte(defaultBucket)
	if opts.Bucket != "" {
		bucket = []byte(opts.Bucket)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: bolt: %v", adapter.ErrUnavailable, err)
	}
	a := &Adapter{db: db, bucket: bucket, now: time.Now}
	a.defaultTTL.Store(int64(opts.DefaultExpiry))
	return a, nil
}

// FromConfig opens path with bucket (or namespace), expiry and timeout.
func FromConfig(cfg adapter.Config) (*Adapter, error) {
	s, err := adapter.ParseSettings(cfg)
	if err != nil {
		return nil, err
	}
	var path string
	if s.Path != nil {
		path = *s.Path
	}
	var opts Options
	if s.Bucket != nil {
		opts.Bucket = *s.Bucket
	} else if ns, ok := s.Scope(); ok {
		opts.Bucket = ns
	}
	if s.Expiry != nil {
		opts.DefaultExpiry = *s.Expiry
	}
	if s.Timeout != nil {
		opts.Timeout = *s.Timeout
	}
	return Open(path, opts)
}

func (a *Adapter) AtomicCounters() bool { return true }

func (a *Adapter) Get(_ context.Context, key string) ([]byte, bool, error) {
	var (
		out     []byte
		found   bool
		expired bool
	)
	err := a.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(a.bucket).Get([]byte(key))
		if v == nil {
			return nil
		}
		exp, payload, err := wire.DecodeEntry(v)
		if err != nil || wire.Expired(exp, a.now()) {
			expired = true
			return nil
		}
		found = true
		// bolt memory is only valid inside the transaction
		out = append([]byte(nil), payload...)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if expired {
		_ = a.dropExpired(key)
	}
	return out, found, nil
}

// dropExpired removes key only if it is still expired or corrupt, so a Set
// that landed after the read survives.
func (a *Adapter) dropExpired(key string) error {
	return a.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(a.bucket)
		v := b.Get([]byte(key))
		if v == nil {
			return nil
		}
		if exp, _, err := wire.DecodeEntry(v); err == nil && !wire.Expired(exp, a.now()) {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

func (a *Adapter) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	ttl = adapter.ResolveTTL(ttl, time.Duration(a.defaultTTL.Load()))
	buf := wire.EncodeEntry(wire.Deadline(a.now(), ttl), value)
	return a.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(a.bucket).Put([]byte(key), buf)
	})
}

func (a *Adapter) Delete(_ context.Context, key string) error {
	return a.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(a.bucket).Delete([]byte(key))
	})
}

func (a *Adapter) Persist(ctx context.Context, key string, value []byte) error {
	return a.Set(ctx, key, value, adapter.NoExpiry)
}

func (a *Adapter) Increment(_ context.Context, key string, offset int64) (int64, error) {
	return a.add(key, offset)
}

func (a *Adapter) Decrement(_ context.Context, key string, offset int64) (int64, error) {
	return a.add(key, -offset)
}

func (a *Adapter) add(key string, delta int64) (int64, error) {
	var n int64
	err := a.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(a.bucket)
		now := a.now()
		if v := b.Get([]byte(key)); v != nil {
			if exp, payload, err := wire.DecodeEntry(v); err == nil && !wire.Expired(exp, now) {
				n = adapter.ParseCounter(payload)
			}
		}
		n += delta
		ttl := adapter.ResolveTTL(adapter.DefaultExpiry, time.Duration(a.defaultTTL.Load()))
		return b.Put([]byte(key), wire.EncodeEntry(wire.Deadline(now, ttl), adapter.FormatCounter(n)))
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (a *Adapter) Flush(_ context.Context) error {
	return a.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(a.bucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(a.bucket)
		return err
	})
}

// SetConfig recognizes expiry. The file and bucket are fixed at Open.
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

// Close closes the underlying database.
func (a *Adapter) Close(_ context.Context) error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}
