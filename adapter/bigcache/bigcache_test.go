package bigcache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/unkn0wn-root/kvcache/adapter"
	"github.com/unkn0wn-root/kvcache/adapter/adaptertest"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	a, err := New(Config{LifeWindow: time.Hour, HardMaxCacheSizeMB: 8})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestContract(t *testing.T) {
	adaptertest.Run(t, func(t *testing.T) adapter.Adapter { return newTestAdapter(t) })
}

func TestPerEntryTTLEnforcedOnRead(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	defer a.Close(ctx)

	now := time.Unix(1_700_000_000, 0)
	a.now = func() time.Time { return now }

	k := adaptertest.Key()
	if err := a.Set(ctx, k, []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	adaptertest.MustGet(t, ctx, a, k, []byte("v"))

	now = now.Add(time.Minute)
	adaptertest.MustMiss(t, ctx, a, k)

	// expired entry is evicted, not just hidden
	if _, err := a.c.Get(k); err == nil {
		t.Fatalf("expired entry should have been deleted")
	}
}

func TestDefaultExpiryFromConfig(t *testing.T) {
	ctx := context.Background()
	a, err := FromConfig(adapter.Config{"expiry": "10s", "hard_max_cache_size_mb": 8})
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	defer a.Close(ctx)

	now := time.Unix(1_700_000_000, 0)
	a.now = func() time.Time { return now }

	kDefault, kForever := adaptertest.Key(), adaptertest.Key()
	if err := a.Set(ctx, kDefault, []byte("d"), adapter.DefaultExpiry); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := a.Persist(ctx, kForever, []byte("p")); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	now = now.Add(11 * time.Second)
	adaptertest.MustMiss(t, ctx, a, kDefault)
	adaptertest.MustGet(t, ctx, a, kForever, []byte("p"))
}

func TestCorruptEntrySelfHeals(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	defer a.Close(ctx)

	k := adaptertest.Key()
	if err := a.c.Set(k, []byte("not-wire-format")); err != nil {
		t.Fatalf("inject: %v", err)
	}
	adaptertest.MustMiss(t, ctx, a, k)
	if _, err := a.c.Get(k); err == nil {
		t.Fatalf("corrupt entry was not deleted by self-heal")
	}
}

func TestExpiredEvictionKeepsConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t)
	defer a.Close(ctx)

	var tick atomic.Int64
	base := time.Unix(1_700_000_000, 0)
	a.now = func() time.Time { return base.Add(time.Duration(tick.Add(1)) * time.Millisecond) }

	k := adaptertest.Key()
	for i := 0; i < 500; i++ {
		if err := a.Set(ctx, k, []byte("old"), time.Nanosecond); err != nil {
			t.Fatalf("Set old: %v", err)
		}
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, _ = a.Get(ctx, k)
		}()
		go func() {
			defer wg.Done()
			if err := a.Set(ctx, k, []byte("fresh"), time.Hour); err != nil {
				t.Errorf("Set fresh: %v", err)
			}
		}()
		wg.Wait()
		adaptertest.MustGet(t, ctx, a, k, []byte("fresh"))
	}
}
