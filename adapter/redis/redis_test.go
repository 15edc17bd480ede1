package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/kvcache/adapter"
	"github.com/unkn0wn-root/kvcache/adapter/adaptertest"
)

// Tests against a live server run only when KVCACHE_REDIS_ADDR is set.
func liveClient(t *testing.T) goredis.UniversalClient {
	t.Helper()
	addr := os.Getenv("KVCACHE_REDIS_ADDR")
	if addr == "" {
		t.Skip("KVCACHE_REDIS_ADDR not set")
	}
	c := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := c.Ping(context.Background()).Err(); err != nil {
		_ = c.Close()
		t.Skipf("redis at %s unreachable: %v", addr, err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func newLiveAdapter(t *testing.T, prefix string) *Adapter {
	t.Helper()
	a, err := New(Config{Client: liveClient(t), Prefix: prefix})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestNewNilClient(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrNilClient) {
		t.Fatalf("expected ErrNilClient, got %v", err)
	}
}

func TestFromConfigUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	// port 1 on loopback refuses connections
	_, err := FromConfig(ctx, adapter.Config{"addr": "127.0.0.1:1", "timeout": "200ms"})
	if !errors.Is(err, adapter.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestEscapeGlob(t *testing.T) {
	cases := map[string]string{
		"app:":      "app:",
		"a*b:":      `a\*b:`,
		"q?[x]\\:":  `q\?\[x\]\\:`,
		"tenant-1:": "tenant-1:",
	}
	for in, want := range cases {
		if got := escapeGlob(in); got != want {
			t.Fatalf("escapeGlob(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestKeyScoping(t *testing.T) {
	a, _ := New(Config{Client: goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1"}), CloseClient: true})
	defer a.Close(context.Background())

	if got := a.key("k"); got != "k" {
		t.Fatalf("unscoped key = %q", got)
	}
	if err := a.SetConfig(adapter.Config{"namespace": "users", "expiry": 30}); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	if got := a.key("k"); got != "users:k" {
		t.Fatalf("scoped key = %q", got)
	}
	if _, def := a.settings(); def != 30*time.Second {
		t.Fatalf("default expiry = %v", def)
	}
}

func TestContract(t *testing.T) {
	adaptertest.Run(t, func(t *testing.T) adapter.Adapter {
		return newLiveAdapter(t, "kvcache-test-"+adaptertest.Key())
	})
}

func TestExpiryOnLiveServer(t *testing.T) {
	ctx := context.Background()
	a := newLiveAdapter(t, "kvcache-test-"+adaptertest.Key())
	defer a.Flush(ctx)

	if err := a.SetConfig(adapter.Config{"expiry": "1h"}); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	k := adaptertest.Key()
	if err := a.Set(ctx, k, []byte("v"), adapter.DefaultExpiry); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if ttl := a.rdb.TTL(ctx, a.key(k)).Val(); ttl <= 0 || ttl > time.Hour {
		t.Fatalf("default expiry not applied, ttl=%v", ttl)
	}

	if _, err := a.Increment(ctx, "hits", 2); err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if ttl := a.rdb.TTL(ctx, a.key("hits")).Val(); ttl <= 0 {
		t.Fatalf("counter did not get the default expiry, ttl=%v", ttl)
	}

	if err := a.Persist(ctx, k, []byte("p")); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if ttl := a.rdb.TTL(ctx, a.key(k)).Val(); ttl != -1 {
		t.Fatalf("persisted key should have no ttl, got %v", ttl)
	}
}

func TestFlushStaysInsidePrefix(t *testing.T) {
	ctx := context.Background()
	client := liveClient(t)
	mine, _ := New(Config{Client: client, Prefix: "kvcache-test-" + adaptertest.Key()})
	theirs, _ := New(Config{Client: client, Prefix: "kvcache-test-" + adaptertest.Key()})
	defer theirs.Flush(ctx)

	if err := mine.Set(ctx, "k", []byte("a"), adapter.DefaultExpiry); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := theirs.Set(ctx, "k", []byte("b"), adapter.DefaultExpiry); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := mine.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	adaptertest.MustMiss(t, ctx, mine, "k")
	adaptertest.MustGet(t, ctx, theirs, "k", []byte("b"))
}
