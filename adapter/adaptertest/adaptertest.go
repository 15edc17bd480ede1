// Package adaptertest provides a behavioral test suite shared by every
// adapter.Adapter implementation.
package adaptertest

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/unkn0wn-root/kvcache/adapter"
)

// Factory returns a fresh adapter with an empty namespace. The suite closes it.
type Factory func(t *testing.T) adapter.Adapter

// Run exercises the storage contract: round trip, delete, counters, flush and
// SetConfig identity. Stores that keep nothing (the null adapter) should not use
// it.
func Run(t *testing.T, newAdapter Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, ctx context.Context, a adapter.Adapter)
	}{
		{"GetAndSet", testGetAndSet},
		{"MissIsNotError", testMiss},
		{"Overwrite", testOverwrite},
		{"Delete", testDelete},
		{"DeleteAbsent", testDeleteAbsent},
		{"Persist", testPersist},
		{"IncrementAbsent", testIncrementAbsent},
		{"IncrementExisting", testIncrementExisting},
		{"Decrement", testDecrement},
		{"IncrementNonNumeric", testIncrementNonNumeric},
		{"Flush", testFlush},
		{"SetConfigEmpty", testSetConfigEmpty},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			a := newAdapter(t)
			t.Cleanup(func() { _ = a.Close(ctx) })
			tc.fn(t, ctx, a)
		})
	}
}

// Key returns a unique key for a test run.
func Key() string { return "k-" + uuid.NewString() }

// MustGet fails the test unless key is present with value want.
func MustGet(t *testing.T, ctx context.Context, a adapter.Adapter, key string, want []byte) {
	t.Helper()
	got, ok, err := a.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get(%q): %v", key, err)
	}
	if !ok {
		t.Fatalf("Get(%q): miss, want %q", key, want)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("Get(%q) = %q, want %q", key, got, want)
	}
}

// MustMiss fails the test unless key is absent.
func MustMiss(t *testing.T, ctx context.Context, a adapter.Adapter, key string) {
	t.Helper()
	got, ok, err := a.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get(%q): %v", key, err)
	}
	if ok {
		t.Fatalf("Get(%q) = %q, want miss", key, got)
	}
}

func testGetAndSet(t *testing.T, ctx context.Context, a adapter.Adapter) {
	k := Key()
	v := []byte("Hello World 42")
	if err := a.Set(ctx, k, v, adapter.DefaultExpiry); err != nil {
		t.Fatalf("Set: %v", err)
	}
	MustGet(t, ctx, a, k, v)
}

func testMiss(t *testing.T, ctx context.Context, a adapter.Adapter) {
	MustMiss(t, ctx, a, Key())
}

func testOverwrite(t *testing.T, ctx context.Context, a adapter.Adapter) {
	k := Key()
	if err := a.Set(ctx, k, []byte("one"), adapter.DefaultExpiry); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := a.Set(ctx, k, []byte("two"), adapter.DefaultExpiry); err != nil {
		t.Fatalf("Set: %v", err)
	}
	MustGet(t, ctx, a, k, []byte("two"))
}

func testDelete(t *testing.T, ctx context.Context, a adapter.Adapter) {
	k := Key()
	if err := a.Set(ctx, k, []byte("gone soon"), adapter.DefaultExpiry); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := a.Delete(ctx, k); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	MustMiss(t, ctx, a, k)
}

func testDeleteAbsent(t *testing.T, ctx context.Context, a adapter.Adapter) {
	if err := a.Delete(ctx, Key()); err != nil {
		t.Fatalf("Delete of absent key should be a no-op, got %v", err)
	}
}

func testPersist(t *testing.T, ctx context.Context, a adapter.Adapter) {
	k := Key()
	if err := a.Persist(ctx, k, []byte("forever")); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	MustGet(t, ctx, a, k, []byte("forever"))
}

func testIncrementAbsent(t *testing.T, ctx context.Context, a adapter.Adapter) {
	k := Key()
	n, err := a.Increment(ctx, k, 10)
	if err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if n != 10 {
		t.Fatalf("Increment on absent key = %d, want 10", n)
	}
	MustGet(t, ctx, a, k, []byte("10"))
}

func testIncrementExisting(t *testing.T, ctx context.Context, a adapter.Adapter) {
	k := Key()
	if err := a.Set(ctx, k, []byte("100"), adapter.DefaultExpiry); err != nil {
		t.Fatalf("Set: %v", err)
	}
	n, err := a.Increment(ctx, k, 10)
	if err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if n != 110 {
		t.Fatalf("Increment = %d, want 110", n)
	}
	MustGet(t, ctx, a, k, []byte("110"))
}

func testDecrement(t *testing.T, ctx context.Context, a adapter.Adapter) {
	k := Key()
	if err := a.Set(ctx, k, []byte("150"), adapter.DefaultExpiry); err != nil {
		t.Fatalf("Set: %v", err)
	}
	n, err := a.Decrement(ctx, k, 10)
	if err != nil {
		t.Fatalf("Decrement: %v", err)
	}
	if n != 140 {
		t.Fatalf("Decrement = %d, want 140", n)
	}
	MustGet(t, ctx, a, k, []byte("140"))
}

func testIncrementNonNumeric(t *testing.T, ctx context.Context, a adapter.Adapter) {
	k := Key()
	if err := a.Set(ctx, k, []byte("not a number"), adapter.DefaultExpiry); err != nil {
		t.Fatalf("Set: %v", err)
	}
	n, err := a.Increment(ctx, k, 3)
	if err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if n != 3 {
		t.Fatalf("non-numeric value should count as 0, got %d", n)
	}
}

func testFlush(t *testing.T, ctx context.Context, a adapter.Adapter) {
	keys := []string{Key(), Key(), Key()}
	for _, k := range keys {
		if err := a.Set(ctx, k, []byte("v"), adapter.DefaultExpiry); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	if err := a.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	for _, k := range keys {
		MustMiss(t, ctx, a, k)
	}
	// still usable after a flush
	k := Key()
	if err := a.Set(ctx, k, []byte("after"), adapter.DefaultExpiry); err != nil {
		t.Fatalf("Set after Flush: %v", err)
	}
	MustGet(t, ctx, a, k, []byte("after"))
}

func testSetConfigEmpty(t *testing.T, ctx context.Context, a adapter.Adapter) {
	k := Key()
	if err := a.Set(ctx, k, []byte("kept"), adapter.DefaultExpiry); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := a.SetConfig(adapter.Config{}); err != nil {
		t.Fatalf("SetConfig(empty): %v", err)
	}
	if err := a.SetConfig(nil); err != nil {
		t.Fatalf("SetConfig(nil): %v", err)
	}
	MustGet(t, ctx, a, k, []byte("kept"))
}
