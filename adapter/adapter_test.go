package adapter

import (
	"context"
	"testing"
	"time"
)

func TestParseExpiry(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"", DefaultExpiry},
		{"0", NoExpiry},
		{"3600", time.Hour},
		{"90s", 90 * time.Second},
		{"15m", 15 * time.Minute},
		{"1h", time.Hour},
		{"1h30m", 90 * time.Minute},
		{"2d", 48 * time.Hour},
		{"1w", 7 * 24 * time.Hour},
		{" 1H ", time.Hour},
	}
	for _, tc := range cases {
		got, err := ParseExpiry(tc.in)
		if err != nil {
			t.Fatalf("ParseExpiry(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseExpiry(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"abc", "d", "-5s", "-5", "1y"} {
		if _, err := ParseExpiry(bad); err == nil {
			t.Fatalf("ParseExpiry(%q) should fail", bad)
		}
	}
}

func TestResolveTTLAndSeconds(t *testing.T) {
	if got := ResolveTTL(DefaultExpiry, time.Minute); got != time.Minute {
		t.Fatalf("default ttl: got %v", got)
	}
	if got := ResolveTTL(DefaultExpiry, 0); got != NoExpiry {
		t.Fatalf("unset default should be permanent, got %v", got)
	}
	if got := ResolveTTL(NoExpiry, time.Minute); got != NoExpiry {
		t.Fatalf("explicit no-expiry overridden: %v", got)
	}
	if got := ResolveTTL(5*time.Second, time.Minute); got != 5*time.Second {
		t.Fatalf("explicit ttl: got %v", got)
	}

	if s := Seconds(1500 * time.Millisecond); s != 2 {
		t.Fatalf("Seconds rounds up, got %d", s)
	}
	if s := Seconds(NoExpiry); s != 0 {
		t.Fatalf("Seconds(NoExpiry) = %d", s)
	}
}

func TestParseCounter(t *testing.T) {
	cases := map[string]int64{
		"":      0,
		"42":    42,
		" -7 ":  -7,
		"+3":    3,
		"12abc": 12,
		"abc":   0,
		"-":     0,
		"1e3":   1,
	}
	for in, want := range cases {
		if got := ParseCounter([]byte(in)); got != want {
			t.Fatalf("ParseCounter(%q) = %d, want %d", in, got, want)
		}
	}
	if got := ParseCounter(nil); got != 0 {
		t.Fatalf("ParseCounter(nil) = %d", got)
	}
	if string(FormatCounter(-15)) != "-15" {
		t.Fatalf("FormatCounter mismatch")
	}
}

func TestParseSettings(t *testing.T) {
	s, err := ParseSettings(nil)
	if err != nil {
		t.Fatalf("ParseSettings(nil): %v", err)
	}
	if s.Expiry != nil || s.URL != nil {
		t.Fatalf("empty config should leave all fields nil: %+v", s)
	}

	s, err = ParseSettings(Config{
		"host":         "http://10.0.0.1:4001",
		"expiry":       "1h",
		"timeout":      3,
		"prefix":       "app",
		"max_cost":     "1024",
		"unknown_knob": true,
	})
	if err != nil {
		t.Fatalf("ParseSettings: %v", err)
	}
	if addr, ok := s.Address(); !ok || addr != "http://10.0.0.1:4001" {
		t.Fatalf("Address = %q, %v", addr, ok)
	}
	if s.Expiry == nil || *s.Expiry != time.Hour {
		t.Fatalf("expiry not decoded: %v", s.Expiry)
	}
	if s.Timeout == nil || *s.Timeout != 3*time.Second {
		t.Fatalf("timeout seconds not decoded: %v", s.Timeout)
	}
	if ns, ok := s.Scope(); !ok || ns != "app" {
		t.Fatalf("Scope = %q, %v", ns, ok)
	}
	if s.MaxCost == nil || *s.MaxCost != 1024 {
		t.Fatalf("max_cost weak decode failed: %v", s.MaxCost)
	}

	s, err = ParseSettings(Config{"URL": "http://a", "host": "http://b", "expiry": 0})
	if err != nil {
		t.Fatalf("ParseSettings: %v", err)
	}
	if addr, _ := s.Address(); addr != "http://a" {
		t.Fatalf("url should win over host, got %q", addr)
	}
	if s.Expiry == nil || *s.Expiry != 0 {
		t.Fatalf("expiry 0 should decode to 0, got %v", s.Expiry)
	}

	if _, err := ParseSettings(Config{"expiry": "soon"}); err == nil {
		t.Fatalf("invalid expiry should fail")
	}
}

type mapAdapter struct {
	m       map[string][]byte
	lastTTL time.Duration
}

func (a *mapAdapter) Get(_ context.Context, k string) ([]byte, bool, error) {
	v, ok := a.m[k]
	return v, ok, nil
}
func (a *mapAdapter) Set(_ context.Context, k string, v []byte, ttl time.Duration) error {
	a.m[k] = v
	a.lastTTL = ttl
	return nil
}
func (a *mapAdapter) Delete(_ context.Context, k string) error { delete(a.m, k); return nil }
func (a *mapAdapter) Persist(ctx context.Context, k string, v []byte) error {
	return a.Set(ctx, k, v, NoExpiry)
}
func (a *mapAdapter) Increment(ctx context.Context, k string, o int64) (int64, error) {
	return ReadModifyWrite(ctx, a, k, o, DefaultExpiry)
}
func (a *mapAdapter) Decrement(ctx context.Context, k string, o int64) (int64, error) {
	return ReadModifyWrite(ctx, a, k, -o, DefaultExpiry)
}
func (a *mapAdapter) Flush(context.Context) error { a.m = map[string][]byte{}; return nil }
func (a *mapAdapter) SetConfig(Config) error      { return nil }
func (a *mapAdapter) Close(context.Context) error { return nil }

func TestReadModifyWrite(t *testing.T) {
	ctx := context.Background()
	a := &mapAdapter{m: map[string][]byte{}}

	n, err := a.Increment(ctx, "counter", 10)
	if err != nil || n != 10 {
		t.Fatalf("Increment on absent key: n=%d err=%v", n, err)
	}
	if string(a.m["counter"]) != "10" {
		t.Fatalf("stored %q", a.m["counter"])
	}
	if a.lastTTL != DefaultExpiry {
		t.Fatalf("counter write should use default expiry, got %v", a.lastTTL)
	}

	a.m["n"] = []byte("150")
	if n, _ := a.Decrement(ctx, "n", 10); n != 140 {
		t.Fatalf("Decrement = %d, want 140", n)
	}
	if IsAtomic(a) {
		t.Fatalf("mapAdapter does not declare atomic counters")
	}
}
