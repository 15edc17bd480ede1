package adapter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var longUnits = map[byte]time.Duration{
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
}

// ParseExpiry converts an expiry shorthand into a duration.
//
// Accepted forms: plain seconds ("3600"), Go durations ("90s", "1h30m") and
// day/week counts ("2d", "1w"). An empty string yields DefaultExpiry.
// "0" yields NoExpiry, as a zero TTL means "keep forever" on the wire.
func ParseExpiry(s string) (time.Duration, error) {
	raw := strings.TrimSpace(strings.ToLower(s))
	if raw == "" {
		return DefaultExpiry, nil
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("kvcache: negative expiry %q", s)
		}
		return FromSeconds(secs), nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return positive(d, s)
	}
	if unit, ok := longUnits[raw[len(raw)-1]]; ok {
		n, err := strconv.ParseFloat(raw[:len(raw)-1], 64)
		if err == nil {
			return positive(time.Duration(n*float64(unit)), s)
		}
	}
	return 0, fmt.Errorf("kvcache: invalid expiry %q", s)
}

// FromSeconds maps a wire TTL in seconds to a duration. Non-positive values
// mean no expiry.
func FromSeconds(secs int64) time.Duration {
	if secs <= 0 {
		return NoExpiry
	}
	if secs > math.MaxInt64/int64(time.Second) {
		return NoExpiry
	}
	return time.Duration(secs) * time.Second
}

func positive(d time.Duration, src string) (time.Duration, error) {
	if d < 0 {
		return 0, fmt.Errorf("kvcache: negative expiry %q", src)
	}
	if d == 0 {
		return NoExpiry, nil
	}
	return d, nil
}

// ResolveTTL maps a per-call ttl onto the adapter default.
// The result is either NoExpiry or a positive duration.
func ResolveTTL(ttl, def time.Duration) time.Duration {
	if ttl == DefaultExpiry {
		ttl = def
	}
	if ttl <= 0 {
		return NoExpiry
	}
	return ttl
}

// Seconds rounds a positive ttl up to whole seconds. NoExpiry yields 0.
func Seconds(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	s := int64(ttl / time.Second)
	if ttl%time.Second != 0 {
		s++
	}
	return s
}
