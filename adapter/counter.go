package adapter

import (
	"bytes"
	"context"
	"strconv"
	"time"
)

// ParseCounter coerces a stored value to an integer. It reads an optional sign
// followed by leading digits after trimming whitespace; anything else is 0.
// "42" => 42, " -7 " => -7, "12abc" => 12, "abc" => 0, nil => 0.
func ParseCounter(raw []byte) int64 {
	b := bytes.TrimSpace(raw)
	end := 0
	if end < len(b) && (b[end] == '-' || b[end] == '+') {
		end++
	}
	digits := end
	for end < len(b) && b[end] >= '0' && b[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	// out of range values come back clamped to MinInt64/MaxInt64
	n, _ := strconv.ParseInt(string(b[:end]), 10, 64)
	return n
}

// FormatCounter is the stored representation of a counter value.
func FormatCounter(n int64) []byte {
	return strconv.AppendInt(nil, n, 10)
}

// ReadModifyWrite applies delta to the counter under key using a plain Get and
// Set. It is the non-atomic fallback shared by adapters without native counters.
func ReadModifyWrite(ctx context.Context, a Adapter, key string, delta int64, ttl time.Duration) (int64, error) {
	raw, _, err := a.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	n := ParseCounter(raw) + delta
	if err := a.Set(ctx, key, FormatCounter(n), ttl); err != nil {
		return 0, err
	}
	return n, nil
}
