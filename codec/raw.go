package codec

import (
	"fmt"
	"strconv"

	"github.com/unkn0wn-root/kvcache/adapter"
)

// Bytes is the identity codec for []byte values.
type Bytes struct{}

func (Bytes) Encode(b []byte) ([]byte, error) { return b, nil }
func (Bytes) Decode(b []byte) ([]byte, error) { return b, nil }

// String stores Go strings as their raw bytes. No UTF-8 validation.
type String struct{}

func (String) Encode(s string) ([]byte, error) { return []byte(s), nil }
func (String) Decode(b []byte) (string, error) { return string(b), nil }

// Int64 uses the decimal text written by adapter Increment and Decrement,
// so an Item[int64] reads counters directly.
type Int64 struct {
	// Lenient decodes like the counters do: leading digits, anything else 0.
	Lenient bool
}

func (Int64) Encode(n int64) ([]byte, error) { return adapter.FormatCounter(n), nil }

func (c Int64) Decode(b []byte) (int64, error) {
	if c.Lenient {
		return adapter.ParseCounter(b), nil
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not a counter: %q", truncate(b, 32))
	}
	return n, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
