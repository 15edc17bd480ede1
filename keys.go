package kvcache

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// MaxKeyLen is the longest key accepted, in bytes (memcached's limit, which
// every supported store can hold).
const MaxKeyLen = 250

// ValidateKey rejects keys that are empty, longer than MaxKeyLen, not valid
// UTF-8, or that contain whitespace or control characters.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	case len(key) > MaxKeyLen:
		return fmt.Errorf("%w: %d bytes, max %d", ErrInvalidKey, len(key), MaxKeyLen)
	case !utf8.ValidString(key):
		return fmt.Errorf("%w: not utf-8", ErrInvalidKey)
	}
	for i, r := range key {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("%w: %U at byte %d", ErrInvalidKey, r, i)
		}
	}
	return nil
}

func validateKeys(keys []string) error {
	for _, k := range keys {
		if err := ValidateKey(k); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
	}
	return nil
}
