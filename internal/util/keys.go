package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// Scoped prefixes key with ns and sep. An empty ns leaves key unchanged.
func Scoped(ns, sep, key string) string {
	if ns == "" {
		return key
	}
	return ns + sep + key
}

// Redact returns the first 16 hex chars of the key's SHA-256, for logs.
func Redact(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}
