package kvcache

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidKey is returned for keys no adapter can store safely.
var ErrInvalidKey = errors.New("kvcache: invalid key")

// ErrNilAdapter is returned when a Manager would be left without a store.
var ErrNilAdapter = errors.New("kvcache: adapter is required")

// BatchError reports the members of a batch that failed. Members not listed
// were applied; a batch is never rolled back.
type BatchError struct {
	Op        string           // "save" | "delete"
	Requested int              // members in the batch
	Failed    map[string]error // key -> cause
}

func (e *BatchError) Error() string {
	keys := e.Keys()
	const show = 3
	var sb strings.Builder
	fmt.Fprintf(&sb, "kvcache: %s: %d of %d failed", e.Op, len(keys), e.Requested)
	for i, k := range keys {
		if i == show {
			fmt.Fprintf(&sb, "; and %d more", len(keys)-show)
			break
		}
		fmt.Fprintf(&sb, "; %q: %v", k, e.Failed[k])
	}
	return sb.String()
}

// Keys returns the failed keys, sorted.
func (e *BatchError) Keys() []string {
	keys := make([]string, 0, len(e.Failed))
	for k := range e.Failed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (e *BatchError) Unwrap() []error {
	keys := e.Keys()
	errs := make([]error, 0, len(keys))
	for _, k := range keys {
		errs = append(errs, e.Failed[k])
	}
	return errs
}
