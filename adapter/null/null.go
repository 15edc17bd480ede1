// Package null is the no-op adapter for environments where caching is not
// wanted. Nothing is stored; every Get misses.
package null

import (
	"context"
	"time"

	"github.com/unkn0wn-root/kvcache/adapter"
)

type Adapter struct{}

var _ adapter.Adapter = Adapter{}

func New() Adapter { return Adapter{} }

func (Adapter) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (Adapter) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Adapter) Delete(context.Context, string) error                     { return nil }
func (Adapter) Persist(context.Context, string, []byte) error            { return nil }
func (Adapter) Flush(context.Context) error                              { return nil }
func (Adapter) SetConfig(adapter.Config) error                           { return nil }
func (Adapter) Close(context.Context) error                              { return nil }

// Increment reports the result against an absent value; nothing is kept.
func (Adapter) Increment(_ context.Context, _ string, offset int64) (int64, error) {
	return offset, nil
}

func (Adapter) Decrement(_ context.Context, _ string, offset int64) (int64, error) {
	return -offset, nil
}
