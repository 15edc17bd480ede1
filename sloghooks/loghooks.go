// Package sloghooks reports kvcache.Hooks events through log/slog, with
// sampling for the noisy ones and keys redacted by default.
package sloghooks

import (
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/kvcache"
	"github.com/unkn0wn-root/kvcache/internal/util"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	ReadFailedEvery   uint64
	DecodeFailedEvery uint64
	// Optional key redactor. Defaults to a SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	readCtr   atomic.Uint64
	decodeCtr atomic.Uint64
}

var _ kvcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if k == "" {
		return ""
	}
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	return util.Redact(k)
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) ReadFailed(key string, err error) {
	if h.l == nil || !sample(h.opts.ReadFailedEvery, &h.readCtr) {
		return
	}
	h.l.Warn("kvcache.read_failed",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) DecodeFailed(key string, err error) {
	if h.l == nil || !sample(h.opts.DecodeFailedEvery, &h.decodeCtr) {
		return
	}
	h.l.Warn("kvcache.decode_failed",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) WriteFailed(key, op string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("kvcache.write_failed",
		"key", h.redact(key),
		"op", op,
		"err", err)
}

func (h *Hooks) BatchPartial(op string, requested, failed int) {
	if h.l == nil {
		return
	}
	h.l.Warn("kvcache.batch_partial",
		"op", op,
		"requested", requested,
		"failed", failed)
}

func (h *Hooks) AdapterSwapped(from, to string) {
	if h.l == nil {
		return
	}
	h.l.Info("kvcache.adapter_swapped",
		"from", from,
		"to", to)
}
