package sloghooks

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/unkn0wn-root/kvcache/internal/util"
)

func newBufLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func TestKeysAreRedacted(t *testing.T) {
	l, buf := newBufLogger()
	h := New(l, Options{})

	h.WriteFailed("user:secret@example.com", "save", errors.New("boom"))
	out := buf.String()
	if strings.Contains(out, "secret@example.com") {
		t.Fatalf("raw key leaked: %s", out)
	}
	if !strings.Contains(out, util.Redact("user:secret@example.com")) || !strings.Contains(out, "op=save") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestCustomRedactor(t *testing.T) {
	l, buf := newBufLogger()
	h := New(l, Options{Redact: func(string) string { return "XXX" }})
	h.DecodeFailed("k", errors.New("bad"))
	if !strings.Contains(buf.String(), "key=XXX") {
		t.Fatalf("custom redactor not used: %s", buf.String())
	}
}

func TestSampling(t *testing.T) {
	l, buf := newBufLogger()
	h := New(l, Options{ReadFailedEvery: 5})
	for i := 0; i < 20; i++ {
		h.ReadFailed("k", errors.New("down"))
	}
	if got := strings.Count(buf.String(), "kvcache.read_failed"); got != 4 {
		t.Fatalf("expected 4 sampled lines, got %d", got)
	}
}

func TestOtherEventsAndNilLogger(t *testing.T) {
	l, buf := newBufLogger()
	h := New(l, Options{})
	h.BatchPartial("delete", 4, 2)
	h.AdapterSwapped("*ristretto.Adapter", "*redis.Adapter")
	out := buf.String()
	if !strings.Contains(out, "requested=4") || !strings.Contains(out, "to=*redis.Adapter") {
		t.Fatalf("unexpected output: %s", out)
	}

	quiet := New(nil, Options{})
	quiet.ReadFailed("k", nil)
	quiet.DecodeFailed("k", nil)
	quiet.WriteFailed("k", "save", nil)
	quiet.BatchPartial("save", 1, 1)
	quiet.AdapterSwapped("a", "b")
}
