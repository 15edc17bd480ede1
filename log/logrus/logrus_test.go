package logrus

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/unkn0wn-root/kvcache"
)

func TestLevelsAndFields(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	l := New(base)

	l.Debug("d", nil)
	l.Info("i", kvcache.Fields{"key": "user:1"})
	boom := errors.New("boom")
	l.Warn("w", kvcache.Fields{"key": "k", "err": boom})
	l.Error("e", kvcache.Fields{"op": "clear"})

	entries := hook.AllEntries()
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	levels := []logrus.Level{logrus.DebugLevel, logrus.InfoLevel, logrus.WarnLevel, logrus.ErrorLevel}
	for i, e := range entries {
		if e.Level != levels[i] {
			t.Fatalf("entry %d level = %v, want %v", i, e.Level, levels[i])
		}
	}
	if entries[1].Data["key"] != "user:1" {
		t.Fatalf("fields missing: %v", entries[1].Data)
	}
	w := entries[2]
	if w.Data[logrus.ErrorKey] != boom {
		t.Fatalf("err not moved to %q: %v", logrus.ErrorKey, w.Data)
	}
	if _, ok := w.Data["err"]; ok {
		t.Fatalf("err key should be renamed")
	}
	if hook.LastEntry().Data["op"] != "clear" {
		t.Fatalf("last entry = %v", hook.LastEntry().Data)
	}
}

func TestLevelFiltering(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.WarnLevel)
	l := New(base)

	l.Debug("d", nil)
	l.Info("i", nil)
	l.Warn("w", nil)
	if len(hook.AllEntries()) != 1 {
		t.Fatalf("expected only warn, got %d entries", len(hook.AllEntries()))
	}
}
