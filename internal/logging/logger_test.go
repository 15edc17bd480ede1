package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/unkn0wn-root/kvcache"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("line is not json: %q", line)
		}
		out = append(out, rec)
	}
	return out
}

func TestFormatsWriteJSON(t *testing.T) {
	for _, format := range []string{"json", "zap", "slog"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := New(Options{Level: "info", Format: format, Output: &buf})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			defer l.Close()
			if (l.Slog != nil) != (format == "slog") {
				t.Fatalf("Slog set for format %q: %v", format, l.Slog != nil)
			}

			l.Cache.Debug("hidden", nil)
			l.Cache.Warn("save failed", kvcache.Fields{"key": "k"})

			recs := decodeLines(t, &buf)
			if len(recs) != 1 {
				t.Fatalf("expected 1 record, got %d: %s", len(recs), buf.String())
			}
			if recs[0]["msg"] != "save failed" || recs[0]["key"] != "k" {
				t.Fatalf("unexpected record %v", recs[0])
			}
		})
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Format: "text", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Cache.Info("ready", kvcache.Fields{"driver": "bolt"})
	if !strings.Contains(buf.String(), "driver=bolt") {
		t.Fatalf("unexpected text output %q", buf.String())
	}
}

func TestInvalidOptions(t *testing.T) {
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatalf("expected error for bad level")
	}
	if _, err := New(Options{Format: "xml", Output: &bytes.Buffer{}}); err == nil {
		t.Fatalf("expected error for bad format")
	}
}

func TestRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "kvcache.log")
	l, err := New(Options{FilePath: path, Level: "debug"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Logrus.WithFields(BaseFields("startup", "null")).Info("up")
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !bytes.Contains(b, []byte(`"action":"startup"`)) {
		t.Fatalf("unexpected file contents %s", b)
	}
}
