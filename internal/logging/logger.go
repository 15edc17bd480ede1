// Package logging builds the process logger for the kvcache binary: JSON or
// text through logrus, zap, or slog, written to stdout or a rotated file.
package logging

import (
	"fmt"
	"io"
	stdslog "log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/unkn0wn-root/kvcache"
	kvlogrus "github.com/unkn0wn-root/kvcache/log/logrus"
	kvslog "github.com/unkn0wn-root/kvcache/log/slog"
	kvzap "github.com/unkn0wn-root/kvcache/log/zap"
)

type Options struct {
	Level      string // debug|info|warn|error; "" => info
	Format     string // json|text|zap|slog; "" => json
	FilePath   string // "" => stdout
	MaxSizeMB  int    // lumberjack rotation size; 0 => 100
	MaxBackups int
	Compress   bool

	// Output overrides FilePath, for tests.
	Output io.Writer
}

// Logger is what the binary logs through. Cache is the same sink seen as a
// kvcache.Logger, for Manager and the gateway.
type Logger struct {
	Logrus *logrus.Logger
	Cache  kvcache.Logger

	// Slog is set only for the slog format, where cache hooks report too.
	Slog  *stdslog.Logger
	close func() error
}

func (l *Logger) Close() error {
	if l.close == nil {
		return nil
	}
	return l.close()
}

// New builds the logger. An unwritable log file falls back to stdout and is
// reported as a warning rather than an error.
func New(opts Options) (*Logger, error) {
	level, err := logrus.ParseLevel(coalesce(opts.Level, "info"))
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	out, closer, outErr := buildOutput(opts)
	if outErr != nil {
		fmt.Fprintf(os.Stderr, "logger_fallback: %v\n", outErr)
	}

	lr := logrus.New()
	lr.SetLevel(level)
	lr.SetOutput(out)
	lr.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})

	l := &Logger{Logrus: lr, close: closer}

	switch format := strings.ToLower(coalesce(opts.Format, "json")); format {
	case "json":
		l.Cache = kvlogrus.New(lr)
	case "text":
		lr.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339Nano})
		l.Cache = kvlogrus.New(lr)
	case "zap":
		l.Cache = kvzap.New(newZap(out, level))
	case "slog":
		h := stdslog.NewJSONHandler(out, &stdslog.HandlerOptions{Level: slogLevel(level)})
		l.Slog = stdslog.New(h)
		l.Cache = kvslog.New(l.Slog)
	default:
		return nil, fmt.Errorf("logging: unknown format %q (json|text|zap|slog)", opts.Format)
	}

	if outErr != nil {
		lr.WithFields(logrus.Fields{
			"action": "logger_fallback",
			"path":   opts.FilePath,
		}).Warn(outErr.Error())
	}
	return l, nil
}

func buildOutput(opts Options) (io.Writer, func() error, error) {
	if opts.Output != nil {
		return opts.Output, nil, nil
	}
	if opts.FilePath == "" {
		return os.Stdout, nil, nil
	}

	dir := filepath.Dir(opts.FilePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return os.Stdout, nil, fmt.Errorf("create log directory: %w", err)
	}
	rotator := &lumberjack.Logger{
		Filename:   opts.FilePath,
		MaxSize:    coalesce(opts.MaxSizeMB, 100),
		MaxBackups: opts.MaxBackups,
		Compress:   opts.Compress,
		LocalTime:  true,
	}
	return rotator, rotator.Close, nil
}

func newZap(out io.Writer, level logrus.Level) *zap.Logger {
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(out), zapLevel(level))
	return zap.New(core, zap.AddCaller())
}

func zapLevel(l logrus.Level) zapcore.Level {
	switch {
	case l >= logrus.DebugLevel:
		return zapcore.DebugLevel
	case l == logrus.InfoLevel:
		return zapcore.InfoLevel
	case l == logrus.WarnLevel:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

func slogLevel(l logrus.Level) stdslog.Level {
	switch {
	case l >= logrus.DebugLevel:
		return stdslog.LevelDebug
	case l == logrus.InfoLevel:
		return stdslog.LevelInfo
	case l == logrus.WarnLevel:
		return stdslog.LevelWarn
	default:
		return stdslog.LevelError
	}
}

// BaseFields are attached to lifecycle log lines of the binary.
func BaseFields(action, driver string) logrus.Fields {
	return logrus.Fields{
		"action": action,
		"driver": driver,
	}
}

func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
