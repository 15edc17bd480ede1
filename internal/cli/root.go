// Package cli implements the kvcache command: one-shot cache operations
// against any driver, and an etcd v2 compatible gateway.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/unkn0wn-root/kvcache"
	"github.com/unkn0wn-root/kvcache/codec"
	"github.com/unkn0wn-root/kvcache/driver"
	asynchook "github.com/unkn0wn-root/kvcache/hooks/async"
	"github.com/unkn0wn-root/kvcache/internal/logging"
	"github.com/unkn0wn-root/kvcache/sloghooks"
)

// session is what every subcommand works with once flags and config are read.
type session struct {
	v      *viper.Viper
	log    *logging.Logger
	mgr    *kvcache.Manager[string]
	hooks  *asynchook.Hooks
	driver string
}

// run opens the store for a subcommand and releases it and the log file
// whether or not the subcommand fails. help and completion never open it.
func (s *session) run(fn func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := s.open(cmd); err != nil {
			return err
		}
		defer s.close(cmd.Context())
		return fn(cmd, args)
	}
}

func (s *session) close(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.mgr != nil {
		if err := s.mgr.Close(ctx); err != nil {
			s.log.Logrus.WithFields(logging.BaseFields("close", s.driver)).Warn(err.Error())
		}
		s.mgr = nil
	}
	if s.hooks != nil {
		s.hooks.Close()
		s.hooks = nil
	}
	if s.log != nil {
		_ = s.log.Close()
		s.log = nil
	}
}

// NewRootCmd builds the command tree. out receives command output.
func NewRootCmd(version string, out io.Writer) *cobra.Command {
	s := &session{}

	root := &cobra.Command{
		Use:           "kvcache",
		Short:         "Inspect and serve a kvcache store",
		Long:          `Run cache operations against a ristretto, bigcache, bolt, etcd, redis or null store, or serve one over the etcd v2 keys API.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (toml, yaml or json)")
	pf.String("driver", "", "store driver ("+driverList()+")")
	pf.String("log-level", "", "debug|info|warn|error")
	pf.String("log-format", "", "json|text|zap|slog")
	pf.String("log-file", "", "write logs to a rotated file instead of stdout")

	root.AddCommand(
		newGetCmd(s),
		newSetCmd(s),
		newPersistCmd(s),
		newDeleteCmd(s),
		newCounterCmd(s, "incr", "Increment a counter"),
		newCounterCmd(s, "decr", "Decrement a counter"),
		newFlushCmd(s),
		newServeCmd(s),
	)
	return root
}

func driverList() string { return strings.Join(driver.Names(), "|") }

func (s *session) open(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	v, err := newViper(path)
	if err != nil {
		return err
	}
	flags := map[string]string{
		"driver":     "driver",
		"log-level":  "log.level",
		"log-format": "log.format",
		"log-file":   "log.file",
	}
	for flag, key := range flags {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			v.Set(key, f.Value.String())
		}
	}
	s.v = v

	s.log, err = logging.New(logging.Options{
		Level:      v.GetString("log.level"),
		Format:     v.GetString("log.format"),
		FilePath:   v.GetString("log.file"),
		MaxSizeMB:  v.GetInt("log.max_size_mb"),
		MaxBackups: v.GetInt("log.max_backups"),
		Compress:   v.GetBool("log.compress"),
		Output:     logOutput,
	})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s.driver = v.GetString("driver")
	a, err := driver.Open(ctx, s.driver, adapterConfig(v))
	if err != nil {
		s.close(ctx)
		return err
	}
	opts := kvcache.Options[string]{
		Adapter: a,
		Codec:   codec.String{},
		Logger:  s.log.Cache,
	}
	if s.log.Slog != nil {
		s.hooks = asynchook.New(sloghooks.New(s.log.Slog, sloghooks.Options{}), 1, hookQueue)
		opts.Hooks = s.hooks
	}
	s.mgr, err = kvcache.New[string](opts)
	if err != nil {
		_ = a.Close(ctx)
		s.close(ctx)
		return err
	}
	s.log.Logrus.WithFields(logging.BaseFields("open", s.driver)).Debug("store ready")
	return nil
}

const hookQueue = 256

// logOutput is nil outside tests, which keeps logging.New on stdout or the
// configured file.
var logOutput io.Writer

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
