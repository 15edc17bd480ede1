package cli

import (
	"errors"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/kvcache/adapter"
	"github.com/unkn0wn-root/kvcache/internal/gateway"
	"github.com/unkn0wn-root/kvcache/internal/logging"
)

// ErrNotFound is returned by get for a missing key.
var ErrNotFound = errors.New("not found")

func newGetCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Print the value stored under KEY",
		Args:  cobra.ExactArgs(1),
		RunE: s.run(func(cmd *cobra.Command, args []string) error {
			it, err := s.mgr.GetItem(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !it.IsHit() {
				if rerr := it.ReadErr(); rerr != nil {
					return fmt.Errorf("%s: %w", args[0], rerr)
				}
				return fmt.Errorf("%s: %w", args[0], ErrNotFound)
			}
			printf(cmd, "%s\n", it.Get())
			return nil
		}),
	}
}

func newSetCmd(s *session) *cobra.Command {
	var ttl string
	cmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Store VALUE under KEY",
		Args:  cobra.ExactArgs(2),
		RunE: s.run(func(cmd *cobra.Command, args []string) error {
			d, err := adapter.ParseExpiry(ttl)
			if err != nil {
				return err
			}
			it, err := s.mgr.GetItem(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return it.SaveValue(cmd.Context(), args[1], d)
		}),
	}
	cmd.Flags().StringVar(&ttl, "ttl", "", `expiry: seconds or shorthand ("90s", "1h", "2d"); empty uses the store default, 0 keeps forever`)
	return cmd
}

func newPersistCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "persist KEY VALUE",
		Short: "Store VALUE under KEY without expiry",
		Args:  cobra.ExactArgs(2),
		RunE: s.run(func(cmd *cobra.Command, args []string) error {
			it, err := s.mgr.GetItem(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return it.SaveValue(cmd.Context(), args[1], adapter.NoExpiry)
		}),
	}
}

func newDeleteCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "delete KEY...",
		Short: "Delete one or more keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: s.run(func(cmd *cobra.Command, args []string) error {
			return s.mgr.DeleteItems(cmd.Context(), args)
		}),
	}
}

func newCounterCmd(s *session, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " KEY [OFFSET]",
		Short: short + " and print the new value",
		Args:  cobra.RangeArgs(1, 2),
		RunE: s.run(func(cmd *cobra.Command, args []string) error {
			offset := int64(1)
			if len(args) == 2 {
				n, err := strconv.ParseInt(args[1], 10, 64)
				if err != nil {
					return fmt.Errorf("offset %q: %w", args[1], err)
				}
				offset = n
			}
			var (
				n   int64
				err error
			)
			if use == "incr" {
				n, err = s.mgr.Increment(cmd.Context(), args[0], offset)
			} else {
				n, err = s.mgr.Decrement(cmd.Context(), args[0], offset)
			}
			if err != nil {
				return err
			}
			printf(cmd, "%d\n", n)
			return nil
		}),
	}
}

func newFlushCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Remove every entry in the store's namespace",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, _ []string) error {
			return s.mgr.Clear(cmd.Context())
		}),
	}
}

func newServeCmd(s *session) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the store over the etcd v2 keys API",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = s.v.GetString("serve.addr")
			}
			app, err := gateway.NewApp(gateway.Options{
				Adapter: s.mgr.Adapter(),
				Logger:  s.log.Logrus,
				Timeout: s.v.GetDuration("serve.timeout"),
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				_ = app.ShutdownWithTimeout(5 * time.Second)
			}()

			fields := logging.BaseFields("listen", s.driver)
			fields["addr"] = addr
			s.log.Logrus.WithFields(fields).Info("gateway listening")
			return app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
		}),
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from serve.addr, \":4001\")")
	return cmd
}
