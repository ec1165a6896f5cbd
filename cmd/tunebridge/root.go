package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinoosan/tunebridge/internal/bridge"
	"github.com/tinoosan/tunebridge/internal/config"
	"github.com/tinoosan/tunebridge/internal/host"
	"github.com/tinoosan/tunebridge/internal/nativemsg"
)

func newRootCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "tunebridge [origin]",
		Short: "Native messaging host for the gamdl browser extension",
		Long: `tunebridge speaks Chrome native messaging on stdin/stdout and launches
gamdl for each download request. The browser starts it with the calling
extension's origin (and on Windows a --parent-window flag); both are ignored.`,
		// the browser's arguments are not ours to validate
		Args:               cobra.ArbitraryArgs,
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			log, closer, err := newLogger(cfg, nil)
			if err != nil {
				return err
			}
			defer closer.Close()
			log.Info("native host started", "args", args, "pid", os.Getpid())
			return runNative(cmd.Context(), cfg, log, os.Stdin, os.Stdout)
		},
	}
	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.tunebridge/config.yaml)")
	cmd.AddCommand(newServeCmd(&cfgPath))
	return cmd
}

// runNative serves one native messaging session. With bridge.url set and
// the daemon reachable, requests are relayed to it; otherwise they are
// handled in process and the session waits for its downloads before
// returning.
func runNative(ctx context.Context, cfg *config.Config, log *slog.Logger, in io.Reader, out io.Writer) error {
	if cfg.Bridge.URL != "" {
		sess, err := dialBridge(ctx, cfg)
		if err == nil {
			defer sess.Close()
			log.Info("relaying to bridge", "url", cfg.Bridge.URL)
			return nativemsg.NewHost(log, sess).Serve(ctx, in, out)
		}
		log.Warn("bridge unavailable, handling requests in process", "url", cfg.Bridge.URL, "err", err)
	}

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.close()
	a.start(ctx)

	d := host.NewDispatcher(log, a.svc, a.lister)
	err = nativemsg.NewHost(log, d).Serve(ctx, in, out)
	a.drain(ctx)
	return err
}

func dialBridge(ctx context.Context, cfg *config.Config) (*bridge.Session, error) {
	c, err := bridge.NewClient(cfg.Bridge.URL, cfg.HTTP.Token, bridge.DefaultTimeout)
	if err != nil {
		return nil, err
	}
	dctx, cancel := context.WithTimeout(ctx, bridge.DefaultTimeout)
	defer cancel()
	if err := c.Ping(dctx); err != nil {
		return nil, err
	}
	return c.Dial(dctx)
}
