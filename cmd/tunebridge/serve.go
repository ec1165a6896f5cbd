package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tinoosan/tunebridge/internal/config"
	"github.com/tinoosan/tunebridge/internal/router"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(cfgPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local HTTP and WebSocket bridge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTP.Addr = addr
			}
			log, closer, err := newLogger(cfg, os.Stderr)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx := cmd.Context()
			a, err := newApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.close()
			a.start(ctx)

			if cfg.HTTP.Token == "" && !loopback(cfg.HTTP.Addr) {
				log.Warn("bridge listening beyond loopback without a token", "addr", cfg.HTTP.Addr)
			}

			server := &http.Server{
				Addr:              cfg.HTTP.Addr,
				Handler:           router.New(log, a.svc, a.lister, cfg.HTTP.Token),
				IdleTimeout:       120 * time.Second,
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("starting bridge", "addr", server.Addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return err
				}
			case <-ctx.Done():
				log.Info("received terminate, graceful shutdown")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Error("shutdown", "err", err)
			}
			a.drain(shutdownCtx)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides http.addr)")
	return cmd
}

func loopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
