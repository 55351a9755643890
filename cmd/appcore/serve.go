package main

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/appcore/internal/errors"
)

func serveCmd(load loadFunc) *cobra.Command {
	var (
		port int
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server for the current project.

Pages are rendered from the template directory, static files are served
from the static directory, and optional endpoints expose Prometheus
metrics and the WebSocket live transport.

Examples:
  appcore serve
  appcore serve --port=9090
  appcore serve --dev`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if dev {
				cfg.DevMode = true
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := newLogger(cfg, os.Stderr)
			srv, err := newServer(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer srv.Close()

			httpServer := &http.Server{
				Addr:              cfg.Address(),
				Handler:           srv.handler,
				ReadHeaderTimeout: 10 * time.Second,
			}

			success("Serving %s on http://%s", cfg.Name, cfg.Address())
			if cfg.Metrics.Enabled {
				info("metrics: %s", cfg.Metrics.Path)
			}
			if cfg.Live.Enabled {
				info("live:    %s", cfg.Live.Path)
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !stderrors.Is(err, http.ErrServerClosed) {
					return errors.New("E170").Wrap(err)
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("shutting down", "timeout", cfg.ShutdownTimeout())
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return errors.New("E170").WithDetail("Graceful shutdown did not finish").Wrap(err)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from config)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from config)")
	cmd.Flags().BoolVar(&dev, "dev", false, "Disable caching and pretty-print markup")

	return cmd
}
