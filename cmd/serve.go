package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/vibetrack/internal/app"
	"github.com/lehigh-university-libraries/vibetrack/internal/handlers"
	"github.com/lehigh-university-libraries/vibetrack/internal/storage"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		port    int
		host    string
		origins []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Starts the Vibetrack HTTP API.

Clients create a session, upload images to it, start an analysis and poll
the session until results arrive. Prometheus metrics are served at /metrics.`,
		Example: `  # Start server on the configured port (default 8888)
  vibetrack serve

  # Start server on custom port
  vibetrack serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}

			services, err := app.New(cfg)
			if err != nil {
				return err
			}

			sessions := storage.New()
			handler := handlers.New(services, sessions, cfg.Server.MaxUploadBytes)

			evictCtx, stopEvict := context.WithCancel(cmd.Context())
			defer stopEvict()
			go sessions.EvictIdleEvery(evictCtx, min(cfg.Server.SessionTTL, time.Minute), cfg.Server.SessionTTL)

			addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
			server := &http.Server{
				Addr: addr,
				Handler: handler.Router(handlers.RouterOptions{
					AllowedOrigins:       origins,
					AnalyzeRatePerMinute: cfg.Server.AnalyzeRatePerMinute,
				}),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Vibetrack API available", "addr", addr, "provider", services.Provider, "model", services.Model)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				closed := sessions.CloseAll()
				slog.Info("Server stopped", "sessions_closed", closed, "previews_live", services.Previews.Live())
				return nil
			case err := <-serverErr:
				sessions.CloseAll()
				return fmt.Errorf("server failed: %w", err)
			}
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8888, "Port to listen on")
	cmd.Flags().StringVar(&host, "host", "", "Interface to bind (default all)")
	cmd.Flags().StringSliceVar(&origins, "cors-origin", nil, "Allowed CORS origins (default any)")

	return cmd
}
