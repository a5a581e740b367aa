package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/bagboard/internal/app"
	"github.com/bobmcallan/bagboard/internal/common"
	"github.com/bobmcallan/bagboard/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, *configPath)
		},
	}
}

// runServe starts the API and blocks until the command context is cancelled
// by SIGINT or SIGTERM.
func runServe(cmd *cobra.Command, configPath string) error {
	ctx := cmd.Context()

	a, err := app.NewApp(ctx, configPath)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}
	defer a.Close()

	common.PrintBanner(a.Config, a.Logger)

	// Start background services
	a.StartWarmCache()
	a.StartSessionScheduler(app.DefaultPurgeInterval)

	srv := server.NewServer(a)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	a.Logger.Info().
		Str("url", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)).
		Msg("Server ready")

	select {
	case <-ctx.Done():
		a.Logger.Info().Msg("Shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	common.PrintShutdownBanner(a.Logger)
	return nil
}
