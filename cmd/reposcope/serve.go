package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/reposcope/internal/embeddings"
	"github.com/fyrsmithlabs/reposcope/internal/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reposcope HTTP API server",
	Long: `Run the reposcope HTTP API server.

Examples:
  # Start with defaults (localhost:9191)
  reposcope serve

  # Configure via environment
  REPOSCOPE_SERVER_PORT=8080 reposcope serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, gh, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	embedder, err := embeddings.NewService(cfg.Embeddings)
	if err != nil {
		return err
	}

	server, err := httpapi.NewServer(gh, embedder, logger, &httpapi.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}

	logger.Info("server shutdown complete")
	return nil
}
