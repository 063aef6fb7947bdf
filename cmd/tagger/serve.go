package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hejijunhao/tagger/internal/engine"
	"github.com/hejijunhao/tagger/internal/metrics"
	"github.com/hejijunhao/tagger/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve classification over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides TAGGER_HTTP_ADDR)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr, _ = cmd.Flags().GetString("addr")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	eng, closeBackend, err := newEngine(ctx, cfg, engine.WithObserver(m))
	if err != nil {
		return err
	}
	defer closeBackend()

	// Requests arriving before warm-up finishes trigger it themselves.
	go func() {
		if err := eng.Warm(ctx); err != nil && ctx.Err() == nil {
			slog.Error("warm-up failed", "error", err)
		}
	}()

	srv := server.New(server.NewRouter(server.Deps{
		Classifier:     eng,
		Metrics:        m,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}), cfg.Server)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
