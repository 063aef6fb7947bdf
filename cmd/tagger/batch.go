package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hejijunhao/tagger/internal/pipeline"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Classify every image in a source and send records to the configured outputs",
	Args:  cobra.NoArgs,
	RunE:  runBatch,
}

func init() {
	f := batchCmd.Flags()
	f.Int("workers", 0, "images classified concurrently (overrides TAGGER_WORKERS)")
	f.String("source", "", "image source: localfs or minio (overrides TAGGER_SOURCE)")
	f.String("path", "", "directory for the localfs source (overrides TAGGER_SOURCE_PATH)")
	f.StringSlice("output", nil, "outputs: stdout, file, webhook, kafka, nats (overrides TAGGER_OUTPUT)")
	f.String("output-file", "", "NDJSON file for the file output (overrides TAGGER_OUTPUT_FILE)")
}

func runBatch(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	if f.Changed("workers") {
		cfg.Workers, _ = f.GetInt("workers")
	}
	if f.Changed("source") {
		cfg.Source.Provider, _ = f.GetString("source")
	}
	if f.Changed("path") {
		cfg.Source.Path, _ = f.GetString("path")
	}
	if f.Changed("output") {
		cfg.Output.Kinds, _ = f.GetStringSlice("output")
	}
	if f.Changed("output-file") {
		cfg.Output.FilePath, _ = f.GetString("output-file")
	}
	if err := errors.Join(cfg.Validate(), cfg.ValidateBatch()); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := openSource(cfg.Source)
	if err != nil {
		return err
	}
	eng, closeBackend, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend()
	if err := eng.Warm(ctx); err != nil {
		return err
	}

	out, err := openOutputs(cfg.Output, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	p := pipeline.New(src, eng, out, cfg.Workers)
	stats, runErr := p.Run(ctx)
	closeErr := p.Close()

	slog.Info("batch finished",
		"listed", stats.Listed,
		"classified", stats.Classified,
		"failed", stats.Failed,
		"fallback", stats.Fallback,
		"elapsed", stats.Elapsed,
	)
	if err := errors.Join(runErr, closeErr); err != nil {
		return err
	}
	if stats.Failed > 0 {
		return fmt.Errorf("%d of %d images failed", stats.Failed, stats.Listed)
	}
	return nil
}
