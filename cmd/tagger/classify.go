package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hejijunhao/tagger/internal/engine"
	"github.com/hejijunhao/tagger/internal/engine/classifier"
	"github.com/hejijunhao/tagger/internal/model"
	"github.com/hejijunhao/tagger/internal/output/stdout"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <image>...",
	Short: "Classify image files and print one JSON record per image",
	Long:  "classify scores each image against the taxonomy and prints one JSON record per line. Use - to read an image from stdin.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runClassify,
}

func init() {
	classifyCmd.Flags().Bool("pretty", false, "indent JSON output")
}

func runClassify(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("pretty") {
		cfg.Output.Pretty, _ = cmd.Flags().GetBool("pretty")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, closeBackend, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	out := stdout.NewWriter(cmd.OutOrStdout(), cfg.Output.Pretty)
	policy := eng.Policy()

	failed := 0
	for _, path := range args {
		rec, err := classifyPath(ctx, eng, path, policy, cmd.InOrStdin())
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Error("classify failed", "path", path, "error", err)
			failed++
			continue
		}
		if err := out.Write(ctx, rec); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(args))
	}
	return nil
}

func classifyPath(ctx context.Context, eng *engine.Engine, path string, policy classifier.Policy, stdin io.Reader) (model.Classification, error) {
	if path == "-" {
		return eng.Record(ctx, "stdin", stdin, policy)
	}
	f, err := os.Open(path)
	if err != nil {
		return model.Classification{}, model.WrapError(model.ErrInput, "open image", err)
	}
	defer f.Close()
	return eng.Record(ctx, path, f, policy)
}
