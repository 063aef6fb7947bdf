package main

import (
	"github.com/spf13/cobra"

	"github.com/hejijunhao/tagger/internal/config"
	"github.com/hejijunhao/tagger/internal/logging"
)

// cfg is loaded from the environment before any command runs; flags that
// were set explicitly override it.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:           "tagger",
	Short:         "Zero-shot product photo categorization",
	Long:          "tagger scores product photos against a category hierarchy using CLIP embeddings and prompt ensembles.",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		applyFlags(cmd, &cfg)
		jsonLogs, _ := cmd.Flags().GetBool("log-json")
		logging.Init(jsonLogs, logging.ParseLevel(cfg.Log.Level))
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("log-level", "", "log level: debug, info, warn, error (overrides TAGGER_LOG_LEVEL)")
	pf.Bool("log-json", false, "emit JSON logs")
	pf.String("taxonomy", "", "YAML or JSON taxonomy file (overrides TAGGER_TAXONOMY_PATH)")
	pf.String("backend", "", "embedding backend: onnx or http (overrides TAGGER_BACKEND)")
	pf.String("model-dir", "", "directory with the ONNX model files (overrides TAGGER_MODEL_DIR)")
	pf.String("backend-url", "", "base URL of the http backend (overrides TAGGER_BACKEND_URL)")
	pf.String("cache", "", "text embedding cache: none, memory, redis, badger (overrides TAGGER_CACHE)")
	pf.Float64("threshold", 0, "confidence threshold (overrides TAGGER_CONFIDENCE_THRESHOLD)")
	pf.Int("max-results", 0, "maximum categories per image (overrides TAGGER_MAX_RESULTS)")
	pf.Int("top-m", 0, "candidates considered before thresholding (overrides TAGGER_TOP_M)")
	pf.Int("fallback-count", 0, "categories returned when none clear the threshold (overrides TAGGER_FALLBACK_COUNT)")

	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(labelsCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// applyFlags copies every explicitly set persistent flag into c.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	f := cmd.Flags()
	if f.Changed("log-level") {
		c.Log.Level, _ = f.GetString("log-level")
	}
	if f.Changed("taxonomy") {
		c.Engine.TaxonomyPath, _ = f.GetString("taxonomy")
	}
	if f.Changed("backend") {
		c.Backend.Kind, _ = f.GetString("backend")
	}
	if f.Changed("model-dir") {
		c.Backend.ModelDir, _ = f.GetString("model-dir")
	}
	if f.Changed("backend-url") {
		c.Backend.URL, _ = f.GetString("backend-url")
	}
	if f.Changed("cache") {
		c.Cache.Kind, _ = f.GetString("cache")
	}
	if f.Changed("threshold") {
		c.Engine.ConfidenceThreshold, _ = f.GetFloat64("threshold")
	}
	if f.Changed("max-results") {
		c.Engine.MaxResults, _ = f.GetInt("max-results")
	}
	if f.Changed("top-m") {
		c.Engine.TopM, _ = f.GetInt("top-m")
	}
	if f.Changed("fallback-count") {
		c.Engine.FallbackCount, _ = f.GetInt("fallback-count")
	}
}
