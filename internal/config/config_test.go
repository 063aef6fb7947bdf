package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hejijunhao/tagger/internal/engine/embedder"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"TAGGER_CONFIDENCE_THRESHOLD", "TAGGER_TOP_M", "TAGGER_FALLBACK_COUNT", "TAGGER_MAX_RESULTS",
		"TAGGER_BACKEND", "TAGGER_CACHE", "TAGGER_OUTPUT", "TAGGER_HTTP_ADDR", "TAGGER_WORKERS",
		"TAGGER_MAX_UPLOAD_BYTES", "TAGGER_BACKEND_TIMEOUT",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, 0.25, cfg.Engine.ConfidenceThreshold)
	assert.Equal(t, 5, cfg.Engine.TopM)
	assert.Equal(t, 3, cfg.Engine.FallbackCount)
	assert.Equal(t, 3, cfg.Engine.MaxResults)
	assert.Equal(t, "onnx", cfg.Backend.Kind)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "none", cfg.Cache.Kind)
	assert.Equal(t, []string{"stdout"}, cfg.Output.Kinds)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, int64(16<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, 4, cfg.Workers)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TAGGER_CONFIDENCE_THRESHOLD", "0.15")
	t.Setenv("TAGGER_TOP_M", "10")
	t.Setenv("TAGGER_FALLBACK_COUNT", "4")
	t.Setenv("TAGGER_OUTPUT", "stdout, kafka ,,nats")
	t.Setenv("TAGGER_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("TAGGER_CACHE_TTL", "12h")
	t.Setenv("TAGGER_MINIO_USE_SSL", "false")

	cfg := Load()
	assert.Equal(t, 0.15, cfg.Engine.ConfidenceThreshold)
	assert.Equal(t, 10, cfg.Engine.TopM)
	assert.Equal(t, 4, cfg.Engine.FallbackCount)
	assert.Equal(t, []string{"stdout", "kafka", "nats"}, cfg.Output.Kinds)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Output.KafkaBrokers)
	assert.Equal(t, 12*time.Hour, cfg.Cache.TTL)
	assert.False(t, cfg.Source.Minio.UseSSL)
}

func TestGetenvFallbacks(t *testing.T) {
	const key = "TAGGER_TEST_GETENV"
	tests := []struct {
		name string
		val  string
		want int
	}{
		{"empty uses fallback", "", 1000},
		{"valid int", "500", 500},
		{"zero", "0", 0},
		{"invalid falls back", "abc", 1000},
		{"negative", "-1", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(key, tt.val)
			assert.Equal(t, tt.want, getenvInt(key, 1000))
		})
	}

	t.Setenv(key, "soon")
	assert.Equal(t, time.Second, getenvDuration(key, time.Second))
	assert.True(t, getenvBool(key, true))
	assert.Equal(t, 0.5, getenvFloat(key, 0.5))
}

// validConfig returns a config whose model files exist.
func validConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	p := embedder.PathsFromDir(dir)
	for _, f := range []string{p.VisionModel, p.TextModel, p.Vocab, p.Projection} {
		require.NoError(t, os.MkdirAll(filepath.Dir(f), 0o755))
		require.NoError(t, os.WriteFile(f, []byte("x"), 0o644))
	}
	return Config{
		Engine:  EngineConfig{ConfidenceThreshold: 0.25, TopM: 5, FallbackCount: 3, MaxResults: 3},
		Backend: BackendConfig{Kind: "onnx", ModelDir: dir, Timeout: time.Second},
		Cache:   CacheConfig{Kind: "none"},
		Source:  SourceConfig{Provider: "localfs", Path: dir},
		Output:  OutputConfig{Kinds: []string{"stdout"}},
		Server:  ServerConfig{MaxUploadBytes: 1 << 20},
		Workers: 2,
	}
}

func TestValidateValidConfig(t *testing.T) {
	cfg := validConfig(t)
	require.NoError(t, cfg.Validate())
	require.NoError(t, cfg.ValidateBatch())
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"threshold", func(c *Config) { c.Engine.ConfidenceThreshold = 1.5 }, "confidence"},
		{"top-m", func(c *Config) { c.Engine.TopM = 0 }, "TAGGER_TOP_M"},
		{"fallback", func(c *Config) { c.Engine.FallbackCount = 0 }, "TAGGER_FALLBACK_COUNT"},
		{"max results", func(c *Config) { c.Engine.MaxResults = -1 }, "TAGGER_MAX_RESULTS"},
		{"missing model", func(c *Config) { c.Backend.ModelDir = "/nonexistent" }, "model file"},
		{"http without url", func(c *Config) { c.Backend.Kind = "http" }, "TAGGER_BACKEND_URL"},
		{"unknown backend", func(c *Config) { c.Backend.Kind = "grpc" }, "unknown backend"},
		{"unknown cache", func(c *Config) { c.Cache.Kind = "memcached" }, "unknown cache"},
		{"missing taxonomy", func(c *Config) { c.Engine.TaxonomyPath = "/nonexistent.yaml" }, "taxonomy"},
		{"workers", func(c *Config) { c.Workers = 0 }, "TAGGER_WORKERS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateMultipleErrors(t *testing.T) {
	cfg := validConfig(t)
	cfg.Engine.ConfidenceThreshold = -2
	cfg.Cache.Kind = "memcached"
	cfg.Workers = 0

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"confidence", "cache", "TAGGER_WORKERS"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidateBatchErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown source", func(c *Config) { c.Source.Provider = "ftp" }, "unknown source"},
		{"minio without bucket", func(c *Config) { c.Source.Provider = "minio" }, "TAGGER_MINIO_BUCKET"},
		{"no outputs", func(c *Config) { c.Output.Kinds = nil }, "at least one output"},
		{"file without path", func(c *Config) { c.Output.Kinds = []string{"file"} }, "TAGGER_OUTPUT_FILE"},
		{"webhook without url", func(c *Config) { c.Output.Kinds = []string{"webhook"} }, "TAGGER_WEBHOOK_URL"},
		{"kafka without brokers", func(c *Config) { c.Output.Kinds = []string{"kafka"} }, "TAGGER_KAFKA_BROKERS"},
		{"unknown output", func(c *Config) { c.Output.Kinds = []string{"s3"} }, "unknown output"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(&cfg)
			err := cfg.ValidateBatch()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestVersionIsSet(t *testing.T) {
	assert.NotEmpty(t, Version)
}
