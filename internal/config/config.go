package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/hejijunhao/tagger/internal/engine/embedder"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Config holds all tagger configuration.
type Config struct {
	Engine  EngineConfig
	Backend BackendConfig
	Cache   CacheConfig
	Source  SourceConfig
	Output  OutputConfig
	Server  ServerConfig
	Log     LogConfig
	Workers int
}

// EngineConfig holds taxonomy and selection policy settings.
type EngineConfig struct {
	TaxonomyPath        string // empty: built-in product hierarchy
	ConfidenceThreshold float64
	TopM                int
	FallbackCount       int
	MaxResults          int
}

// BackendConfig selects and configures the embedding backend.
type BackendConfig struct {
	Kind     string // "onnx" or "http"
	ModelDir string
	URL      string
	Token    string
	Timeout  time.Duration
	RPS      float64
}

// CacheConfig configures the text-embedding cache.
type CacheConfig struct {
	Kind          string // "none", "memory", "redis", "badger"
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
	Dir           string
}

// SourceConfig configures where batch mode reads images from.
type SourceConfig struct {
	Provider string // "localfs" or "minio"
	Path     string
	Minio    MinioConfig
}

// MinioConfig holds S3-compatible bucket settings.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// OutputConfig holds output destination settings.
type OutputConfig struct {
	Kinds        []string // any of "stdout", "file", "webhook", "kafka", "nats"
	Pretty       bool
	FilePath     string
	WebhookURL   string
	KafkaBrokers []string
	KafkaTopic   string
	NATSURL      string
	NATSSubject  string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		Engine: EngineConfig{
			TaxonomyPath:        os.Getenv("TAGGER_TAXONOMY_PATH"),
			ConfidenceThreshold: getenvFloat("TAGGER_CONFIDENCE_THRESHOLD", 0.25),
			TopM:                getenvInt("TAGGER_TOP_M", 5),
			FallbackCount:       getenvInt("TAGGER_FALLBACK_COUNT", 3),
			MaxResults:          getenvInt("TAGGER_MAX_RESULTS", 3),
		},
		Backend: BackendConfig{
			Kind:     getenv("TAGGER_BACKEND", "onnx"),
			ModelDir: getenv("TAGGER_MODEL_DIR", "models"),
			URL:      os.Getenv("TAGGER_BACKEND_URL"),
			Token:    os.Getenv("TAGGER_BACKEND_TOKEN"),
			Timeout:  getenvDuration("TAGGER_BACKEND_TIMEOUT", 30*time.Second),
			RPS:      getenvFloat("TAGGER_BACKEND_RPS", 0),
		},
		Cache: CacheConfig{
			Kind:          getenv("TAGGER_CACHE", "none"),
			RedisAddr:     getenv("TAGGER_REDIS_ADDR", "localhost:6379"),
			RedisPassword: os.Getenv("TAGGER_REDIS_PASSWORD"),
			RedisDB:       getenvInt("TAGGER_REDIS_DB", 0),
			TTL:           getenvDuration("TAGGER_CACHE_TTL", 0),
			Dir:           getenv("TAGGER_CACHE_DIR", ".tagger-cache"),
		},
		Source: SourceConfig{
			Provider: getenv("TAGGER_SOURCE", "localfs"),
			Path:     getenv("TAGGER_SOURCE_PATH", "."),
			Minio: MinioConfig{
				Endpoint:  os.Getenv("TAGGER_MINIO_ENDPOINT"),
				AccessKey: os.Getenv("TAGGER_MINIO_ACCESS_KEY"),
				SecretKey: os.Getenv("TAGGER_MINIO_SECRET_KEY"),
				Bucket:    os.Getenv("TAGGER_MINIO_BUCKET"),
				Prefix:    os.Getenv("TAGGER_MINIO_PREFIX"),
				UseSSL:    getenvBool("TAGGER_MINIO_USE_SSL", true),
			},
		},
		Output: OutputConfig{
			Kinds:        getenvList("TAGGER_OUTPUT", []string{"stdout"}),
			Pretty:       getenvBool("TAGGER_OUTPUT_PRETTY", false),
			FilePath:     os.Getenv("TAGGER_OUTPUT_FILE"),
			WebhookURL:   os.Getenv("TAGGER_WEBHOOK_URL"),
			KafkaBrokers: getenvList("TAGGER_KAFKA_BROKERS", nil),
			KafkaTopic:   getenv("TAGGER_KAFKA_TOPIC", "tagger.classifications"),
			NATSURL:      getenv("TAGGER_NATS_URL", "nats://127.0.0.1:4222"),
			NATSSubject:  getenv("TAGGER_NATS_SUBJECT", "tagger.classifications"),
		},
		Server: ServerConfig{
			Addr:            getenv("TAGGER_HTTP_ADDR", ":8080"),
			ReadTimeout:     getenvDuration("TAGGER_HTTP_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getenvDuration("TAGGER_HTTP_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getenvDuration("TAGGER_SHUTDOWN_TIMEOUT", 10*time.Second),
			MaxUploadBytes:  int64(getenvInt("TAGGER_MAX_UPLOAD_BYTES", 16<<20)),
		},
		Log: LogConfig{
			Level: getenv("TAGGER_LOG_LEVEL", "info"),
		},
		Workers: getenvInt("TAGGER_WORKERS", 4),
	}
}

var (
	backendKinds = []string{"onnx", "http"}
	cacheKinds   = []string{"none", "memory", "redis", "badger"}
	sourceKinds  = []string{"localfs", "minio"}
	outputKinds  = []string{"stdout", "file", "webhook", "kafka", "nats"}
)

// Validate checks the configuration for errors. Returns all problems at
// once, joined.
func (c Config) Validate() error {
	var errs []error

	if c.Engine.ConfidenceThreshold < -1 || c.Engine.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("confidence threshold must be in [-1, 1], got %v", c.Engine.ConfidenceThreshold))
	}
	if c.Engine.TopM < 1 {
		errs = append(errs, fmt.Errorf("TAGGER_TOP_M must be at least 1, got %d", c.Engine.TopM))
	}
	if c.Engine.FallbackCount < 1 {
		errs = append(errs, fmt.Errorf("TAGGER_FALLBACK_COUNT must be at least 1, got %d", c.Engine.FallbackCount))
	}
	if c.Engine.MaxResults < 1 {
		errs = append(errs, fmt.Errorf("TAGGER_MAX_RESULTS must be at least 1, got %d", c.Engine.MaxResults))
	}
	if c.Engine.TaxonomyPath != "" {
		if _, err := os.Stat(c.Engine.TaxonomyPath); err != nil {
			errs = append(errs, fmt.Errorf("taxonomy file: %w", err))
		}
	}

	switch c.Backend.Kind {
	case "onnx":
		p := embedder.PathsFromDir(c.Backend.ModelDir)
		for _, f := range []string{p.VisionModel, p.TextModel, p.Vocab, p.Projection} {
			if _, err := os.Stat(f); err != nil {
				errs = append(errs, fmt.Errorf("model file: %w", err))
			}
		}
	case "http":
		if c.Backend.URL == "" {
			errs = append(errs, errors.New("TAGGER_BACKEND_URL is required for the http backend"))
		}
	default:
		errs = append(errs, unknown("backend", c.Backend.Kind, backendKinds))
	}
	if c.Backend.Timeout < 0 {
		errs = append(errs, fmt.Errorf("backend timeout must be non-negative, got %v", c.Backend.Timeout))
	}
	if c.Backend.RPS < 0 {
		errs = append(errs, fmt.Errorf("backend rps must be non-negative, got %v", c.Backend.RPS))
	}

	if !slices.Contains(cacheKinds, c.Cache.Kind) {
		errs = append(errs, unknown("cache", c.Cache.Kind, cacheKinds))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, fmt.Errorf("cache ttl must be non-negative, got %v", c.Cache.TTL))
	}

	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("TAGGER_WORKERS must be at least 1, got %d", c.Workers))
	}
	if c.Server.MaxUploadBytes < 1 {
		errs = append(errs, fmt.Errorf("TAGGER_MAX_UPLOAD_BYTES must be positive, got %d", c.Server.MaxUploadBytes))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ValidateBatch checks the settings only batch mode needs.
func (c Config) ValidateBatch() error {
	var errs []error

	switch c.Source.Provider {
	case "localfs":
	case "minio":
		m := c.Source.Minio
		if m.Endpoint == "" || m.Bucket == "" {
			errs = append(errs, errors.New("TAGGER_MINIO_ENDPOINT and TAGGER_MINIO_BUCKET are required for the minio source"))
		}
	default:
		errs = append(errs, unknown("source", c.Source.Provider, sourceKinds))
	}

	if len(c.Output.Kinds) == 0 {
		errs = append(errs, errors.New("TAGGER_OUTPUT must name at least one output"))
	}
	for _, k := range c.Output.Kinds {
		switch k {
		case "stdout":
		case "file":
			if c.Output.FilePath == "" {
				errs = append(errs, errors.New("TAGGER_OUTPUT_FILE is required for the file output"))
			}
		case "webhook":
			if c.Output.WebhookURL == "" {
				errs = append(errs, errors.New("TAGGER_WEBHOOK_URL is required for the webhook output"))
			}
		case "kafka":
			if len(c.Output.KafkaBrokers) == 0 {
				errs = append(errs, errors.New("TAGGER_KAFKA_BROKERS is required for the kafka output"))
			}
		case "nats":
		default:
			errs = append(errs, unknown("output", k, outputKinds))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func unknown(what, got string, valid []string) error {
	return fmt.Errorf("unknown %s %q (valid: %s)", what, got, strings.Join(valid, ", "))
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// getenvList splits a comma-separated value, dropping blanks.
func getenvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
