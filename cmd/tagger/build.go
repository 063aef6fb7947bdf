package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hejijunhao/tagger/internal/config"
	"github.com/hejijunhao/tagger/internal/engine"
	"github.com/hejijunhao/tagger/internal/engine/classifier"
	"github.com/hejijunhao/tagger/internal/engine/embedder"
	"github.com/hejijunhao/tagger/internal/engine/taxonomy"
	"github.com/hejijunhao/tagger/internal/output"
	"github.com/hejijunhao/tagger/internal/output/async"
	"github.com/hejijunhao/tagger/internal/output/file"
	"github.com/hejijunhao/tagger/internal/output/kafka"
	"github.com/hejijunhao/tagger/internal/output/multi"
	"github.com/hejijunhao/tagger/internal/output/nats"
	"github.com/hejijunhao/tagger/internal/output/stdout"
	"github.com/hejijunhao/tagger/internal/output/webhook"
	"github.com/hejijunhao/tagger/internal/source"

	// Source providers register themselves.
	_ "github.com/hejijunhao/tagger/internal/source/localfs"
	_ "github.com/hejijunhao/tagger/internal/source/minio"
)

func loadTaxonomy(path string) (*taxonomy.Taxonomy, error) {
	if path == "" {
		return taxonomy.New(taxonomy.DefaultRoots())
	}
	return taxonomy.LoadFile(path)
}

func policyFrom(c config.EngineConfig) classifier.Policy {
	return classifier.Policy{
		Threshold:     c.ConfidenceThreshold,
		TopM:          c.TopM,
		FallbackCount: c.FallbackCount,
		MaxResults:    c.MaxResults,
	}
}

// newEngine opens the configured backend and cache and builds an engine
// over the configured taxonomy. The returned func releases the backend.
func newEngine(ctx context.Context, c config.Config, opts ...engine.Option) (*engine.Engine, func() error, error) {
	tax, err := loadTaxonomy(c.Engine.TaxonomyPath)
	if err != nil {
		return nil, nil, err
	}
	backend, err := openBackend(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	opts = append([]engine.Option{engine.WithTimeout(c.Backend.Timeout)}, opts...)
	eng, err := engine.New(backend, tax, policyFrom(c.Engine), opts...)
	if err != nil {
		return nil, nil, errors.Join(err, backend.Close())
	}
	slog.Info("engine created",
		"backend", c.Backend.Kind,
		"cache", c.Cache.Kind,
		"labels", len(eng.Labels()),
		"model", eng.ModelVersion(),
	)
	return eng, backend.Close, nil
}

func openBackend(ctx context.Context, c config.Config) (embedder.Backend, error) {
	var b embedder.Backend
	switch c.Backend.Kind {
	case "http":
		hb, err := embedder.NewHTTP(c.Backend.URL, embedder.HTTPOptions{
			Token:   c.Backend.Token,
			Timeout: c.Backend.Timeout,
			RPS:     c.Backend.RPS,
		})
		if err != nil {
			return nil, err
		}
		// The model version keys the text cache, so learn it up front.
		if err := hb.Info(ctx); err != nil {
			return nil, errors.Join(err, hb.Close())
		}
		b = hb
	case "onnx":
		ob, err := embedder.New(embedder.PathsFromDir(c.Backend.ModelDir))
		if err != nil {
			return nil, err
		}
		b = ob
	default:
		return nil, fmt.Errorf("unknown backend %q", c.Backend.Kind)
	}

	store, err := openStore(ctx, c.Cache)
	if err != nil {
		return nil, errors.Join(err, b.Close())
	}
	if store == nil {
		return b, nil
	}
	return embedder.NewCached(b, store), nil
}

// openStore returns nil when caching is disabled.
func openStore(ctx context.Context, c config.CacheConfig) (embedder.Store, error) {
	switch c.Kind {
	case "", "none":
		return nil, nil
	case "memory":
		return embedder.NewMemoryStore(), nil
	case "redis":
		client, err := embedder.DialRedis(ctx, c.RedisAddr, c.RedisPassword, c.RedisDB)
		if err != nil {
			return nil, err
		}
		return embedder.NewRedisStore(client, c.TTL), nil
	case "badger":
		store, err := embedder.OpenBadger(embedder.BadgerOptions{Dir: c.Dir, TTL: c.TTL})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown cache %q", c.Kind)
	}
}

func openSource(c config.SourceConfig) (source.Source, error) {
	return source.Open(source.Config{
		Provider:  c.Provider,
		Path:      c.Path,
		Endpoint:  c.Minio.Endpoint,
		AccessKey: c.Minio.AccessKey,
		SecretKey: c.Minio.SecretKey,
		Bucket:    c.Minio.Bucket,
		Prefix:    c.Minio.Prefix,
		UseSSL:    c.Minio.UseSSL,
	})
}

// openOutputs builds every configured output. Several outputs are fanned
// out through multi; broker outputs are decoupled from the workers by an
// async buffer.
func openOutputs(c config.OutputConfig, w io.Writer) (output.Output, error) {
	var outs []output.Output
	fail := func(err error) (output.Output, error) {
		for _, o := range outs {
			_ = o.Close()
		}
		return nil, err
	}
	logDropped := func(kind string) func(error) {
		return func(err error) {
			slog.Error("output write failed", "output", kind, "error", err)
		}
	}

	for _, kind := range c.Kinds {
		switch kind {
		case "stdout":
			outs = append(outs, stdout.NewWriter(w, c.Pretty))
		case "file":
			o, err := file.New(c.FilePath)
			if err != nil {
				return fail(err)
			}
			outs = append(outs, o)
		case "webhook":
			outs = append(outs, webhook.New(c.WebhookURL, webhook.WithOnError(logDropped(kind))))
		case "kafka":
			o, err := kafka.New(c.KafkaBrokers, c.KafkaTopic)
			if err != nil {
				return fail(err)
			}
			outs = append(outs, async.New(o, async.WithOnError(logDropped(kind))))
		case "nats":
			o, err := nats.New(c.NATSURL, c.NATSSubject, nats.Options{})
			if err != nil {
				return fail(err)
			}
			outs = append(outs, o)
		default:
			return fail(fmt.Errorf("unknown output %q", kind))
		}
	}

	switch len(outs) {
	case 0:
		return nil, errors.New("no outputs configured")
	case 1:
		return outs[0], nil
	default:
		return multi.New(outs...), nil
	}
}
