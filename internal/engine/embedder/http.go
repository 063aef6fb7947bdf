package embedder

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/hejijunhao/tagger/internal/httpclient"
	"github.com/hejijunhao/tagger/internal/model"
)

// HTTPOptions configures an HTTPBackend.
type HTTPOptions struct {
	Token   string
	Timeout time.Duration
	// RPS limits outgoing requests per second; 0 disables limiting.
	RPS float64
	// Breaker trips after BreakerMinRequests calls with at least
	// BreakerFailureRatio failures, and stays open for BreakerOpenTimeout.
	BreakerMinRequests  uint32
	BreakerFailureRatio float64
	BreakerOpenTimeout  time.Duration
}

func (o HTTPOptions) normalize() HTTPOptions {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.BreakerMinRequests == 0 {
		o.BreakerMinRequests = 5
	}
	if o.BreakerFailureRatio <= 0 {
		o.BreakerFailureRatio = 0.6
	}
	if o.BreakerOpenTimeout <= 0 {
		o.BreakerOpenTimeout = 30 * time.Second
	}
	return o
}

// HTTPBackend calls a remote embedding service:
//
//	GET  /v1/info          -> {"model": "...", "dim": 512}
//	POST /v1/embed/image   {"image": "<base64 PNG>"} -> {"embedding": [...]}
//	POST /v1/embed/text    {"texts": [...]}          -> {"embeddings": [[...], ...]}
//
// Calls pass through a rate limiter and a circuit breaker. Failed calls are
// not retried here.
type HTTPBackend struct {
	client  *httpclient.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[any]

	version atomic.Pointer[string]
	dim     atomic.Int64
}

// NewHTTP creates a backend for the service at baseURL.
func NewHTTP(baseURL string, opts HTTPOptions) (*HTTPBackend, error) {
	if baseURL == "" {
		return nil, model.WrapError(model.ErrConfiguration, "embedder", errors.New("http backend needs a base URL"))
	}
	opts = opts.normalize()

	b := &HTTPBackend{
		client: httpclient.New(baseURL, httpclient.WithToken(opts.Token), httpclient.WithTimeout(opts.Timeout)),
	}
	if opts.RPS > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(opts.RPS), max(1, int(opts.RPS)))
	}
	b.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    "embedding-backend",
		Timeout: opts.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < opts.BreakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= opts.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellations say nothing about backend health.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit_breaker_state_change", "backend", name, "from", from.String(), "to", to.String())
		},
	})
	return b, nil
}

// IsCircuitOpen reports whether err was caused by an open breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

type infoResponse struct {
	Model string `json:"model"`
	Dim   int    `json:"dim"`
}

type imageRequest struct {
	Image string `json:"image"`
}

type imageResponse struct {
	Embedding []float32 `json:"embedding"`
}

type textRequest struct {
	Texts []string `json:"texts"`
}

type textResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Info fetches the remote model identity and caches it for ModelVersion and Dim.
func (b *HTTPBackend) Info(ctx context.Context) error {
	var info infoResponse
	err := b.call(ctx, func(ctx context.Context) error {
		return b.client.GetJSON(ctx, "/v1/info", nil, &info)
	})
	if err != nil {
		return model.WrapError(model.ErrBackend, "backend info", err)
	}
	b.version.Store(&info.Model)
	b.dim.Store(int64(info.Dim))
	return nil
}

// EncodeImage sends img as a PNG.
func (b *HTTPBackend) EncodeImage(ctx context.Context, img image.Image) ([]float32, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, model.WrapError(model.ErrInput, "encode image", err)
	}
	req := imageRequest{Image: base64.StdEncoding.EncodeToString(buf.Bytes())}

	var resp imageResponse
	err := b.call(ctx, func(ctx context.Context) error {
		return b.client.PostJSON(ctx, "/v1/embed/image", req, &resp)
	})
	if err != nil {
		return nil, model.WrapError(model.ErrBackend, "encode image", err)
	}
	return resp.Embedding, nil
}

// EncodeText sends all texts in one request.
func (b *HTTPBackend) EncodeText(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var resp textResponse
	err := b.call(ctx, func(ctx context.Context) error {
		return b.client.PostJSON(ctx, "/v1/embed/text", textRequest{Texts: texts}, &resp)
	})
	if err != nil {
		return nil, model.WrapError(model.ErrBackend, "encode text", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, model.WrapError(model.ErrBackend, "encode text",
			fmt.Errorf("sent %d texts, got %d embeddings", len(texts), len(resp.Embeddings)))
	}
	return resp.Embeddings, nil
}

func (b *HTTPBackend) call(ctx context.Context, fn func(context.Context) error) error {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	_, err := b.breaker.Execute(func() (any, error) {
		return nil, fn(ctx)
	})
	return err
}

// Dim returns the dimension reported by Info, or 0 before Info succeeds.
func (b *HTTPBackend) Dim() int {
	return int(b.dim.Load())
}

// ModelVersion returns the model name reported by Info, or "http" before
// Info succeeds.
func (b *HTTPBackend) ModelVersion() string {
	if v := b.version.Load(); v != nil && *v != "" {
		return *v
	}
	return "http"
}

func (b *HTTPBackend) Close() error {
	return nil
}
