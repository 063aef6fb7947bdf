// Package engine wires the classification stages together:
// taxonomy → prompts → embeddings → similarity → aggregation → selection.
package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hejijunhao/tagger/internal/engine/classifier"
	"github.com/hejijunhao/tagger/internal/engine/embedder"
	"github.com/hejijunhao/tagger/internal/engine/imageio"
	"github.com/hejijunhao/tagger/internal/engine/prompt"
	"github.com/hejijunhao/tagger/internal/engine/taxonomy"
	"github.com/hejijunhao/tagger/internal/model"
)

// Outcome labels reported to an Observer.
const (
	OutcomeOK            = "ok"
	OutcomeInput         = "input_error"
	OutcomeBackend       = "backend_error"
	OutcomeConfiguration = "configuration_error"
)

// Observer receives one event per classification call.
type Observer interface {
	ObserveClassification(outcome string, elapsed time.Duration, fallback bool)
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout bounds every embedding backend call. Zero means no limit
// beyond the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// WithObserver reports classification outcomes to o.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// Engine classifies product images against a fixed taxonomy. The prompt
// set and, once warmed, its embeddings are immutable and shared by
// concurrent calls.
type Engine struct {
	backend  embedder.Backend
	tax      *taxonomy.Taxonomy
	prompts  *prompt.Set
	labels   []string // one per entry, aligned with aggregated scores
	policy   classifier.Policy
	timeout  time.Duration
	observer Observer

	warmMu sync.Mutex
	warm   atomic.Bool
	text   [][]float32 // prompt embeddings, set once by Warm
}

// New builds the prompt set for tax. Configuration problems surface here,
// never during classification.
func New(backend embedder.Backend, tax *taxonomy.Taxonomy, policy classifier.Policy, opts ...Option) (*Engine, error) {
	if backend == nil {
		return nil, model.WrapError(model.ErrConfiguration, "engine", errors.New("nil embedding backend"))
	}
	if tax == nil {
		return nil, model.WrapError(model.ErrConfiguration, "engine", errors.New("nil taxonomy"))
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	set, err := prompt.Generate(tax)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		backend: backend,
		tax:     tax,
		prompts: set,
		labels:  set.EntryLabels(),
		policy:  policy,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Warm embeds the prompt set if that has not happened yet. Concurrent
// callers wait for the first one; a failure is returned and the next call
// tries again.
func (e *Engine) Warm(ctx context.Context) error {
	if e.warm.Load() {
		return nil
	}
	e.warmMu.Lock()
	defer e.warmMu.Unlock()
	if e.warm.Load() {
		return nil
	}

	ctx, cancel := e.backendContext(ctx)
	defer cancel()

	start := time.Now()
	vecs, err := e.backend.EncodeText(ctx, e.prompts.Prompts)
	if err != nil {
		return model.Fail("warm", model.Tag(model.ErrBackend, "encode prompts", err))
	}
	if len(vecs) != len(e.prompts.Prompts) {
		return model.Fail("warm", model.WrapError(model.ErrBackend, "encode prompts",
			fmt.Errorf("sent %d prompts, got %d embeddings", len(e.prompts.Prompts), len(vecs))))
	}

	e.text = vecs
	e.warm.Store(true)
	slog.Info("prompt embeddings ready",
		"entries", e.prompts.Len(),
		"prompts", len(vecs),
		"model", e.backend.ModelVersion(),
		"elapsed", time.Since(start),
	)
	return nil
}

// Classify returns the ranked categories for img under the engine's policy.
// Any failure is a *model.Failure and no partial result is returned.
func (e *Engine) Classify(ctx context.Context, img image.Image) ([]model.ScoredCategory, error) {
	sel, err := e.ClassifyWith(ctx, img, e.policy)
	if err != nil {
		return nil, err
	}
	return sel.Categories, nil
}

// ClassifyReader decodes an encoded image and classifies it.
func (e *Engine) ClassifyReader(ctx context.Context, r io.Reader) ([]model.ScoredCategory, error) {
	sel, err := e.ClassifyReaderWith(ctx, r, e.policy)
	if err != nil {
		return nil, err
	}
	return sel.Categories, nil
}

// ClassifyReaderWith decodes an encoded image and classifies it under policy.
func (e *Engine) ClassifyReaderWith(ctx context.Context, r io.Reader, policy classifier.Policy) (classifier.Selection, error) {
	start := time.Now()
	img, err := imageio.Decode(r)
	if err != nil {
		e.observe(err, start, false)
		slog.Warn("classification failed", "error", err)
		return classifier.Selection{}, model.Fail("classify", err)
	}
	return e.ClassifyWith(ctx, img, policy)
}

// ClassifyWith classifies img under an explicit policy, reporting whether
// the fallback was used.
func (e *Engine) ClassifyWith(ctx context.Context, img image.Image, policy classifier.Policy) (classifier.Selection, error) {
	start := time.Now()
	sel, err := e.classify(ctx, img, policy)
	e.observe(err, start, sel.Fallback)
	if err != nil {
		slog.Warn("classification failed", "error", err)
		return classifier.Selection{}, model.Fail("classify", err)
	}
	slog.Debug("classified image",
		"categories", len(sel.Categories),
		"fallback", sel.Fallback,
		"elapsed", time.Since(start),
	)
	return sel, nil
}

// Record classifies the encoded image read from r and wraps the result in a
// Classification record identified by a fresh UUID. source is copied into
// the record verbatim.
func (e *Engine) Record(ctx context.Context, source string, r io.Reader, policy classifier.Policy) (model.Classification, error) {
	start := time.Now()
	sel, err := e.ClassifyReaderWith(ctx, r, policy)
	if err != nil {
		return model.Classification{}, err
	}
	return model.Classification{
		ID:           uuid.NewString(),
		Source:       source,
		Categories:   sel.Categories,
		Fallback:     sel.Fallback,
		ModelVersion: e.backend.ModelVersion(),
		Duration:     time.Since(start),
		Timestamp:    start.UTC(),
	}, nil
}

func (e *Engine) classify(ctx context.Context, img image.Image, policy classifier.Policy) (classifier.Selection, error) {
	if err := policy.Validate(); err != nil {
		return classifier.Selection{}, err
	}
	if err := imageio.CheckBounds(img); err != nil {
		return classifier.Selection{}, err
	}
	if err := e.Warm(ctx); err != nil {
		return classifier.Selection{}, err
	}

	bctx, cancel := e.backendContext(ctx)
	defer cancel()
	vec, err := e.backend.EncodeImage(bctx, img)
	if err != nil {
		return classifier.Selection{}, model.Tag(model.ErrBackend, "encode image", err)
	}

	scores, err := classifier.Similarities(vec, e.text)
	if err != nil {
		return classifier.Selection{}, err
	}
	agg, err := classifier.Aggregate(scores, prompt.EnsembleSize)
	if err != nil {
		return classifier.Selection{}, err
	}
	return policy.Select(e.labels, agg)
}

func (e *Engine) backendContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout > 0 {
		return context.WithTimeout(ctx, e.timeout)
	}
	return context.WithCancel(ctx)
}

func (e *Engine) observe(err error, start time.Time, fallback bool) {
	if e.observer == nil {
		return
	}
	e.observer.ObserveClassification(Outcome(err), time.Since(start), fallback)
}

// Outcome maps a classification error to its Observer label.
func Outcome(err error) string {
	switch model.KindOf(err) {
	case nil:
		return OutcomeOK
	case model.ErrInput:
		return OutcomeInput
	case model.ErrConfiguration:
		return OutcomeConfiguration
	default:
		return OutcomeBackend
	}
}

// Labels returns the distinct labels the engine can produce, in taxonomy order.
func (e *Engine) Labels() []string {
	return e.tax.Labels()
}

// Prompts returns the generated prompt set.
func (e *Engine) Prompts() *prompt.Set {
	return e.prompts
}

// Policy returns the default selection policy.
func (e *Engine) Policy() classifier.Policy {
	return e.policy
}

// ModelVersion identifies the backend's weights.
func (e *Engine) ModelVersion() string {
	return e.backend.ModelVersion()
}

// Ready reports whether the prompt embeddings are loaded.
func (e *Engine) Ready() bool {
	return e.warm.Load()
}
