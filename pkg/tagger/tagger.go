package tagger

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/hejijunhao/tagger/internal/engine"
	"github.com/hejijunhao/tagger/internal/engine/embedder"
	"github.com/hejijunhao/tagger/internal/engine/taxonomy"
	"github.com/hejijunhao/tagger/internal/model"
)

// Error kinds. Every error returned by Classify and ClassifyImage matches
// exactly one of them under errors.Is; an error that already carries a kind
// keeps it.
var (
	ErrConfiguration = model.ErrConfiguration
	ErrInput         = model.ErrInput
	ErrBackend       = model.ErrBackend
)

// infoTimeout bounds the model lookup New performs against a remote
// backend when WithTimeout is not set.
const infoTimeout = 30 * time.Second

// Backend turns images and texts into vectors of one shared dimension.
// Implementations must be safe for concurrent use and keep output order.
type Backend interface {
	EncodeImage(ctx context.Context, img image.Image) ([]float32, error)
	EncodeText(ctx context.Context, texts []string) ([][]float32, error)
	Dim() int
	ModelVersion() string
	Close() error
}

// Category is one ranked result.
type Category struct {
	Label      string  `json:"label"`      // e.g. "Electronics - Smartphones & Tablets - tablet device"
	Confidence float64 `json:"confidence"` // aggregated cosine similarity
}

// Tagger classifies product photos. Safe for concurrent use.
type Tagger struct {
	engine   *engine.Engine
	backend  Backend
	taxonomy *taxonomy.Taxonomy
}

// New loads the taxonomy and the embedding backend. Prompt embeddings are
// computed lazily on the first classification or by Warm.
func New(opts ...Option) (*Tagger, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	tax, err := loadTaxonomy(o)
	if err != nil {
		return nil, fmt.Errorf("tagger: %w", err)
	}

	backend, err := openBackend(o)
	if err != nil {
		return nil, fmt.Errorf("tagger: %w", err)
	}

	eng, err := engine.New(backend, tax, o.policy, engine.WithTimeout(o.timeout))
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("tagger: %w", err)
	}
	return &Tagger{engine: eng, backend: backend, taxonomy: tax}, nil
}

func loadTaxonomy(o options) (*taxonomy.Taxonomy, error) {
	switch {
	case o.taxonomy != nil:
		return taxonomy.New(toInternal(o.taxonomy))
	case o.taxonomyFile != "":
		return taxonomy.LoadFile(o.taxonomyFile)
	default:
		return taxonomy.New(taxonomy.DefaultRoots())
	}
}

func openBackend(o options) (Backend, error) {
	switch {
	case o.backend != nil:
		return o.backend, nil
	case o.backendURL != "":
		hb, err := embedder.NewHTTP(o.backendURL, embedder.HTTPOptions{Token: o.backendToken, Timeout: o.timeout})
		if err != nil {
			return nil, err
		}
		// The remote model name scopes cached prompt vectors and is stamped
		// on every record, so learn it before the first call.
		timeout := o.timeout
		if timeout <= 0 {
			timeout = infoTimeout
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := hb.Info(ctx); err != nil {
			return nil, errors.Join(err, hb.Close())
		}
		return hb, nil
	default:
		return embedder.New(embedder.PathsFromDir(o.modelDir))
	}
}

// Warm embeds every prompt now instead of on the first classification.
func (t *Tagger) Warm(ctx context.Context) error {
	return t.engine.Warm(ctx)
}

// Classify decodes an encoded image (JPEG, PNG, GIF, BMP or WebP) and
// returns between one and the configured maximum categories, best first.
func (t *Tagger) Classify(ctx context.Context, r io.Reader) ([]Category, error) {
	got, err := t.engine.ClassifyReader(ctx, r)
	if err != nil {
		return nil, err
	}
	return toCategories(got), nil
}

// ClassifyImage classifies an already decoded image.
func (t *Tagger) ClassifyImage(ctx context.Context, img image.Image) ([]Category, error) {
	got, err := t.engine.Classify(ctx, img)
	if err != nil {
		return nil, err
	}
	return toCategories(got), nil
}

// Labels returns every label the Tagger can produce, in taxonomy order.
func (t *Tagger) Labels() []string {
	return t.engine.Labels()
}

// Prompts returns the text prompts and the label each one belongs to, in
// the order they are embedded.
func (t *Tagger) Prompts() (prompts, labels []string) {
	set := t.engine.Prompts()
	return append([]string(nil), set.Prompts...), append([]string(nil), set.Labels...)
}

// ModelVersion identifies the embedding weights in use.
func (t *Tagger) ModelVersion() string {
	return t.engine.ModelVersion()
}

// Close releases the backend (ONNX runtime sessions or HTTP client).
func (t *Tagger) Close() error {
	return t.backend.Close()
}

// IsTimeout reports whether err came from a backend call exceeding its
// deadline.
func IsTimeout(err error) bool {
	var f *model.Failure
	return errors.As(err, &f) && f.Timeout()
}

func toCategories(in []model.ScoredCategory) []Category {
	out := make([]Category, len(in))
	for i, c := range in {
		out[i] = Category{Label: c.Label, Confidence: c.Confidence}
	}
	return out
}
