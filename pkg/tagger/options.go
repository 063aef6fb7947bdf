package tagger

import (
	"time"

	"github.com/hejijunhao/tagger/internal/engine/classifier"
)

type options struct {
	modelDir     string
	backendURL   string
	backendToken string
	backend      Backend
	taxonomyFile string
	taxonomy     []Node
	policy       classifier.Policy
	timeout      time.Duration
}

// Option configures a Tagger.
type Option func(*options)

// WithModelDir sets the directory holding the local CLIP model files:
// vision_model.onnx, text_model.onnx, vocab.txt and 2_Dense/model.safetensors.
// Default: "models".
func WithModelDir(dir string) Option {
	return func(o *options) {
		o.modelDir = dir
	}
}

// WithBackendURL embeds through a remote inference service instead of the
// local model. token may be empty.
func WithBackendURL(url, token string) Option {
	return func(o *options) {
		o.backendURL = url
		o.backendToken = token
	}
}

// WithBackend supplies a ready-made embedding backend. It takes precedence
// over WithModelDir and WithBackendURL, and Close closes it.
func WithBackend(b Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithTaxonomyFile loads the category hierarchy from a YAML or JSON file
// instead of the built-in product hierarchy.
func WithTaxonomyFile(path string) Option {
	return func(o *options) {
		o.taxonomyFile = path
	}
}

// WithTaxonomy sets the category hierarchy directly. It takes precedence
// over WithTaxonomyFile.
func WithTaxonomy(roots ...Node) Option {
	return func(o *options) {
		o.taxonomy = roots
	}
}

// WithConfidenceThreshold sets the score a category must exceed to be
// reported. Default: 0.25.
func WithConfidenceThreshold(t float64) Option {
	return func(o *options) {
		o.policy.Threshold = t
	}
}

// WithMaxResults caps the number of returned categories. Default: 3.
func WithMaxResults(n int) Option {
	return func(o *options) {
		o.policy.MaxResults = n
	}
}

// WithTopM sets how many top-scoring entries are considered before the
// threshold is applied. Default: 5.
func WithTopM(m int) Option {
	return func(o *options) {
		o.policy.TopM = m
	}
}

// WithFallbackCount sets how many of the best candidates are returned when
// nothing clears the threshold. Default: 3.
func WithFallbackCount(n int) Option {
	return func(o *options) {
		o.policy.FallbackCount = n
	}
}

// WithTimeout bounds each backend call. Default: none.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

func defaultOptions() options {
	return options{
		modelDir: "models",
		policy:   classifier.DefaultPolicy(),
	}
}
