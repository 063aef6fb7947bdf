package embedder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/hejijunhao/tagger/internal/model"
)

// Store persists text embeddings by key. Get returns one entry per key,
// nil for a miss.
type Store interface {
	Get(ctx context.Context, keys []string) ([][]float32, error)
	Set(ctx context.Context, entries map[string][]float32) error
	Close() error
}

// Cached decorates a Backend with a text-embedding store. Image encoding
// passes straight through. Store failures are logged and fall back to the
// backend.
type Cached struct {
	Backend
	store Store
}

// NewCached wraps b with store.
func NewCached(b Backend, store Store) *Cached {
	return &Cached{Backend: b, store: store}
}

// CacheKey fingerprints a prompt under a model version, so vectors from
// different weights never mix.
func CacheKey(modelVersion, text string) string {
	h := xxhash.New()
	h.WriteString(modelVersion)
	h.WriteString("\x00")
	h.WriteString(text)
	return strconv.FormatUint(h.Sum64(), 16)
}

// EncodeText serves cached vectors and encodes only the misses, in one
// backend call.
func (c *Cached) EncodeText(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	version := c.ModelVersion()
	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = CacheKey(version, t)
	}

	hits, err := c.store.Get(ctx, keys)
	if err != nil || len(hits) != len(keys) {
		slog.Warn("embedding cache read failed", "error", err, "keys", len(keys))
		hits = nil
	}

	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i := range texts {
		if hits != nil && hits[i] != nil {
			out[i] = hits[i]
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, texts[i])
	}
	if len(missIdx) == 0 {
		return out, nil
	}

	vecs, err := c.Backend.EncodeText(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, model.WrapError(model.ErrBackend, "encode text",
			fmt.Errorf("sent %d texts, got %d embeddings", len(missTexts), len(vecs)))
	}

	fresh := make(map[string][]float32, len(missIdx))
	for j, i := range missIdx {
		out[i] = vecs[j]
		fresh[keys[i]] = vecs[j]
	}
	if err := c.store.Set(ctx, fresh); err != nil {
		slog.Warn("embedding cache write failed", "error", err, "keys", len(fresh))
	}
	slog.Debug("embedding cache", "hits", len(texts)-len(missIdx), "misses", len(missIdx))
	return out, nil
}

// Close closes the store and the wrapped backend.
func (c *Cached) Close() error {
	return errors.Join(c.store.Close(), c.Backend.Close())
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]float32
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]float32)}
}

func (m *MemoryStore) Get(_ context.Context, keys []string) ([][]float32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([][]float32, len(keys))
	for i, k := range keys {
		if v, ok := m.data[k]; ok {
			out[i] = slices.Clone(v)
		}
	}
	return out, nil
}

func (m *MemoryStore) Set(_ context.Context, entries map[string][]float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range entries {
		m.data[k] = slices.Clone(v)
	}
	return nil
}

// Len returns the number of cached vectors.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

func (m *MemoryStore) Close() error {
	return nil
}
