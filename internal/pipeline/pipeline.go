// Package pipeline runs batch classification: source → engine → output.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hejijunhao/tagger/internal/engine/classifier"
	"github.com/hejijunhao/tagger/internal/model"
	"github.com/hejijunhao/tagger/internal/output"
	"github.com/hejijunhao/tagger/internal/source"
)

// Classifier is the part of *engine.Engine the pipeline uses.
type Classifier interface {
	Record(ctx context.Context, source string, r io.Reader, policy classifier.Policy) (model.Classification, error)
	Policy() classifier.Policy
}

// Stats summarizes one batch run.
type Stats struct {
	Listed     int
	Classified int
	Failed     int
	Fallback   int
	Elapsed    time.Duration
}

// Pipeline connects a source, a classifier and an output.
type Pipeline struct {
	source     source.Source
	classifier Classifier
	output     output.Output
	workers    int
}

// New creates a Pipeline that keeps at most workers images in flight.
func New(src source.Source, cls Classifier, out output.Output, workers int) *Pipeline {
	return &Pipeline{
		source:     src,
		classifier: cls,
		output:     out,
		workers:    max(workers, 1),
	}
}

// Run classifies every image the source lists and writes one record per
// success, in completion order. A failure to open or classify one image is
// logged and counted; a failed output write aborts the batch.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	start := time.Now()
	policy := p.classifier.Policy()
	if err := policy.Validate(); err != nil {
		return Stats{}, err
	}
	keys, err := p.source.List(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("pipeline list: %w", err)
	}
	slog.Info("batch started", "images", len(keys), "workers", p.workers)

	var classified, failed, fallback atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for _, key := range keys {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			rec, err := p.classify(gctx, key, policy)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				slog.Warn("image skipped", "key", key, "kind", kindName(err), "error", err)
				return nil
			}
			if err := p.output.Write(gctx, rec); err != nil {
				return fmt.Errorf("pipeline output: %w", err)
			}
			classified.Add(1)
			if rec.Fallback {
				fallback.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	stats := Stats{
		Listed:     len(keys),
		Classified: int(classified.Load()),
		Failed:     int(failed.Load()),
		Fallback:   int(fallback.Load()),
		Elapsed:    time.Since(start),
	}
	slog.Info("batch finished",
		"classified", stats.Classified,
		"failed", stats.Failed,
		"fallback", stats.Fallback,
		"elapsed", stats.Elapsed,
	)
	return stats, err
}

func (p *Pipeline) classify(ctx context.Context, key string, policy classifier.Policy) (model.Classification, error) {
	rc, err := p.source.Open(ctx, key)
	if err != nil {
		return model.Classification{}, err
	}
	defer rc.Close()
	return p.classifier.Record(ctx, key, rc, policy)
}

// Close shuts down the output.
func (p *Pipeline) Close() error {
	return p.output.Close()
}

func kindName(err error) string {
	switch model.KindOf(err) {
	case model.ErrInput:
		return "input"
	case model.ErrConfiguration:
		return "configuration"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "backend"
}
