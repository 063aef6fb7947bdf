// Package multi fans classification records out to several outputs.
package multi

import (
	"context"
	"errors"

	"github.com/hejijunhao/tagger/internal/model"
	"github.com/hejijunhao/tagger/internal/output"
)

// Multi delivers each record to every wrapped output sequentially. If one
// output fails, the remaining outputs still receive the record.
type Multi struct {
	outputs []output.Output
}

// New creates a Multi that fans out to the given outputs.
func New(outputs ...output.Output) *Multi {
	return &Multi{outputs: outputs}
}

// Write delivers rec to every output and joins their errors.
func (m *Multi) Write(ctx context.Context, rec model.Classification) error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Write(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close calls Close on every wrapped output, collecting errors.
func (m *Multi) Close() error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
