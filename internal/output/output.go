// Package output defines destinations for classification records.
package output

import (
	"context"

	"github.com/hejijunhao/tagger/internal/model"
)

// Output defines the interface for classification record destinations.
type Output interface {
	Write(ctx context.Context, rec model.Classification) error
	Close() error
}
