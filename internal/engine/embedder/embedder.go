// Package embedder provides joint image/text embedding backends.
package embedder

import (
	"context"
	"image"
	"path/filepath"
)

// Backend encodes images and texts into a shared embedding space.
// Implementations must be safe for concurrent use.
type Backend interface {
	// EncodeImage returns one vector for img.
	EncodeImage(ctx context.Context, img image.Image) ([]float32, error)
	// EncodeText returns one vector per text, in input order.
	EncodeText(ctx context.Context, texts []string) ([][]float32, error)
	// Dim is the embedding dimensionality, or 0 when unknown until first use.
	Dim() int
	// ModelVersion identifies the weights; it scopes cached text vectors.
	ModelVersion() string
	Close() error
}

// Paths locates the files of a local CLIP-style model.
type Paths struct {
	VisionModel string // ONNX vision tower: pixel_values -> image embeds
	TextModel   string // ONNX text transformer: token ids -> hidden states
	Vocab       string // WordPiece vocab.txt for the text tower
	Projection  string // safetensors dense layer mapping pooled text into the image space
}

// PathsFromDir returns the conventional file layout under dir.
// The ONNX Runtime shared library is expected next to the models.
func PathsFromDir(dir string) Paths {
	return Paths{
		VisionModel: filepath.Join(dir, "vision_model.onnx"),
		TextModel:   filepath.Join(dir, "text_model.onnx"),
		Vocab:       filepath.Join(dir, "vocab.txt"),
		Projection:  filepath.Join(dir, "2_Dense", "model.safetensors"),
	}
}
