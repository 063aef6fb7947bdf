package embedder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/hejijunhao/tagger/internal/engine/imageio"
	"github.com/hejijunhao/tagger/internal/model"
)

// ONNXBackend runs a CLIP-style model locally: an ONNX vision tower for
// images and a BERT text tower projected into the same space for prompts.
type ONNXBackend struct {
	vision  *visionSession
	text    *textEncoder
	version string
}

// New loads both towers. Any load failure is a configuration error.
func New(paths Paths) (*ONNXBackend, error) {
	version, err := fingerprint(paths.VisionModel, paths.TextModel, paths.Projection)
	if err != nil {
		return nil, model.WrapError(model.ErrConfiguration, "embedder", err)
	}

	vision, err := newVisionSession(paths.VisionModel)
	if err != nil {
		return nil, model.WrapError(model.ErrConfiguration, "embedder", err)
	}

	text, err := newTextEncoder(paths.TextModel, paths.Vocab, paths.Projection)
	if err != nil {
		vision.close()
		return nil, model.WrapError(model.ErrConfiguration, "embedder", err)
	}

	if int(vision.embedDim) != text.dim() {
		vision.close()
		text.close()
		return nil, model.WrapError(model.ErrConfiguration, "embedder",
			fmt.Errorf("image embedding dim %d != text embedding dim %d", vision.embedDim, text.dim()))
	}

	return &ONNXBackend{vision: vision, text: text, version: version}, nil
}

// EncodeImage preprocesses img for the vision tower and embeds it.
func (b *ONNXBackend) EncodeImage(ctx context.Context, img image.Image) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, model.WrapError(model.ErrBackend, "encode image", err)
	}
	pixels, err := imageio.CLIPTensor(img, int(b.vision.imageSize))
	if err != nil {
		return nil, err
	}
	vec, err := b.vision.infer(pixels)
	if err != nil {
		return nil, model.WrapError(model.ErrBackend, "encode image", err)
	}
	return vec, nil
}

// EncodeText embeds texts in chunks of textBatchSize, checking ctx between
// chunks since a running inference cannot be interrupted.
func (b *ONNXBackend) EncodeText(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += textBatchSize {
		if err := ctx.Err(); err != nil {
			return nil, model.WrapError(model.ErrBackend, "encode text", err)
		}
		end := min(start+textBatchSize, len(texts))
		vecs, err := b.text.encodeBatch(texts[start:end])
		if err != nil {
			return nil, model.WrapError(model.ErrBackend, "encode text", err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// Dim returns the shared embedding dimensionality.
func (b *ONNXBackend) Dim() int {
	return b.text.dim()
}

// ModelVersion is derived from the model files' names, sizes and mtimes.
func (b *ONNXBackend) ModelVersion() string {
	return b.version
}

// Close releases ONNX Runtime resources.
func (b *ONNXBackend) Close() error {
	return errors.Join(b.vision.close(), b.text.close())
}

func fingerprint(paths ...string) (string, error) {
	h := xxhash.New()
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			return "", err
		}
		h.WriteString(fi.Name())
		h.WriteString(strconv.FormatInt(fi.Size(), 10))
		h.WriteString(strconv.FormatInt(fi.ModTime().UnixNano(), 10))
	}
	return "onnx-" + strconv.FormatUint(h.Sum64(), 16), nil
}
