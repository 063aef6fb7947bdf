package imageio

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hejijunhao/tagger/internal/model"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodePNG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for i := range src.Pix {
		src.Pix[i] = 200
	}
	img, err := Decode(bytes.NewReader(encodePNG(t, src)))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 3), img.Bounds())
}

func TestDecodeFlattensAlphaOnWhite(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	src.SetNRGBA(0, 0, color.NRGBA{R: 0, G: 0, B: 0, A: 0})
	src.SetNRGBA(1, 1, color.NRGBA{R: 255, G: 0, B: 0, A: 255})

	img, err := Decode(bytes.NewReader(encodePNG(t, src)))
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 255, G: 0, B: 0, A: 255}, img.RGBAAt(1, 1))
}

func TestDecodeInputErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte(strings.Repeat("not an image", 10))},
		{"truncated png", encodePNG(t, image.NewRGBA(image.Rect(0, 0, 8, 8)))[:40]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.data))
			require.Error(t, err)
			assert.True(t, model.IsKind(err, model.ErrInput))
		})
	}
}

func TestFlattenRebasesBounds(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 10, 13, 12))
	img, err := Flatten(src)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())

	_, err = Flatten(image.NewRGBA(image.Rect(0, 0, 0, 5)))
	assert.True(t, model.IsKind(err, model.ErrInput))
}

func TestCLIPTensorShapeAndNormalization(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 64, 32))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3] = 255, 255, 255, 255
	}

	out, err := CLIPTensor(src, 16)
	require.NoError(t, err)
	require.Len(t, out, 3*16*16)

	for c := 0; c < 3; c++ {
		want := (1 - clipMean[c]) / clipStd[c]
		assert.InDelta(t, want, out[c*256], 1e-4)
		assert.InDelta(t, want, out[c*256+255], 1e-4)
	}
}

func TestCLIPTensorCenterCrop(t *testing.T) {
	// Left half black, right half white; a wide image keeps the seam centered.
	src := image.NewRGBA(image.Rect(0, 0, 40, 10))
	for y := 0; y < 10; y++ {
		for x := 20; x < 40; x++ {
			src.SetRGBA(x, y, color.RGBA{255, 255, 255, 255})
		}
	}
	out, err := CLIPTensor(src, 10)
	require.NoError(t, err)
	left := out[5*10+0]
	right := out[5*10+9]
	assert.Less(t, left, right)
}

func TestCLIPTensorRejectsEmptyImage(t *testing.T) {
	for _, img := range []image.Image{
		nil,
		image.NewRGBA(image.Rect(0, 0, 0, 0)),
		image.NewRGBA(image.Rect(0, 0, 5, 0)),
		image.NewRGBA(image.Rect(0, 0, 0, 5)),
	} {
		out, err := CLIPTensor(img, 224)
		assert.Nil(t, out)
		assert.True(t, model.IsKind(err, model.ErrInput), "got %v", err)
	}

	_, err := CLIPTensor(image.NewRGBA(image.Rect(0, 0, 4, 4)), 0)
	assert.True(t, model.IsKind(err, model.ErrInput))
}

func TestCheckBounds(t *testing.T) {
	assert.NoError(t, CheckBounds(image.NewRGBA(image.Rect(2, 2, 3, 3))))
	assert.True(t, model.IsKind(CheckBounds(nil), model.ErrInput))
	assert.True(t, model.IsKind(CheckBounds(image.NewGray(image.Rect(4, 4, 4, 9))), model.ErrInput))
}
