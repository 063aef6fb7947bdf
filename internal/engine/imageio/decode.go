// Package imageio decodes uploaded product photos and prepares them for
// the vision encoder.
package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/hejijunhao/tagger/internal/model"
)

// MaxPixels bounds width*height of a decoded image (about a 64 MP photo).
const MaxPixels = 64 << 20

// Decode reads an encoded JPEG, PNG, GIF, WebP or BMP image and returns it
// as an opaque RGBA raster with transparency flattened onto white. Every
// failure is an input error.
func Decode(r io.Reader) (*image.RGBA, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, model.WrapError(model.ErrInput, "decode", fmt.Errorf("read image: %w", err))
	}
	if len(data) == 0 {
		return nil, model.WrapError(model.ErrInput, "decode", errors.New("empty image"))
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, model.WrapError(model.ErrInput, "decode", fmt.Errorf("unrecognized image: %w", err))
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, model.WrapError(model.ErrInput, "decode", fmt.Errorf("%s image has zero size", format))
	}
	if cfg.Width*cfg.Height > MaxPixels {
		return nil, model.WrapError(model.ErrInput, "decode",
			fmt.Errorf("%dx%d %s image exceeds %d pixels", cfg.Width, cfg.Height, format, MaxPixels))
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, model.WrapError(model.ErrInput, "decode", fmt.Errorf("decode %s: %w", format, err))
	}
	return Flatten(img)
}

// CheckBounds rejects a nil or zero-size image as an input error.
func CheckBounds(img image.Image) error {
	if img == nil {
		return model.WrapError(model.ErrInput, "decode", errors.New("nil image"))
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return model.WrapError(model.ErrInput, "decode", fmt.Errorf("image has zero size (%dx%d)", b.Dx(), b.Dy()))
	}
	return nil
}

// Flatten copies img onto a white canvas anchored at the origin.
func Flatten(img image.Image) (*image.RGBA, error) {
	if err := CheckBounds(img); err != nil {
		return nil, err
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst, nil
}
