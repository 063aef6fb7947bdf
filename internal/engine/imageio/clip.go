package imageio

import (
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/hejijunhao/tagger/internal/model"
)

// CLIP normalization constants (RGB order).
var (
	clipMean = [3]float32{0.48145466, 0.4578275, 0.40821073}
	clipStd  = [3]float32{0.26862954, 0.26130258, 0.27577711}
)

// DefaultSize is the input resolution of ViT-B/32 style vision towers.
const DefaultSize = 224

// CLIPTensor resizes the shortest side of img to size, center-crops a
// size x size square and returns it as normalized CHW float32 values,
// ready for a [1, 3, size, size] tensor. A nil or empty image, or a
// non-positive size, is an input error.
func CLIPTensor(img image.Image, size int) ([]float32, error) {
	if err := CheckBounds(img); err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, model.WrapError(model.ErrInput, "clip tensor", fmt.Errorf("target size %d", size))
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	var rw, rh int
	if w < h {
		rw, rh = size, max(size, h*size/w)
	} else {
		rw, rh = max(size, w*size/h), size
	}

	resized := image.NewRGBA(image.Rect(0, 0, rw, rh))
	xdraw.CatmullRom.Scale(resized, resized.Bounds(), img, b, xdraw.Src, nil)

	x0 := (rw - size) / 2
	y0 := (rh - size) / 2
	plane := size * size
	out := make([]float32, 3*plane)
	for y := 0; y < size; y++ {
		row := resized.Pix[(y0+y)*resized.Stride:]
		for x := 0; x < size; x++ {
			p := row[(x0+x)*4:]
			i := y*size + x
			for c := 0; c < 3; c++ {
				out[c*plane+i] = (float32(p[c])/255 - clipMean[c]) / clipStd[c]
			}
		}
	}
	return out, nil
}
