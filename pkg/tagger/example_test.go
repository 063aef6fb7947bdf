package tagger_test

import (
	"context"
	"fmt"
	"image"
	"log"

	"github.com/hejijunhao/tagger/pkg/tagger"
)

// constantBackend embeds every input as the same unit vector, so all
// categories tie and the first ones in taxonomy order win.
type constantBackend struct{}

func (constantBackend) EncodeImage(context.Context, image.Image) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (constantBackend) EncodeText(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (constantBackend) Dim() int             { return 2 }
func (constantBackend) ModelVersion() string { return "constant" }
func (constantBackend) Close() error         { return nil }

func Example() {
	t, err := tagger.New(
		tagger.WithBackend(constantBackend{}),
		tagger.WithTaxonomy(tagger.Node{
			Name:     "Electronics",
			Template: "a product photo of {}, electronic device",
			Children: []tagger.Node{
				{Name: "Smartphones", Items: []string{"smartphone"}},
				{Name: "Cameras", Items: []string{"digital camera"}},
			},
		}),
		tagger.WithMaxResults(1),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer t.Close()

	cats, err := t.ClassifyImage(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8)))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%s %.2f\n", cats[0].Label, cats[0].Confidence)
	// Output:
	// Electronics - Smartphones - smartphone 1.00
}
