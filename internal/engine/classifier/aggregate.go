package classifier

import (
	"fmt"

	"github.com/hejijunhao/tagger/internal/model"
)

// Aggregate averages consecutive blocks of k prompt scores into one score
// per entry. len(scores) must be a positive multiple of k.
func Aggregate(scores []float64, k int) ([]float64, error) {
	if k <= 0 {
		return nil, model.WrapError(model.ErrConfiguration, "aggregate", fmt.Errorf("block size %d", k))
	}
	if len(scores) == 0 || len(scores)%k != 0 {
		return nil, model.WrapError(model.ErrBackend, "aggregate",
			fmt.Errorf("%d scores do not divide into blocks of %d", len(scores), k))
	}

	out := make([]float64, len(scores)/k)
	for i := range out {
		var sum float64
		for _, s := range scores[i*k : (i+1)*k] {
			sum += s
		}
		out[i] = sum / float64(k)
	}
	return out, nil
}
