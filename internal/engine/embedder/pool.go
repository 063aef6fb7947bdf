package embedder

import "fmt"

// poolPrompts averages the hidden states of each prompt's real tokens.
// hidden is [prompts][seqLen][dim] and mask is [prompts][seqLen], both
// flattened; the prompt count is taken from mask. A prompt whose mask is
// all padding pools to the zero vector.
func poolPrompts(hidden []float32, mask []int64, seqLen, dim int64) ([][]float32, error) {
	if seqLen <= 0 || dim <= 0 || int64(len(mask))%seqLen != 0 {
		return nil, fmt.Errorf("pool: mask of %d tokens does not split into sequences of %d", len(mask), seqLen)
	}
	n := int64(len(mask)) / seqLen
	if int64(len(hidden)) != n*seqLen*dim {
		return nil, fmt.Errorf("pool: hidden state has %d values, want %d", len(hidden), n*seqLen*dim)
	}

	out := make([][]float32, n)
	for p := range n {
		vec := make([]float32, dim)
		var tokens float32
		for s := range seqLen {
			if mask[p*seqLen+s] != 1 {
				continue
			}
			tokens++
			row := hidden[(p*seqLen+s)*dim : (p*seqLen+s+1)*dim]
			for d, v := range row {
				vec[d] += v
			}
		}
		if tokens > 0 {
			for d := range vec {
				vec[d] /= tokens
			}
		}
		out[p] = vec
	}
	return out, nil
}
