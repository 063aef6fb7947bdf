package embedder

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// projection is a dense layer loaded from a safetensors file: out = W·x (+ b),
// identity activation.
type projection struct {
	weights []float32 // row-major [outDim, inDim]
	bias    []float32 // [outDim] or nil
	inDim   int
	outDim  int
}

// tensorMeta is one entry of a safetensors JSON header.
type tensorMeta struct {
	Dtype       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets [2]int `json:"data_offsets"`
}

// loadProjection reads "linear.weight" (F32, 2D) and, when present,
// "linear.bias" (F32, 1D) from a safetensors file.
func loadProjection(path string) (*projection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("projection: %w", err)
	}
	st, err := parseSafetensors(data)
	if err != nil {
		return nil, fmt.Errorf("projection: %w", err)
	}

	weights, shape, err := st.float32s("linear.weight")
	if err != nil {
		return nil, fmt.Errorf("projection: %w", err)
	}
	if len(shape) != 2 {
		return nil, fmt.Errorf("projection: expected 2D weight, got shape %v", shape)
	}
	p := &projection{weights: weights, outDim: shape[0], inDim: shape[1]}

	if _, ok := st.header["linear.bias"]; ok {
		bias, bshape, err := st.float32s("linear.bias")
		if err != nil {
			return nil, fmt.Errorf("projection: %w", err)
		}
		if len(bshape) != 1 || bshape[0] != p.outDim {
			return nil, fmt.Errorf("projection: bias shape %v does not match output dim %d", bshape, p.outDim)
		}
		p.bias = bias
	}
	return p, nil
}

type safetensors struct {
	header map[string]json.RawMessage
	body   []byte
}

// parseSafetensors splits the 8-byte little-endian header length, the JSON
// header and the raw tensor body.
func parseSafetensors(data []byte) (*safetensors, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("file too small: %d bytes", len(data))
	}
	headerLen := binary.LittleEndian.Uint64(data[:8])
	if uint64(len(data))-8 < headerLen {
		return nil, fmt.Errorf("header length %d exceeds file size", headerLen)
	}

	var header map[string]json.RawMessage
	if err := json.Unmarshal(data[8:8+headerLen], &header); err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}
	return &safetensors{header: header, body: data[8+headerLen:]}, nil
}

func (s *safetensors) float32s(name string) ([]float32, []int, error) {
	raw, ok := s.header[name]
	if !ok {
		return nil, nil, fmt.Errorf("tensor %q not found in header", name)
	}
	var meta tensorMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, nil, fmt.Errorf("tensor %q: bad metadata: %w", name, err)
	}
	if meta.Dtype != "F32" {
		return nil, nil, fmt.Errorf("tensor %q: expected dtype F32, got %s", name, meta.Dtype)
	}

	n := 1
	for _, d := range meta.Shape {
		n *= d
	}
	start, end := meta.DataOffsets[0], meta.DataOffsets[1]
	if start < 0 || end > len(s.body) || end-start != n*4 {
		return nil, nil, fmt.Errorf("tensor %q: data range [%d:%d] does not fit shape %v in %d bytes",
			name, start, end, meta.Shape, len(s.body))
	}

	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(s.body[start+i*4:]))
	}
	return out, meta.Shape, nil
}

// apply projects a single vector from inDim to outDim.
func (p *projection) apply(vec []float32) []float32 {
	out := make([]float32, p.outDim)
	for i := range out {
		row := p.weights[i*p.inDim : (i+1)*p.inDim]
		var sum float32
		for j, w := range row {
			sum += w * vec[j]
		}
		if p.bias != nil {
			sum += p.bias[i]
		}
		out[i] = sum
	}
	return out
}
