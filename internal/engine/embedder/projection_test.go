package embedder

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testTensor struct {
	name  string
	shape []int
	data  []float32
}

// writeSafetensors encodes F32 tensors in the safetensors layout.
func writeSafetensors(t *testing.T, tensors ...testTensor) string {
	t.Helper()
	header := map[string]tensorMeta{}
	var body []byte
	for _, tt := range tensors {
		start := len(body)
		for _, f := range tt.data {
			body = binary.LittleEndian.AppendUint32(body, math.Float32bits(f))
		}
		header[tt.name] = tensorMeta{Dtype: "F32", Shape: tt.shape, DataOffsets: [2]int{start, len(body)}}
	}
	h, err := json.Marshal(header)
	require.NoError(t, err)

	data := binary.LittleEndian.AppendUint64(nil, uint64(len(h)))
	data = append(data, h...)
	data = append(data, body...)

	path := filepath.Join(t.TempDir(), "model.safetensors")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoadProjection(t *testing.T) {
	path := writeSafetensors(t, testTensor{
		name:  "linear.weight",
		shape: []int{2, 3},
		data:  []float32{1, 0, 0, 0, 1, 1},
	})

	proj, err := loadProjection(path)
	require.NoError(t, err)
	assert.Equal(t, 3, proj.inDim)
	assert.Equal(t, 2, proj.outDim)
	assert.Nil(t, proj.bias)
	assert.Equal(t, []float32{1, 5}, proj.apply([]float32{1, 2, 3}))
}

func TestLoadProjectionWithBias(t *testing.T) {
	path := writeSafetensors(t,
		testTensor{name: "linear.weight", shape: []int{2, 2}, data: []float32{1, 0, 0, 1}},
		testTensor{name: "linear.bias", shape: []int{2}, data: []float32{0.5, -1}},
	)

	proj, err := loadProjection(path)
	require.NoError(t, err)
	assert.Equal(t, []float32{2.5, 2}, proj.apply([]float32{2, 3}))
}

func TestLoadProjectionErrors(t *testing.T) {
	t.Run("missing weight", func(t *testing.T) {
		path := writeSafetensors(t, testTensor{name: "other", shape: []int{1}, data: []float32{1}})
		_, err := loadProjection(path)
		assert.ErrorContains(t, err, "linear.weight")
	})
	t.Run("wrong rank", func(t *testing.T) {
		path := writeSafetensors(t, testTensor{name: "linear.weight", shape: []int{4}, data: []float32{1, 2, 3, 4}})
		_, err := loadProjection(path)
		assert.ErrorContains(t, err, "2D")
	})
	t.Run("bias mismatch", func(t *testing.T) {
		path := writeSafetensors(t,
			testTensor{name: "linear.weight", shape: []int{2, 1}, data: []float32{1, 1}},
			testTensor{name: "linear.bias", shape: []int{3}, data: []float32{1, 1, 1}},
		)
		_, err := loadProjection(path)
		assert.ErrorContains(t, err, "bias")
	})
	t.Run("truncated file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "short.safetensors")
		require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))
		_, err := loadProjection(path)
		assert.ErrorContains(t, err, "too small")
	})
}
