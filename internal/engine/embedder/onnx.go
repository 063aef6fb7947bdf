package embedder

import (
	"fmt"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ortEnv manages global ONNX Runtime initialization (process-wide singleton).
var ortEnv struct {
	once sync.Once
	err  error
}

// initORT initializes the ONNX Runtime environment. Safe to call multiple
// times; only the first call has any effect.
func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// initForModel initializes the runtime from the shared library shipped
// alongside the model files.
func initForModel(modelPath string) error {
	libPath := filepath.Join(filepath.Dir(modelPath), "libonnxruntime.so")
	if err := initORT(libPath); err != nil {
		return fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}
	return nil
}

func newSessionOptions() (*ort.SessionOptions, error) {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	opts.SetIntraOpNumThreads(4)
	opts.SetInterOpNumThreads(1)
	return opts, nil
}

// textSession wraps a DynamicAdvancedSession for BERT-style text models.
// token_type_ids is fed only when the model declares it (DistilBERT does not).
type textSession struct {
	session    *ort.DynamicAdvancedSession
	inputNames []string
	outputName string
	embedDim   int64
	useTypeIDs bool
}

// newTextSession loads the text transformer and validates its tensor names
// and shapes.
func newTextSession(modelPath string) (*textSession, error) {
	if err := initForModel(modelPath); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}

	inputNames, err := validateTextInputs(inputs)
	if err != nil {
		return nil, err
	}

	// Expect a hidden-state tensor with shape [batch, seq, dim].
	if len(outputs) == 0 {
		return nil, fmt.Errorf("onnx: model has no outputs")
	}
	outputName := outputs[0].Name
	dims := outputs[0].Dimensions
	if len(dims) != 3 {
		return nil, fmt.Errorf("onnx: expected 3D output tensor, got %v", dims)
	}
	if dims[2] <= 0 {
		return nil, fmt.Errorf("onnx: text output has dynamic hidden size %v", dims)
	}

	opts, err := newSessionOptions()
	if err != nil {
		return nil, err
	}
	defer opts.Destroy()

	session, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, []string{outputName}, opts)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}

	return &textSession{
		session:    session,
		inputNames: inputNames,
		outputName: outputName,
		embedDim:   dims[2],
		useTypeIDs: len(inputNames) == 3,
	}, nil
}

// validateTextInputs checks for the BERT-style inputs and returns the names
// to feed, in order.
func validateTextInputs(inputs []ort.InputOutputInfo) ([]string, error) {
	nameSet := make(map[string]bool, len(inputs))
	for _, inp := range inputs {
		nameSet[inp.Name] = true
	}
	required := []string{"input_ids", "attention_mask"}
	for _, name := range required {
		if !nameSet[name] {
			return nil, fmt.Errorf("onnx: model missing required input %q", name)
		}
	}
	if nameSet["token_type_ids"] {
		required = append(required, "token_type_ids")
	}
	return required, nil
}

// infer runs a single inference call. inputIDs, attentionMask, and
// tokenTypeIDs are flat [batchSize * seqLen] slices. Returns the raw output
// tensor data as a flat float32 slice of shape [batchSize * seqLen * embedDim].
func (s *textSession) infer(inputIDs, attentionMask, tokenTypeIDs []int64, batchSize, seqLen int64) ([]float32, error) {
	shape := ort.NewShape(batchSize, seqLen)

	tIDs, err := ort.NewTensor(shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create input_ids tensor: %w", err)
	}
	defer tIDs.Destroy()

	tMask, err := ort.NewTensor(shape, attentionMask)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create attention_mask tensor: %w", err)
	}
	defer tMask.Destroy()

	inputs := []ort.Value{tIDs, tMask}
	if s.useTypeIDs {
		tTypes, err := ort.NewTensor(shape, tokenTypeIDs)
		if err != nil {
			return nil, fmt.Errorf("onnx: failed to create token_type_ids tensor: %w", err)
		}
		defer tTypes.Destroy()
		inputs = append(inputs, tTypes)
	}

	tOut, err := ort.NewEmptyTensor[float32](ort.NewShape(batchSize, seqLen, s.embedDim))
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create output tensor: %w", err)
	}
	defer tOut.Destroy()

	if err := s.session.Run(inputs, []ort.Value{tOut}); err != nil {
		return nil, fmt.Errorf("onnx: inference failed: %w", err)
	}

	// Copy data out before tensor is destroyed.
	src := tOut.GetData()
	result := make([]float32, len(src))
	copy(result, src)
	return result, nil
}

func (s *textSession) close() error {
	return s.session.Destroy()
}

// visionSession wraps the CLIP vision tower: [batch, 3, size, size] pixels in,
// [batch, dim] image embeddings out.
type visionSession struct {
	session    *ort.DynamicAdvancedSession
	inputName  string
	outputName string
	imageSize  int64
	embedDim   int64
}

// newVisionSession loads the vision tower. The pixel input is "pixel_values"
// when present, otherwise the model's only input; the output is
// "image_embeds" when present, otherwise the first 2D output.
func newVisionSession(modelPath string) (*visionSession, error) {
	if err := initForModel(modelPath); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}

	in, err := pickVisionInput(inputs)
	if err != nil {
		return nil, err
	}
	out, err := pickVisionOutput(outputs)
	if err != nil {
		return nil, err
	}

	size := in.Dimensions[2]
	if size <= 0 {
		size = 224
	}

	opts, err := newSessionOptions()
	if err != nil {
		return nil, err
	}
	defer opts.Destroy()

	session, err := ort.NewDynamicAdvancedSession(modelPath, []string{in.Name}, []string{out.Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create vision session: %w", err)
	}

	return &visionSession{
		session:    session,
		inputName:  in.Name,
		outputName: out.Name,
		imageSize:  size,
		embedDim:   out.Dimensions[1],
	}, nil
}

func pickVisionInput(inputs []ort.InputOutputInfo) (ort.InputOutputInfo, error) {
	for _, inp := range inputs {
		if inp.Name == "pixel_values" {
			if len(inp.Dimensions) != 4 {
				return inp, fmt.Errorf("onnx: pixel_values must be 4D, got %v", inp.Dimensions)
			}
			return inp, nil
		}
	}
	if len(inputs) == 1 && len(inputs[0].Dimensions) == 4 {
		return inputs[0], nil
	}
	return ort.InputOutputInfo{}, fmt.Errorf("onnx: vision model has no pixel_values input")
}

func pickVisionOutput(outputs []ort.InputOutputInfo) (ort.InputOutputInfo, error) {
	for _, out := range outputs {
		if out.Name == "image_embeds" && len(out.Dimensions) == 2 && out.Dimensions[1] > 0 {
			return out, nil
		}
	}
	for _, out := range outputs {
		if len(out.Dimensions) == 2 && out.Dimensions[1] > 0 {
			return out, nil
		}
	}
	return ort.InputOutputInfo{}, fmt.Errorf("onnx: vision model has no [batch, dim] output")
}

// infer embeds one preprocessed CHW image.
func (s *visionSession) infer(pixels []float32) ([]float32, error) {
	tIn, err := ort.NewTensor(ort.NewShape(1, 3, s.imageSize, s.imageSize), pixels)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create pixel tensor: %w", err)
	}
	defer tIn.Destroy()

	tOut, err := ort.NewEmptyTensor[float32](ort.NewShape(1, s.embedDim))
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create output tensor: %w", err)
	}
	defer tOut.Destroy()

	if err := s.session.Run([]ort.Value{tIn}, []ort.Value{tOut}); err != nil {
		return nil, fmt.Errorf("onnx: vision inference failed: %w", err)
	}

	src := tOut.GetData()
	result := make([]float32, len(src))
	copy(result, src)
	return result, nil
}

func (s *visionSession) close() error {
	return s.session.Destroy()
}
