package embedder

import (
	"fmt"
)

// textBatchSize caps how many prompts go through the text tower per call.
const textBatchSize = 64

// textEncoder is the text half of the CLIP backend. The full pipeline is:
// tokenize → ONNX inference → mean pool → dense projection into image space.
type textEncoder struct {
	session *textSession
	tok     *tokenizer
	proj    *projection
}

func newTextEncoder(modelPath, vocabPath, projectionPath string) (*textEncoder, error) {
	sess, err := newTextSession(modelPath)
	if err != nil {
		return nil, err
	}

	tok, err := newTokenizer(vocabPath)
	if err != nil {
		sess.close()
		return nil, err
	}

	proj, err := loadProjection(projectionPath)
	if err != nil {
		sess.close()
		return nil, err
	}

	if int(sess.embedDim) != proj.inDim {
		sess.close()
		return nil, fmt.Errorf("ONNX output dim %d != projection input dim %d", sess.embedDim, proj.inDim)
	}

	return &textEncoder{session: sess, tok: tok, proj: proj}, nil
}

// dim returns the final embedding dimensionality (after projection).
func (e *textEncoder) dim() int {
	return e.proj.outDim
}

// encodeBatch produces embedding vectors for up to textBatchSize texts.
// Routes through tokenizeBatch for dynamic padding to the longest sequence.
func (e *textEncoder) encodeBatch(texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	batch := e.tok.tokenizeBatch(texts)

	hidden, err := e.session.infer(
		batch.inputIDs, batch.attentionMask, batch.tokenTypeIDs,
		batch.batchSize, batch.seqLen,
	)
	if err != nil {
		return nil, err
	}

	pooled, err := poolPrompts(hidden, batch.attentionMask, batch.seqLen, e.session.embedDim)
	if err != nil {
		return nil, err
	}
	for i, v := range pooled {
		pooled[i] = e.proj.apply(v)
	}
	return pooled, nil
}

func (e *textEncoder) close() error {
	return e.session.close()
}
