// Package embedder turns question titles into fixed-size vectors.
package embedder

import (
	"fmt"

	"github.com/crimson-sun/stacktag/internal/model"
)

// DefaultHashDim is the hashing embedder's width when Dim is unset.
const DefaultHashDim = 512

// Embedder produces vector embeddings from text.
type Embedder interface {
	Embed(text string) ([]float32, error)
	EmbedBatch(texts []string) ([][]float32, error)
	Dim() int
	Close() error
}

// Open builds the embedder described by spec.
func Open(spec model.EmbedderSpec) (Embedder, error) {
	switch spec.Kind {
	case "", model.EmbedderHash:
		dim := spec.Dim
		if dim == 0 {
			dim = DefaultHashDim
		}
		return NewHash(dim)
	case model.EmbedderONNX:
		return New(spec.ModelPath, spec.VocabPath, spec.ProjectionPath)
	default:
		return nil, fmt.Errorf("embedder: unknown kind %q", spec.Kind)
	}
}

// ONNXEmbedder runs a BERT-style sentence model: WordPiece tokenisation,
// ONNX inference, mean pooling, then a dense projection.
type ONNXEmbedder struct {
	session *onnxSession
	tok     *tokenizer
	proj    *projection
}

// New loads the ONNX model, its vocabulary and the projection weights.
func New(modelPath, vocabPath, projectionPath string) (*ONNXEmbedder, error) {
	sess, err := newONNXSession(modelPath)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	tok, err := newTokenizer(vocabPath)
	if err != nil {
		sess.close()
		return nil, fmt.Errorf("embedder: %w", err)
	}

	proj, err := loadProjection(projectionPath)
	if err != nil {
		sess.close()
		return nil, fmt.Errorf("embedder: %w", err)
	}

	if int(sess.embedDim) != proj.inDim {
		sess.close()
		return nil, fmt.Errorf("embedder: ONNX output dim %d != projection input dim %d",
			sess.embedDim, proj.inDim)
	}

	return &ONNXEmbedder{session: sess, tok: tok, proj: proj}, nil
}

// Dim returns the width of the projected embedding.
func (e *ONNXEmbedder) Dim() int {
	return e.proj.outDim
}

// Embed produces a single embedding vector for the given text.
func (e *ONNXEmbedder) Embed(text string) ([]float32, error) {
	vecs, err := e.EmbedBatch([]string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one inference call, padded to the longest
// sequence in the batch.
func (e *ONNXEmbedder) EmbedBatch(texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	batch := e.tok.tokenizeBatch(texts)
	hidden, err := e.session.infer(
		batch.inputIDs, batch.attentionMask, batch.tokenTypeIDs,
		batch.batchSize, batch.seqLen,
	)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	rows := meanPool(hidden, batch.attentionMask,
		int(batch.batchSize), int(batch.seqLen), int(e.session.embedDim))
	for i, row := range rows {
		rows[i] = e.proj.apply(row)
	}
	return rows, nil
}

// Close releases ONNX Runtime resources.
func (e *ONNXEmbedder) Close() error {
	if e.session != nil {
		return e.session.close()
	}
	return nil
}
