package embedder

import (
	"fmt"

	"github.com/crimson-sun/stacktag/internal/safetensors"
)

const projectionTensor = "linear.weight"

// projection is a bias-free dense layer mapping inDim to outDim.
type projection struct {
	weights []float32 // row-major [outDim, inDim]
	inDim   int
	outDim  int
}

// loadProjection reads the "linear.weight" tensor from a safetensors file.
func loadProjection(path string) (*projection, error) {
	tensors, err := safetensors.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("projection: %w", err)
	}
	w, ok := tensors[projectionTensor]
	if !ok {
		return nil, fmt.Errorf("projection: tensor %q not found in %s", projectionTensor, path)
	}
	if len(w.Shape) != 2 {
		return nil, fmt.Errorf("projection: expected 2D tensor, got shape %v", w.Shape)
	}
	return &projection{weights: w.Data, outDim: w.Shape[0], inDim: w.Shape[1]}, nil
}

func (p *projection) apply(vec []float32) []float32 {
	out := make([]float32, p.outDim)
	for i := range out {
		row := p.weights[i*p.inDim : (i+1)*p.inDim]
		var sum float32
		for j, w := range row {
			sum += w * vec[j]
		}
		out[i] = sum
	}
	return out
}
