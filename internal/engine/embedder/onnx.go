package embedder

import (
	"fmt"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// sharedLibrary is the ONNX Runtime library expected next to the model file.
const sharedLibrary = "libonnxruntime.so"

var requiredInputs = []string{"input_ids", "attention_mask", "token_type_ids"}

// ortEnv guards the process-wide ONNX Runtime initialisation.
var ortEnv struct {
	once sync.Once
	err  error
}

func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// onnxSession wraps a DynamicAdvancedSession for a BERT-style encoder whose
// single output has shape [batch, seq, dim].
type onnxSession struct {
	mu         sync.Mutex
	session    *ort.DynamicAdvancedSession
	outputName string
	embedDim   int64
}

func newONNXSession(modelPath string) (*onnxSession, error) {
	if err := initORT(filepath.Join(filepath.Dir(modelPath), sharedLibrary)); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}
	if err := checkInputs(inputs); err != nil {
		return nil, err
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("onnx: model has no outputs")
	}
	dims := outputs[0].Dimensions
	if len(dims) != 3 {
		return nil, fmt.Errorf("onnx: expected 3D output tensor, got %v", dims)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(4)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(modelPath, requiredInputs, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}
	return &onnxSession{session: session, outputName: outputs[0].Name, embedDim: dims[2]}, nil
}

func checkInputs(inputs []ort.InputOutputInfo) error {
	have := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		have[in.Name] = true
	}
	for _, name := range requiredInputs {
		if !have[name] {
			return fmt.Errorf("onnx: model missing required input %q", name)
		}
	}
	return nil
}

// infer runs one forward pass over flat [batchSize * seqLen] inputs and
// returns the flat [batchSize * seqLen * embedDim] hidden states.
func (s *onnxSession) infer(inputIDs, attentionMask, tokenTypeIDs []int64, batchSize, seqLen int64) ([]float32, error) {
	shape := ort.NewShape(batchSize, seqLen)

	var inputs []ort.Value
	defer func() {
		for _, v := range inputs {
			v.Destroy()
		}
	}()
	for i, data := range [][]int64{inputIDs, attentionMask, tokenTypeIDs} {
		t, err := ort.NewTensor(shape, data)
		if err != nil {
			return nil, fmt.Errorf("onnx: failed to create %s tensor: %w", requiredInputs[i], err)
		}
		inputs = append(inputs, t)
	}

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(batchSize, seqLen, s.embedDim))
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create output tensor: %w", err)
	}
	defer out.Destroy()

	s.mu.Lock()
	err = s.session.Run(inputs, []ort.Value{out})
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("onnx: inference failed: %w", err)
	}

	result := make([]float32, len(out.GetData()))
	copy(result, out.GetData())
	return result, nil
}

func (s *onnxSession) close() error {
	return s.session.Destroy()
}
