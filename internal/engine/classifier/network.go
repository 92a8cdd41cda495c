package classifier

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/crimson-sun/stacktag/internal/safetensors"
)

// Tensor names used when persisting a Network.
const (
	TensorHiddenWeight = "dense_1.weight"
	TensorHiddenBias   = "dense_1.bias"
	TensorOutputWeight = "dense_2.weight"
	TensorOutputBias   = "dense_2.bias"
)

// DefaultLearningRate is the Adam step size used when none is configured.
const DefaultLearningRate = 0.001

const (
	adamBeta1   = 0.9
	adamBeta2   = 0.999
	adamEpsilon = 1e-7
	logFloor    = 1e-12
)

// NetworkConfig sizes a freshly initialised Network.
type NetworkConfig struct {
	InputDim     int
	HiddenDim    int
	Classes      int
	LearningRate float64
	Seed         uint64
}

// Network is a two-layer perceptron: a ReLU hidden layer followed by a
// softmax output layer. Weights are stored input-major, so a forward pass
// is x·W + b.
//
// Probabilities and Predict only read the weights and are safe for
// concurrent use. Fit mutates them and must not run concurrently with
// anything else.
type Network struct {
	w1, b1 *mat.Dense // [in, hidden], [1, hidden]
	w2, b2 *mat.Dense // [hidden, classes], [1, classes]

	lr  float64
	opt *adam
}

// NewNetwork returns a Glorot-uniform initialised network. The same seed
// always yields the same weights.
func NewNetwork(cfg NetworkConfig) (*Network, error) {
	if cfg.InputDim <= 0 || cfg.HiddenDim <= 0 || cfg.Classes <= 0 {
		return nil, fmt.Errorf("classifier: invalid network shape %d->%d->%d",
			cfg.InputDim, cfg.HiddenDim, cfg.Classes)
	}
	lr := cfg.LearningRate
	if lr <= 0 {
		lr = DefaultLearningRate
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	return &Network{
		w1: glorot(rng, cfg.InputDim, cfg.HiddenDim),
		b1: mat.NewDense(1, cfg.HiddenDim, nil),
		w2: glorot(rng, cfg.HiddenDim, cfg.Classes),
		b2: mat.NewDense(1, cfg.Classes, nil),
		lr: lr,
	}, nil
}

func glorot(rng *rand.Rand, fanIn, fanOut int) *mat.Dense {
	limit := math.Sqrt(6 / float64(fanIn+fanOut))
	data := make([]float64, fanIn*fanOut)
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * limit
	}
	return mat.NewDense(fanIn, fanOut, data)
}

// InputDim returns the expected embedding width.
func (n *Network) InputDim() int {
	r, _ := n.w1.Dims()
	return r
}

// HiddenDim returns the width of the hidden layer.
func (n *Network) HiddenDim() int {
	_, c := n.w1.Dims()
	return c
}

// Classes returns the number of output labels.
func (n *Network) Classes() int {
	_, c := n.w2.Dims()
	return c
}

// SetLearningRate changes the Adam step size for subsequent Fit calls.
func (n *Network) SetLearningRate(lr float64) {
	if lr > 0 {
		n.lr = lr
	}
}

// Probabilities returns the softmax output for each input row.
func (n *Network) Probabilities(x [][]float32) ([][]float64, error) {
	in, err := n.input(x)
	if err != nil {
		return nil, err
	}
	_, _, p := n.forward(in)

	rows, _ := p.Dims()
	out := make([][]float64, rows)
	for i := range out {
		out[i] = mat.Row(nil, i, p)
	}
	return out, nil
}

// Predict returns the most probable class for each input row.
func (n *Network) Predict(x [][]float32) ([]int, error) {
	probs, err := n.Probabilities(x)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(probs))
	for i, row := range probs {
		out[i] = argmax(row)
	}
	return out, nil
}

// Fit performs one Adam step on the batch (x, y) and returns the mean
// cross-entropy loss measured before the update.
func (n *Network) Fit(x [][]float32, y []int) (float64, error) {
	if len(x) != len(y) {
		return 0, fmt.Errorf("classifier: %d inputs but %d labels", len(x), len(y))
	}
	in, err := n.input(x)
	if err != nil {
		return 0, err
	}
	classes := n.Classes()
	for i, label := range y {
		if label < 0 || label >= classes {
			return 0, fmt.Errorf("classifier: label %d at row %d out of range [0, %d)", label, i, classes)
		}
	}

	z1, a1, p := n.forward(in)
	rows := float64(len(y))

	var loss float64
	dz2 := mat.DenseCopyOf(p)
	for i, label := range y {
		loss -= math.Log(math.Max(p.At(i, label), logFloor))
		dz2.Set(i, label, dz2.At(i, label)-1)
	}
	loss /= rows
	dz2.Scale(1/rows, dz2)

	var dw2 mat.Dense
	dw2.Mul(a1.T(), dz2)
	db2 := colSums(dz2)

	var dz1 mat.Dense
	dz1.Mul(dz2, n.w2.T())
	dz1.Apply(func(i, j int, v float64) float64 {
		if z1.At(i, j) <= 0 {
			return 0
		}
		return v
	}, &dz1)

	var dw1 mat.Dense
	dw1.Mul(in.T(), &dz1)
	db1 := colSums(&dz1)

	if n.opt == nil {
		n.opt = newAdam(n.params())
	}
	n.opt.step(n.lr, []*mat.Dense{&dw1, db1, &dw2, db2})
	return loss, nil
}

func (n *Network) params() []*mat.Dense {
	return []*mat.Dense{n.w1, n.b1, n.w2, n.b2}
}

func (n *Network) input(x [][]float32) (*mat.Dense, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("classifier: empty input")
	}
	dim := n.InputDim()
	data := make([]float64, 0, len(x)*dim)
	for i, row := range x {
		if len(row) != dim {
			return nil, fmt.Errorf("classifier: row %d has dim %d, want %d", i, len(row), dim)
		}
		for _, v := range row {
			data = append(data, float64(v))
		}
	}
	return mat.NewDense(len(x), dim, data), nil
}

// forward returns the hidden pre-activation, the hidden activation and the
// softmax output.
func (n *Network) forward(x *mat.Dense) (z1, a1, p *mat.Dense) {
	z1 = affine(x, n.w1, n.b1)
	a1 = mat.DenseCopyOf(z1)
	a1.Apply(func(_, _ int, v float64) float64 { return math.Max(v, 0) }, a1)

	p = affine(a1, n.w2, n.b2)
	rows, cols := p.Dims()
	for i := 0; i < rows; i++ {
		row := p.RawRowView(i)
		peak := row[0]
		for _, v := range row[1:] {
			peak = math.Max(peak, v)
		}
		var sum float64
		for j := 0; j < cols; j++ {
			row[j] = math.Exp(row[j] - peak)
			sum += row[j]
		}
		for j := 0; j < cols; j++ {
			row[j] /= sum
		}
	}
	return z1, a1, p
}

func affine(x, w, b *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Mul(x, w)
	bias := b.RawRowView(0)
	rows, _ := out.Dims()
	for i := 0; i < rows; i++ {
		row := out.RawRowView(i)
		for j := range row {
			row[j] += bias[j]
		}
	}
	return &out
}

func colSums(m *mat.Dense) *mat.Dense {
	rows, cols := m.Dims()
	out := mat.NewDense(1, cols, nil)
	sums := out.RawRowView(0)
	for i := 0; i < rows; i++ {
		for j, v := range m.RawRowView(i) {
			sums[j] += v
		}
	}
	return out
}

func argmax(row []float64) int {
	best := 0
	for i, v := range row {
		if v > row[best] {
			best = i
		}
	}
	return best
}

// adam holds first and second moment estimates for each parameter.
type adam struct {
	params []*mat.Dense
	m, v   []*mat.Dense
	t      int
}

func newAdam(params []*mat.Dense) *adam {
	a := &adam{params: params}
	for _, p := range params {
		r, c := p.Dims()
		a.m = append(a.m, mat.NewDense(r, c, nil))
		a.v = append(a.v, mat.NewDense(r, c, nil))
	}
	return a
}

func (a *adam) step(lr float64, grads []*mat.Dense) {
	a.t++
	corr1 := 1 - math.Pow(adamBeta1, float64(a.t))
	corr2 := 1 - math.Pow(adamBeta2, float64(a.t))

	for k, p := range a.params {
		rows, _ := p.Dims()
		for i := 0; i < rows; i++ {
			pr, gr := p.RawRowView(i), grads[k].RawRowView(i)
			mr, vr := a.m[k].RawRowView(i), a.v[k].RawRowView(i)
			for j, g := range gr {
				mr[j] = adamBeta1*mr[j] + (1-adamBeta1)*g
				vr[j] = adamBeta2*vr[j] + (1-adamBeta2)*g*g
				pr[j] -= lr * (mr[j] / corr1) / (math.Sqrt(vr[j]/corr2) + adamEpsilon)
			}
		}
	}
}

// Tensors exports the weights for persistence.
func (n *Network) Tensors() map[string]safetensors.Tensor {
	return map[string]safetensors.Tensor{
		TensorHiddenWeight: toTensor(n.w1, false),
		TensorHiddenBias:   toTensor(n.b1, true),
		TensorOutputWeight: toTensor(n.w2, false),
		TensorOutputBias:   toTensor(n.b2, true),
	}
}

func toTensor(m *mat.Dense, vector bool) safetensors.Tensor {
	rows, cols := m.Dims()
	data := make([]float32, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for _, v := range m.RawRowView(i) {
			data = append(data, float32(v))
		}
	}
	shape := []int{rows, cols}
	if vector {
		shape = []int{cols}
	}
	return safetensors.Tensor{Shape: shape, Data: data}
}

// NetworkFromTensors rebuilds a Network from persisted weights, checking
// that the four tensors agree on their shapes.
func NetworkFromTensors(tensors map[string]safetensors.Tensor) (*Network, error) {
	get := func(name string, rank int) (safetensors.Tensor, error) {
		t, ok := tensors[name]
		if !ok {
			return t, fmt.Errorf("classifier: tensor %q missing", name)
		}
		if len(t.Shape) != rank {
			return t, fmt.Errorf("classifier: tensor %q has shape %v, want rank %d", name, t.Shape, rank)
		}
		if t.NumElements() != len(t.Data) {
			return t, fmt.Errorf("classifier: tensor %q has %d values for shape %v", name, len(t.Data), t.Shape)
		}
		return t, nil
	}

	w1, err := get(TensorHiddenWeight, 2)
	if err != nil {
		return nil, err
	}
	b1, err := get(TensorHiddenBias, 1)
	if err != nil {
		return nil, err
	}
	w2, err := get(TensorOutputWeight, 2)
	if err != nil {
		return nil, err
	}
	b2, err := get(TensorOutputBias, 1)
	if err != nil {
		return nil, err
	}

	in, hidden, classes := w1.Shape[0], w1.Shape[1], w2.Shape[1]
	if b1.Shape[0] != hidden || w2.Shape[0] != hidden || b2.Shape[0] != classes {
		return nil, fmt.Errorf("classifier: inconsistent tensor shapes %v %v %v %v",
			w1.Shape, b1.Shape, w2.Shape, b2.Shape)
	}
	if in <= 0 || hidden <= 0 || classes <= 0 {
		return nil, fmt.Errorf("classifier: empty tensor shape %d->%d->%d", in, hidden, classes)
	}

	return &Network{
		w1: fromTensor(w1, in, hidden),
		b1: fromTensor(b1, 1, hidden),
		w2: fromTensor(w2, hidden, classes),
		b2: fromTensor(b2, 1, classes),
		lr: DefaultLearningRate,
	}, nil
}

func fromTensor(t safetensors.Tensor, rows, cols int) *mat.Dense {
	data := make([]float64, len(t.Data))
	for i, v := range t.Data {
		data[i] = float64(v)
	}
	return mat.NewDense(rows, cols, data)
}
