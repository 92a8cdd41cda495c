package classifier

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/crimson-sun/stacktag/internal/dataset"
)

// Result is one candidate label for an input.
type Result struct {
	Label      string  `json:"label"`
	Index      int     `json:"index"`
	Confidence float64 `json:"confidence"`
}

// Classifier maps network outputs back to label names.
type Classifier struct {
	// Threshold drops candidates whose probability is below it.
	Threshold float64

	net    *Network
	labels dataset.LabelIndex
}

// New pairs a network with the label index it was trained against.
func New(net *Network, labels dataset.LabelIndex, threshold float64) (*Classifier, error) {
	if net.Classes() != labels.Len() {
		return nil, fmt.Errorf("classifier: network has %d outputs but %d labels",
			net.Classes(), labels.Len())
	}
	return &Classifier{Threshold: threshold, net: net, labels: labels}, nil
}

// Network returns the underlying network.
func (c *Classifier) Network() *Network {
	return c.net
}

// Labels returns the label index.
func (c *Classifier) Labels() dataset.LabelIndex {
	return c.labels
}

// TopK returns, for each vector, up to k labels in descending order of
// probability. k is clamped to [1, number of labels]; ties keep the lower
// label index first.
func (c *Classifier) TopK(vectors [][]float32, k int) ([][]Result, error) {
	probs, err := c.net.Probabilities(vectors)
	if err != nil {
		return nil, err
	}
	k = min(max(k, 1), c.labels.Len())

	out := make([][]Result, len(probs))
	for i, row := range probs {
		ranked := make([]Result, len(row))
		for j, p := range row {
			label, _ := c.labels.Label(j)
			ranked[j] = Result{Label: label, Index: j, Confidence: p}
		}
		slices.SortStableFunc(ranked, func(a, b Result) int {
			return cmp.Compare(b.Confidence, a.Confidence)
		})

		top := make([]Result, 0, k)
		for _, r := range ranked[:k] {
			if r.Confidence < c.Threshold {
				break
			}
			top = append(top, r)
		}
		out[i] = top
	}
	return out, nil
}
