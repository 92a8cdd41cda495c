package dataset

import (
	"fmt"
	"sort"

	"github.com/goccy/go-json"
)

// LabelIndex is an immutable bijection between label names and the dense
// integer codes [0, Len()). Codes follow the order of the list it was built
// from. The zero value is an empty index.
type LabelIndex struct {
	labels []string
	index  map[string]int
}

// NewLabelIndex builds an index from an ordered list of distinct labels.
func NewLabelIndex(labels []string) (LabelIndex, error) {
	idx := LabelIndex{
		labels: make([]string, len(labels)),
		index:  make(map[string]int, len(labels)),
	}
	for i, l := range labels {
		if _, dup := idx.index[l]; dup {
			return LabelIndex{}, fmt.Errorf("%w: duplicate label %q", ErrPrecondition, l)
		}
		idx.labels[i] = l
		idx.index[l] = i
	}
	return idx, nil
}

// Len returns the number of labels.
func (x LabelIndex) Len() int {
	return len(x.labels)
}

// Labels returns the labels in index order.
func (x LabelIndex) Labels() []string {
	out := make([]string, len(x.labels))
	copy(out, x.labels)
	return out
}

// Index returns the code of a label.
func (x LabelIndex) Index(label string) (int, bool) {
	i, ok := x.index[label]
	return i, ok
}

// Label returns the label for a code.
func (x LabelIndex) Label(i int) (string, bool) {
	if i < 0 || i >= len(x.labels) {
		return "", false
	}
	return x.labels[i], true
}

// LabelToIndex returns a fresh label -> code map.
func (x LabelIndex) LabelToIndex() map[string]int {
	m := make(map[string]int, len(x.labels))
	for i, l := range x.labels {
		m[l] = i
	}
	return m
}

// IndexToLabel returns a fresh code -> label map.
func (x LabelIndex) IndexToLabel() map[int]string {
	m := make(map[int]string, len(x.labels))
	for i, l := range x.labels {
		m[i] = l
	}
	return m
}

// Encode maps labels to their codes. It fails with ErrUnknownLabel on the
// first label that is not in the index.
func (x LabelIndex) Encode(labels []string) ([]int, error) {
	out := make([]int, len(labels))
	for i, l := range labels {
		code, ok := x.index[l]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownLabel, l)
		}
		out[i] = code
	}
	return out, nil
}

// Decode maps codes back to labels.
func (x LabelIndex) Decode(codes []int) ([]string, error) {
	out := make([]string, len(codes))
	for i, c := range codes {
		l, ok := x.Label(c)
		if !ok {
			return nil, fmt.Errorf("%w: code %d out of range [0, %d)", ErrPrecondition, c, len(x.labels))
		}
		out[i] = l
	}
	return out, nil
}

// MarshalJSON encodes the index as a label -> code object.
func (x LabelIndex) MarshalJSON() ([]byte, error) {
	return json.Marshal(x.LabelToIndex())
}

// UnmarshalJSON decodes a label -> code object. The codes must cover
// [0, n) exactly once.
func (x *LabelIndex) UnmarshalJSON(data []byte) error {
	var m map[string]int
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("label index: %w", err)
	}
	type entry struct {
		label string
		code  int
	}
	entries := make([]entry, 0, len(m))
	for l, c := range m {
		entries = append(entries, entry{l, c})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].code < entries[j].code })

	labels := make([]string, len(entries))
	for i, e := range entries {
		if e.code != i {
			return fmt.Errorf("%w: label index codes are not dense at %d", ErrPrecondition, i)
		}
		labels[i] = e.label
	}
	idx, err := NewLabelIndex(labels)
	if err != nil {
		return err
	}
	*x = idx
	return nil
}
