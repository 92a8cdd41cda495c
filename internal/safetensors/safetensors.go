// Package safetensors reads and writes float32 tensors in the safetensors
// layout: an 8-byte little-endian header length, a JSON header describing
// each tensor, then the raw little-endian tensor bytes.
package safetensors

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/goccy/go-json"
)

const (
	dtypeF32    = "F32"
	metadataKey = "__metadata__"
)

// Tensor is a dense row-major float32 tensor.
type Tensor struct {
	Shape []int
	Data  []float32
}

// NumElements returns the product of the shape dimensions.
func (t Tensor) NumElements() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

type tensorInfo struct {
	Dtype       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets [2]int `json:"data_offsets"`
}

// ReadFile loads every tensor from a safetensors file.
func ReadFile(path string) (map[string]Tensor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("safetensors: %w", err)
	}
	return Decode(data)
}

// Decode parses a safetensors payload. Only F32 tensors are supported.
func Decode(data []byte) (map[string]Tensor, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("safetensors: file too small: %d bytes", len(data))
	}

	headerLen := binary.LittleEndian.Uint64(data[:8])
	if uint64(len(data)) < 8+headerLen {
		return nil, fmt.Errorf("safetensors: header length %d exceeds file size", headerLen)
	}

	var header map[string]json.RawMessage
	if err := json.Unmarshal(data[8:8+headerLen], &header); err != nil {
		return nil, fmt.Errorf("safetensors: failed to parse header: %w", err)
	}

	body := data[8+headerLen:]
	tensors := make(map[string]Tensor, len(header))
	for name, raw := range header {
		if name == metadataKey {
			continue
		}
		var meta tensorInfo
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, fmt.Errorf("safetensors: tensor %q: failed to parse metadata: %w", name, err)
		}
		if meta.Dtype != dtypeF32 {
			return nil, fmt.Errorf("safetensors: tensor %q: expected dtype F32, got %s", name, meta.Dtype)
		}

		t := Tensor{Shape: meta.Shape}
		n := t.NumElements()
		start, end := meta.DataOffsets[0], meta.DataOffsets[1]
		if start < 0 || end < start || end > len(body) {
			return nil, fmt.Errorf("safetensors: tensor %q: data range [%d:%d] exceeds body size %d",
				name, start, end, len(body))
		}
		if end-start != n*4 {
			return nil, fmt.Errorf("safetensors: tensor %q: data size %d doesn't match shape %v",
				name, end-start, meta.Shape)
		}

		t.Data = make([]float32, n)
		for i := range t.Data {
			bits := binary.LittleEndian.Uint32(body[start+i*4 : start+i*4+4])
			t.Data[i] = math.Float32frombits(bits)
		}
		tensors[name] = t
	}
	return tensors, nil
}

// WriteFile encodes tensors into a new file at path.
func WriteFile(path string, tensors map[string]Tensor, metadata map[string]string) error {
	var buf bytes.Buffer
	if err := Encode(&buf, tensors, metadata); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("safetensors: %w", err)
	}
	return nil
}

// Encode writes tensors in name order. The header is space-padded to an
// 8-byte boundary.
func Encode(w io.Writer, tensors map[string]Tensor, metadata map[string]string) error {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		if name == metadataKey {
			return fmt.Errorf("safetensors: reserved tensor name %q", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(map[string]any, len(tensors)+1)
	if len(metadata) > 0 {
		header[metadataKey] = metadata
	}
	offset := 0
	for _, name := range names {
		t := tensors[name]
		if t.NumElements() != len(t.Data) {
			return fmt.Errorf("safetensors: tensor %q: shape %v holds %d values, got %d",
				name, t.Shape, t.NumElements(), len(t.Data))
		}
		size := len(t.Data) * 4
		header[name] = tensorInfo{Dtype: dtypeF32, Shape: t.Shape, DataOffsets: [2]int{offset, offset + size}}
		offset += size
	}

	hdr, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("safetensors: failed to encode header: %w", err)
	}
	if pad := len(hdr) % 8; pad != 0 {
		hdr = append(hdr, bytes.Repeat([]byte{' '}, 8-pad)...)
	}

	out := make([]byte, 8, 8+len(hdr)+offset)
	binary.LittleEndian.PutUint64(out, uint64(len(hdr)))
	out = append(out, hdr...)
	for _, name := range names {
		for _, v := range tensors[name].Data {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
		}
	}
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("safetensors: %w", err)
	}
	return nil
}
