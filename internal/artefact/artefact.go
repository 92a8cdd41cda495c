// Package artefact persists trained models as a directory bundle:
// network weights, the label index, training parameters and the training
// report.
package artefact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/goccy/go-json"

	"github.com/crimson-sun/stacktag/internal/dataset"
	"github.com/crimson-sun/stacktag/internal/engine/classifier"
	"github.com/crimson-sun/stacktag/internal/model"
	"github.com/crimson-sun/stacktag/internal/safetensors"
)

// Files inside a bundle directory.
const (
	ModelFile  = "model.safetensors"
	LabelsFile = "labels_index.json"
	ParamsFile = "params.json"
	OutputFile = "train_output.json"
)

// DirLayout is the time layout of timestamped bundle directory names.
const DirLayout = "2006-01-02-15-04-05"

// ErrNotFound is returned when a directory holds no bundle.
var ErrNotFound = errors.New("artefact: bundle not found")

// Bundle is everything needed to rebuild a trained predictor.
type Bundle struct {
	Network *classifier.Network
	Labels  dataset.LabelIndex
	Params  model.Params
	Output  model.TrainOutput
}

// TimestampedDir returns root/<t formatted with DirLayout>.
func TimestampedDir(root string, t time.Time) string {
	return filepath.Join(root, t.Format(DirLayout))
}

// IsBundle reports whether dir contains a model file.
func IsBundle(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ModelFile))
	return err == nil && !info.IsDir()
}

// ErrExists is returned by Create when the target directory is already present.
var ErrExists = errors.New("artefact: bundle directory already exists")

// Save writes b into dir, creating it if needed. Files are staged in a
// sibling directory and the model file is moved in last, so dir never
// passes IsBundle while partially written.
func Save(dir string, b Bundle) error {
	tmp, err := stage(dir, b)
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("artefact: %w", err)
	}
	if err := os.Remove(filepath.Join(dir, ModelFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("artefact: %w", err)
	}
	for _, name := range []string{LabelsFile, ParamsFile, OutputFile, ModelFile} {
		if err := os.Rename(filepath.Join(tmp, name), filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("artefact: %w", err)
		}
	}
	return nil
}

// Create writes b into a new directory dir and fails with ErrExists if
// anything is already there.
func Create(dir string, b Bundle) error {
	if _, err := os.Lstat(dir); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, dir)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("artefact: %w", err)
	}
	tmp, err := stage(dir, b)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, dir); err != nil {
		os.RemoveAll(tmp)
		if _, statErr := os.Lstat(dir); statErr == nil {
			return fmt.Errorf("%w: %s", ErrExists, dir)
		}
		return fmt.Errorf("artefact: %w", err)
	}
	return nil
}

// stage writes every file of b into a fresh directory next to dir and
// returns its path.
func stage(dir string, b Bundle) (string, error) {
	if b.Network == nil {
		return "", fmt.Errorf("artefact: bundle has no network")
	}
	if b.Network.Classes() != b.Labels.Len() {
		return "", fmt.Errorf("artefact: network has %d outputs but %d labels",
			b.Network.Classes(), b.Labels.Len())
	}
	parent := filepath.Dir(filepath.Clean(dir))
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", fmt.Errorf("artefact: %w", err)
	}
	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(dir)+".tmp-")
	if err != nil {
		return "", fmt.Errorf("artefact: %w", err)
	}
	if err := writeAll(tmp, b); err != nil {
		os.RemoveAll(tmp)
		return "", err
	}
	return tmp, nil
}

func writeAll(dir string, b Bundle) error {
	if err := os.Chmod(dir, 0o755); err != nil {
		return fmt.Errorf("artefact: %w", err)
	}
	for name, v := range map[string]any{
		LabelsFile: b.Labels,
		ParamsFile: b.Params,
		OutputFile: b.Output,
	} {
		if err := writeJSON(filepath.Join(dir, name), v); err != nil {
			return err
		}
	}
	meta := map[string]string{"run_id": b.Output.RunID}
	if err := safetensors.WriteFile(filepath.Join(dir, ModelFile), b.Network.Tensors(), meta); err != nil {
		return fmt.Errorf("artefact: %w", err)
	}
	return nil
}

// Load reads the bundle in dir and checks that its parts agree.
func Load(dir string) (Bundle, error) {
	if !IsBundle(dir) {
		return Bundle{}, fmt.Errorf("%w: %s", ErrNotFound, dir)
	}

	tensors, err := safetensors.ReadFile(filepath.Join(dir, ModelFile))
	if err != nil {
		return Bundle{}, fmt.Errorf("artefact: %w", err)
	}
	net, err := classifier.NetworkFromTensors(tensors)
	if err != nil {
		return Bundle{}, fmt.Errorf("artefact: %w", err)
	}

	var b Bundle
	b.Network = net
	if err := readJSON(filepath.Join(dir, LabelsFile), &b.Labels); err != nil {
		return Bundle{}, err
	}
	if err := readJSON(filepath.Join(dir, ParamsFile), &b.Params); err != nil {
		return Bundle{}, err
	}
	if err := readJSON(filepath.Join(dir, OutputFile), &b.Output); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Bundle{}, err
	}

	if net.Classes() != b.Labels.Len() {
		return Bundle{}, fmt.Errorf("artefact: %s: network has %d outputs but %d labels",
			dir, net.Classes(), b.Labels.Len())
	}
	return b, nil
}

// Latest resolves root to a bundle directory. root itself is returned when
// it is a bundle; otherwise the newest timestamped bundle beneath it.
func Latest(root string) (string, error) {
	if IsBundle(root) {
		return root, nil
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, root)
		}
		return "", fmt.Errorf("artefact: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := time.Parse(DirLayout, e.Name()); err != nil {
			continue
		}
		if IsBundle(filepath.Join(root, e.Name())) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%w: no timestamped bundle under %s", ErrNotFound, root)
	}
	sort.Strings(names)
	return filepath.Join(root, names[len(names)-1]), nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("artefact: encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("artefact: %w", err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("artefact: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("artefact: decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
