// Package testdata embeds a small question-title corpus shared by tests.
package testdata

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

//go:embed posts.csv
var postsCSV []byte

// PostsLabels lists the primary tags that survive a minimum of two samples
// per label, in first-occurrence order.
var PostsLabels = []string{"php", "ruby-on-rails", "python", "javascript"}

// PostsSamples is the number of primary-tag rows kept at a minimum of two
// samples per label.
const PostsSamples = 48

// Posts returns a reader over the embedded corpus.
func Posts() io.Reader {
	return bytes.NewReader(postsCSV)
}

// WritePosts copies the corpus to dir/posts.csv and returns its path.
func WritePosts(dir string) (string, error) {
	path := filepath.Join(dir, "posts.csv")
	if err := os.WriteFile(path, postsCSV, 0o644); err != nil {
		return "", fmt.Errorf("write posts.csv: %w", err)
	}
	return path, nil
}
