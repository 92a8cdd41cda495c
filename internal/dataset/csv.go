package dataset

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/ulikunitz/xz"

	"github.com/crimson-sun/stacktag/internal/model"
)

// Columns lists the header fields every corpus must provide.
var Columns = []string{"post_id", "tag_name", "tag_id", "tag_position", "title"}

// CSVSource reads the corpus from a CSV file with a header row. Files ending
// in ".xz" are decompressed on the fly.
type CSVSource struct {
	Path string
}

// Load reads and parses the whole file.
func (s CSVSource) Load(ctx context.Context) ([]model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("csv source: %w", err)
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	if strings.HasSuffix(s.Path, ".xz") {
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("csv source: xz %s: %w", s.Path, err)
		}
		r = xr
	}
	records, err := ReadCSV(r)
	if err != nil {
		return nil, fmt.Errorf("csv source %s: %w", s.Path, err)
	}
	return records, nil
}

// ReadCSV parses corpus records from r. The header must contain Columns;
// extra columns are ignored.
func ReadCSV(r io.Reader) ([]model.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: missing header row", ErrSchema)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if missing := missingColumns(header); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %v", ErrSchema, missing)
	}

	var records []model.Record
	if err := gocsv.UnmarshalBytes(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return records, nil
}

func missingColumns(header []string) []string {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = true
	}
	var missing []string
	for _, c := range Columns {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	return missing
}
