package dataset

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/crimson-sun/stacktag/internal/model"
)

// Source produces the raw corpus records.
type Source interface {
	Load(ctx context.Context) ([]model.Record, error)
}

// SourceFunc adapts a plain loader function to Source.
type SourceFunc func(ctx context.Context) ([]model.Record, error)

// Load calls f.
func (f SourceFunc) Load(ctx context.Context) ([]model.Record, error) {
	return f(ctx)
}

// Records returns a Source serving a fixed set of records.
func Records(records []model.Record) Source {
	return SourceFunc(func(context.Context) ([]model.Record, error) {
		return records, nil
	})
}

const sqliteScheme = "sqlite://"

// OpenSource resolves a corpus location. "sqlite://path?table=name" selects
// a SQLite database; anything else is read as a CSV file, xz-compressed when
// it ends in ".xz".
func OpenSource(location string) (Source, error) {
	if location == "" {
		return nil, fmt.Errorf("%w: empty corpus location", ErrPrecondition)
	}
	if rest, ok := strings.CutPrefix(location, sqliteScheme); ok {
		path, query, _ := strings.Cut(rest, "?")
		vals, err := url.ParseQuery(query)
		if err != nil {
			return nil, fmt.Errorf("%w: sqlite location %q: %v", ErrPrecondition, location, err)
		}
		if path == "" {
			return nil, fmt.Errorf("%w: sqlite location %q has no path", ErrPrecondition, location)
		}
		return SQLiteSource{Path: path, Table: vals.Get("table")}, nil
	}
	return CSVSource{Path: location}, nil
}
