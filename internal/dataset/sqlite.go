package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	_ "github.com/mattn/go-sqlite3"

	"github.com/crimson-sun/stacktag/internal/model"
)

// DefaultTable is the table SQLiteSource reads when none is given.
const DefaultTable = "posts"

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteSource reads the corpus from a table holding the Columns fields.
// The database is opened read-only.
type SQLiteSource struct {
	Path  string
	Table string
}

// Load selects every row of the table in rowid order.
func (s SQLiteSource) Load(ctx context.Context) ([]model.Record, error) {
	table := s.Table
	if table == "" {
		table = DefaultTable
	}
	if !identifier.MatchString(table) {
		return nil, fmt.Errorf("sqlite source: %w: bad table name %q", ErrSchema, table)
	}

	db, err := sql.Open("sqlite3", "file:"+s.Path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("sqlite source: %w", err)
	}
	defer db.Close()

	query := fmt.Sprintf(
		"SELECT post_id, tag_name, tag_id, tag_position, title FROM %s ORDER BY rowid", table)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlite source %s: %w: %v", s.Path, ErrSchema, err)
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		var r model.Record
		if err := rows.Scan(&r.PostID, &r.TagName, &r.TagID, &r.TagPosition, &r.Title); err != nil {
			return nil, fmt.Errorf("sqlite source %s: %w: %v", s.Path, ErrSchema, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite source %s: %w", s.Path, err)
	}
	return records, nil
}
