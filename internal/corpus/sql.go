package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// SQLSource reads a table from SQLite (driver "sqlite3") or PostgreSQL
// (driver "postgres"). The table's column names form the header.
type SQLSource struct {
	Driver string
	DSN    string
	// Table defaults to "faqs".
	Table string
	// OrderBy fixes row order. SQLite falls back to rowid and PostgreSQL
	// to "id", since an unordered scan would renumber entries.
	OrderBy string
}

// Name returns driver and table.
func (s *SQLSource) Name() string {
	return fmt.Sprintf("%s:%s", s.Driver, s.table())
}

func (s *SQLSource) table() string {
	if s.Table == "" {
		return "faqs"
	}
	return s.Table
}

func (s *SQLSource) query() (string, error) {
	table := s.table()
	if !identifier.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	q := "SELECT * FROM " + table
	switch {
	case s.OrderBy != "":
		if !identifier.MatchString(s.OrderBy) {
			return "", fmt.Errorf("invalid order column %q", s.OrderBy)
		}
		q += " ORDER BY " + s.OrderBy
	case s.Driver == "sqlite3":
		q += " ORDER BY rowid"
	case s.Driver == "postgres":
		q += " ORDER BY id"
	}
	return q, nil
}

// Read runs one SELECT over the table. NULL cells read as "".
func (s *SQLSource) Read(ctx context.Context) (*Table, error) {
	q, err := s.query()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	db, err := sql.Open(s.Driver, s.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %w", ErrSourceUnavailable, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", ErrSourceUnavailable, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: columns: %w", ErrSourceUnavailable, err)
	}
	t := &Table{Header: cols}
	cells := make([]sql.NullString, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range cells {
		ptrs[i] = &cells[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", ErrSourceUnavailable, err)
		}
		row := make([]string, len(cols))
		for i, c := range cells {
			row[i] = c.String
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	return t, nil
}
