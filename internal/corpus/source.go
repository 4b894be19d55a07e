package corpus

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Dunglqd/vexera-ai-system-test/internal/models"
)

// Table is a header row plus data rows as read from a source.
type Table struct {
	Header []string
	Rows   [][]string
}

// Source is a tabular resource holding the corpus.
type Source interface {
	// Name identifies the source in errors and logs.
	Name() string
	Read(ctx context.Context) (*Table, error)
}

// SourceConfig selects and configures a source.
type SourceConfig struct {
	Path    string
	Format  string // csv, xlsx, sql; inferred from Path when empty
	Sheet   string
	Driver  string // sqlite3 or postgres
	DSN     string
	Table   string
	OrderBy string // sql only; see SQLSource.OrderBy
}

// Open returns the source described by cfg.
func Open(cfg SourceConfig) (Source, error) {
	format := strings.ToLower(cfg.Format)
	if format == "" {
		switch strings.ToLower(filepath.Ext(cfg.Path)) {
		case ".csv", ".tsv", ".txt":
			format = "csv"
		case ".xlsx", ".xlsm":
			format = "xlsx"
		case ".db", ".sqlite", ".sqlite3":
			format = "sql"
		default:
			if cfg.DSN != "" {
				format = "sql"
			}
		}
	}
	switch format {
	case "csv":
		return &CSVSource{Path: cfg.Path}, nil
	case "xlsx":
		return &XLSXSource{Path: cfg.Path, Sheet: cfg.Sheet}, nil
	case "sql":
		dsn, driver := cfg.DSN, cfg.Driver
		if dsn == "" {
			dsn = cfg.Path
		}
		if driver == "" {
			driver = "sqlite3"
		}
		return &SQLSource{Driver: driver, DSN: dsn, Table: cfg.Table, OrderBy: cfg.OrderBy}, nil
	default:
		return nil, fmt.Errorf("unknown corpus format %q (supported: csv, xlsx, sql)", cfg.Format)
	}
}

// MemorySource serves fixed entries, used for tests and embedding callers.
type MemorySource struct {
	Label   string
	Entries []models.CorpusEntry
	// Err, when set, is returned by Read.
	Err error
}

// Name returns the label, defaulting to "memory".
func (m *MemorySource) Name() string {
	if m.Label == "" {
		return "memory"
	}
	return m.Label
}

// Read returns the entries as a question/answer table.
func (m *MemorySource) Read(ctx context.Context) (*Table, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	t := &Table{Header: []string{"question", "answer"}, Rows: make([][]string, len(m.Entries))}
	for i, e := range m.Entries {
		t.Rows[i] = []string{e.Question, e.Answer}
	}
	return t, nil
}
