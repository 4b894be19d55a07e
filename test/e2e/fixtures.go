// Package e2e provides end-to-end tests; this file writes the corpus in every supported source format.
package e2e

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/xuri/excelize/v2"

	"github.com/Dunglqd/vexera-ai-system-test/internal/models"
)

// SupportedExtensions is the list of corpus file extensions covered by the E2E tests.
var SupportedExtensions = []string{".csv", ".tsv", ".xlsx", ".db"}

// WriteCorpusFile writes entries to dir/faq<ext> with question/answer headers
// and returns the path.
func WriteCorpusFile(dir, ext string, entries []models.CorpusEntry) (string, error) {
	path := filepath.Join(dir, "faq"+ext)
	switch ext {
	case ".csv", ".tsv":
		return path, writeDelimited(path, ext == ".tsv", entries)
	case ".xlsx":
		return path, writeXlsx(path, entries)
	case ".db":
		return path, writeSQLite(path, entries)
	default:
		return "", fmt.Errorf("unsupported corpus extension %q", ext)
	}
}

func writeDelimited(path string, tabs bool, entries []models.CorpusEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if tabs {
		w.Comma = '\t'
	}
	if err := w.Write([]string{"question", "answer"}); err != nil {
		return err
	}
	for _, e := range entries {
		if err := w.Write([]string{e.Question, e.Answer}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeXlsx(path string, entries []models.CorpusEntry) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &[]string{"Question", "Answer"}); err != nil {
		return err
	}
	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &[]string{e.Question, e.Answer}); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

func writeSQLite(path string, entries []models.CorpusEntry) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer db.Close()
	if _, err := db.Exec(`CREATE TABLE faqs (question TEXT NOT NULL, answer TEXT NOT NULL)`); err != nil {
		return err
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO faqs (question, answer) VALUES (?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, e := range entries {
		if _, err := stmt.Exec(e.Question, e.Answer); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
