package corpus

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(sheet, cellRef, &row); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(t.TempDir(), "faq.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_XLSX(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"question", "answer"},
		{"Giờ khởi hành?", "Xem trên vé."},
		{nil, nil},
		{"Hành lý tối đa?", 20},
	})
	store, err := Load(context.Background(), &XLSXSource{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	if store.Len() != 2 {
		t.Fatalf("Len=%d, want 2", store.Len())
	}
	if store.QuestionAt(0) != "Giờ khởi hành?" {
		t.Errorf("QuestionAt(0)=%q", store.QuestionAt(0))
	}
	if store.AnswerAt(1) != "20" {
		t.Errorf("numeric answer = %q", store.AnswerAt(1))
	}
}

func TestLoad_XLSXErrors(t *testing.T) {
	_, err := Load(context.Background(), &XLSXSource{Path: filepath.Join(t.TempDir(), "missing.xlsx")})
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("missing workbook: %v", err)
	}
	path := writeWorkbook(t, [][]interface{}{{"q", "a"}, {"x", "y"}})
	_, err = Load(context.Background(), &XLSXSource{Path: path})
	if !errors.Is(err, ErrMissingColumns) {
		t.Errorf("wrong header: %v", err)
	}
	_, err = Load(context.Background(), &XLSXSource{Path: path, Sheet: "Nope"})
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("unknown sheet: %v", err)
	}
}
