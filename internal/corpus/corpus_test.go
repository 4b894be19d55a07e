package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Dunglqd/vexera-ai-system-test/internal/models"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_CSV(t *testing.T) {
	path := writeFile(t, "faq.csv", "\ufeffquestion,answer\n"+
		"How to book a flight?,Visit the app and select a route.\n"+
		"\n"+
		"\"Làm sao để hủy vé, đổi vé?\",\"Vào mục \"\"Vé của tôi\"\".\"\n"+
		"Only a question\n")
	store, err := Load(context.Background(), &CSVSource{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	if store.Len() != 3 {
		t.Fatalf("Len=%d, want 3", store.Len())
	}
	if store.QuestionAt(0) != "How to book a flight?" || store.AnswerAt(0) != "Visit the app and select a route." {
		t.Errorf("entry 0 = %q / %q", store.QuestionAt(0), store.AnswerAt(0))
	}
	if store.QuestionAt(1) != "Làm sao để hủy vé, đổi vé?" {
		t.Errorf("quoted question = %q", store.QuestionAt(1))
	}
	if store.AnswerAt(1) != `Vào mục "Vé của tôi".` {
		t.Errorf("quoted answer = %q", store.AnswerAt(1))
	}
	if store.AnswerAt(2) != "" {
		t.Errorf("ragged row answer = %q", store.AnswerAt(2))
	}
	for i, e := range store.Entries() {
		if e.ID != i {
			t.Errorf("entry %d has id %d", i, e.ID)
		}
	}
	if store.Source() != path {
		t.Errorf("Source=%s", store.Source())
	}
}

func TestLoad_ColumnOrderAndCase(t *testing.T) {
	path := writeFile(t, "faq.csv", "Category, Answer ,QUESTION\nbooking,yes,can I book?\n")
	store, err := Load(context.Background(), &CSVSource{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	if store.QuestionAt(0) != "can I book?" || store.AnswerAt(0) != "yes" {
		t.Errorf("got %q / %q", store.QuestionAt(0), store.AnswerAt(0))
	}
}

func TestLoad_CustomColumns(t *testing.T) {
	path := writeFile(t, "faq.csv", "cau_hoi,tra_loi\nq1,a1\n")
	store, err := Load(context.Background(), &CSVSource{Path: path}, Columns{Question: "cau_hoi", Answer: "tra_loi"})
	if err != nil {
		t.Fatal(err)
	}
	if store.AnswerAt(0) != "a1" {
		t.Errorf("AnswerAt(0)=%q", store.AnswerAt(0))
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  Source
		want error
	}{
		{"missing file", &CSVSource{Path: filepath.Join(t.TempDir(), "absent.csv")}, ErrSourceUnavailable},
		{"no answer column", &CSVSource{Path: writeFile(t, "a.csv", "question,reply\nq,a\n")}, ErrMissingColumns},
		{"empty file", &CSVSource{Path: writeFile(t, "b.csv", "")}, ErrMissingColumns},
		{"source failure", &MemorySource{Err: errors.New("disk on fire")}, ErrSourceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), tt.src)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			var le *LoadError
			if !errors.As(err, &le) {
				t.Fatalf("expected *LoadError, got %T", err)
			}
			if le.Source != tt.src.Name() {
				t.Errorf("LoadError.Source=%q", le.Source)
			}
		})
	}
}

func TestLoad_HeaderOnly(t *testing.T) {
	store, err := Load(context.Background(), &CSVSource{Path: writeFile(t, "h.csv", "question,answer\n")})
	if err != nil {
		t.Fatal(err)
	}
	if store.Len() != 0 || len(store.AllQuestions()) != 0 {
		t.Errorf("expected empty store, Len=%d", store.Len())
	}
}

func TestStore_Lookups(t *testing.T) {
	store := FromEntries("test", []models.CorpusEntry{
		{Question: "How do I CANCEL my ticket?", Answer: "a0"},
		{Question: "What is the refund policy?", Answer: "a1"},
		{Question: "Can I cancel after departure?", Answer: "a2"},
	})

	got := store.FindBySubstring("cancel", true)
	if len(got) != 2 || got[0].ID != 0 || got[1].ID != 2 {
		t.Errorf("case-insensitive match = %+v", got)
	}
	got = store.FindBySubstring("cancel", false)
	if len(got) != 1 || got[0].ID != 2 {
		t.Errorf("case-sensitive match = %+v", got)
	}
	if got := store.FindBySubstring("baggage", true); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil result, got %v", got)
	}
	if got := store.FindBySubstring("", true); len(got) != 3 {
		t.Errorf("empty keyword should match all, got %d", len(got))
	}

	qs := store.AllQuestions()
	if len(qs) != 3 || qs[1] != "What is the refund policy?" {
		t.Errorf("AllQuestions=%v", qs)
	}
	if store.QuestionAt(7) != "" || store.AnswerAt(-1) != "" {
		t.Error("out of range lookups should be empty")
	}
	if _, ok := store.Entry(3); ok {
		t.Error("Entry(3) should not exist")
	}

	entries := store.Entries()
	entries[0].Answer = "mutated"
	if store.AnswerAt(0) != "a0" {
		t.Error("Entries must return a copy")
	}
}

func TestFingerprint(t *testing.T) {
	a := FromEntries("a", []models.CorpusEntry{{Question: "q", Answer: "a"}})
	b := FromEntries("b", []models.CorpusEntry{{Question: "q", Answer: "a"}})
	c := FromEntries("c", []models.CorpusEntry{{Question: "qa", Answer: ""}})
	d := FromEntries("d", nil)
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("same content should share a fingerprint")
	}
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("shifted boundary should change the fingerprint")
	}
	if d.Fingerprint() == "" || d.Fingerprint() == a.Fingerprint() {
		t.Error("empty corpus needs its own fingerprint")
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		cfg  SourceConfig
		want string
	}{
		{SourceConfig{Path: "data/faq.csv"}, "*corpus.CSVSource"},
		{SourceConfig{Path: "data/faq.xlsx"}, "*corpus.XLSXSource"},
		{SourceConfig{Path: "data/faq.db"}, "*corpus.SQLSource"},
		{SourceConfig{Driver: "postgres", DSN: "postgres://localhost/faq"}, "*corpus.SQLSource"},
		{SourceConfig{Path: "faq.data", Format: "CSV"}, "*corpus.CSVSource"},
	}
	for _, tt := range tests {
		src, err := Open(tt.cfg)
		if err != nil {
			t.Fatalf("Open(%+v): %v", tt.cfg, err)
		}
		if got := typeName(src); got != tt.want {
			t.Errorf("Open(%+v) = %s, want %s", tt.cfg, got, tt.want)
		}
	}
	if _, err := Open(SourceConfig{Path: "faq.json"}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func typeName(s Source) string {
	switch s.(type) {
	case *CSVSource:
		return "*corpus.CSVSource"
	case *XLSXSource:
		return "*corpus.XLSXSource"
	case *SQLSource:
		return "*corpus.SQLSource"
	default:
		return "other"
	}
}
