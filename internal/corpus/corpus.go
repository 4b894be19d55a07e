// Package corpus loads the question/answer knowledge base from tabular
// sources and serves read-only lookups over it.
package corpus

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/Dunglqd/vexera-ai-system-test/internal/models"
	"github.com/Dunglqd/vexera-ai-system-test/pkg/utils"
)

var (
	// ErrSourceUnavailable means the source could not be opened or read.
	ErrSourceUnavailable = errors.New("corpus source unavailable")
	// ErrMissingColumns means the source has no question or no answer column.
	ErrMissingColumns = errors.New("corpus source missing question/answer columns")
)

// LoadError wraps any failure to load a corpus with the source that caused it.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load corpus from %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Columns names the header cells holding questions and answers. Matching is
// case-insensitive and ignores surrounding whitespace.
type Columns struct {
	Question string
	Answer   string
}

// DefaultColumns are the header names used when none are configured.
var DefaultColumns = Columns{Question: "question", Answer: "answer"}

// Store is an immutable, ordered set of corpus entries. Entry ids are the
// 0-based row positions in the source.
type Store struct {
	source      string
	entries     []models.CorpusEntry
	fingerprint string
}

// Load reads every row of src. A zero Columns value selects DefaultColumns.
func Load(ctx context.Context, src Source, cols ...Columns) (*Store, error) {
	c := DefaultColumns
	if len(cols) > 0 {
		if cols[0].Question != "" {
			c.Question = cols[0].Question
		}
		if cols[0].Answer != "" {
			c.Answer = cols[0].Answer
		}
	}

	table, err := src.Read(ctx)
	if err != nil {
		if errors.Is(err, ErrMissingColumns) || errors.Is(err, ErrSourceUnavailable) {
			return nil, &LoadError{Source: src.Name(), Err: err}
		}
		return nil, &LoadError{Source: src.Name(), Err: fmt.Errorf("%w: %w", ErrSourceUnavailable, err)}
	}

	qi, ai := -1, -1
	for i, h := range table.Header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case strings.ToLower(c.Question):
			if qi < 0 {
				qi = i
			}
		case strings.ToLower(c.Answer):
			if ai < 0 {
				ai = i
			}
		}
	}
	if qi < 0 || ai < 0 {
		return nil, &LoadError{
			Source: src.Name(),
			Err:    fmt.Errorf("%w: want %q and %q, header is %v", ErrMissingColumns, c.Question, c.Answer, table.Header),
		}
	}

	entries := make([]models.CorpusEntry, len(table.Rows))
	for i, row := range table.Rows {
		entries[i] = models.CorpusEntry{
			ID:       i,
			Question: cell(row, qi),
			Answer:   cell(row, ai),
		}
	}
	return newStore(src.Name(), entries), nil
}

// FromEntries builds a store directly, renumbering ids by position.
func FromEntries(name string, entries []models.CorpusEntry) *Store {
	out := make([]models.CorpusEntry, len(entries))
	for i, e := range entries {
		out[i] = models.CorpusEntry{ID: i, Question: e.Question, Answer: e.Answer}
	}
	return newStore(name, out)
}

func newStore(name string, entries []models.CorpusEntry) *Store {
	return &Store{source: name, entries: entries, fingerprint: fingerprint(entries)}
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// fingerprint hashes the ordered entries with length prefixes so that no two
// distinct corpora collide by concatenation.
func fingerprint(entries []models.CorpusEntry) string {
	h := sha256.New()
	var n [8]byte
	write := func(s string) {
		binary.LittleEndian.PutUint64(n[:], uint64(len(s)))
		h.Write(n[:])
		h.Write([]byte(s))
	}
	binary.LittleEndian.PutUint64(n[:], uint64(len(entries)))
	h.Write(n[:])
	for _, e := range entries {
		write(e.Question)
		write(e.Answer)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Source returns the name of the source the store was loaded from.
func (s *Store) Source() string { return s.source }

// Fingerprint identifies the store's content and order.
func (s *Store) Fingerprint() string { return s.fingerprint }

// Len returns the number of entries.
func (s *Store) Len() int { return len(s.entries) }

// Entry returns the entry with the given id.
func (s *Store) Entry(id int) (models.CorpusEntry, bool) {
	if id < 0 || id >= len(s.entries) {
		return models.CorpusEntry{}, false
	}
	return s.entries[id], true
}

// QuestionAt returns the question of entry id, or "" if out of range.
func (s *Store) QuestionAt(id int) string {
	e, _ := s.Entry(id)
	return e.Question
}

// AnswerAt returns the answer of entry id, or "" if out of range.
func (s *Store) AnswerAt(id int) string {
	e, _ := s.Entry(id)
	return e.Answer
}

// AllQuestions returns every question in corpus order.
func (s *Store) AllQuestions() []string {
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Question
	}
	return out
}

// Entries returns a copy of all entries in corpus order.
func (s *Store) Entries() []models.CorpusEntry {
	out := make([]models.CorpusEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// FindBySubstring returns the entries whose question contains keyword, in
// corpus order. An empty keyword matches every entry.
func (s *Store) FindBySubstring(keyword string, caseInsensitive bool) []models.CorpusEntry {
	out := []models.CorpusEntry{}
	for _, e := range s.entries {
		match := strings.Contains(e.Question, keyword)
		if caseInsensitive {
			match = utils.ContainsFold(e.Question, keyword)
		}
		if match {
			out = append(out, e)
		}
	}
	return out
}
