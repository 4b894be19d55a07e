// Package models defines core data structures for corpus entries, requests,
// and retrieval outcomes.
package models

// CorpusEntry is one question/answer pair. ID is the 0-based row position in
// the source and doubles as the vector index id.
type CorpusEntry struct {
	ID       int    `json:"id" db:"id"`
	Question string `json:"question" db:"question"`
	Answer   string `json:"answer" db:"answer"`
}

// KeywordHit is a ranked full-text match over the corpus.
type KeywordHit struct {
	Entry CorpusEntry `json:"entry"`
	Score float64     `json:"score"`
}
