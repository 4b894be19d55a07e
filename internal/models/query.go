package models

import (
	"fmt"
	"strings"
)

// DefaultTopK is the number of neighbours searched when a caller passes k <= 0.
const DefaultTopK = 3

// MaxTopK bounds the neighbours a single request may ask for.
const MaxTopK = 50

// AskRequest is the body of POST /api/faq/ask.
type AskRequest struct {
	Question string `json:"question"`
	UserID   string `json:"user_id,omitempty"`
	TopK     int    `json:"top_k,omitempty"`
}

// Validate trims the question and normalizes TopK.
func (r *AskRequest) Validate() error {
	r.Question = strings.TrimSpace(r.Question)
	if r.Question == "" {
		return fmt.Errorf("question cannot be empty")
	}
	if r.TopK <= 0 {
		r.TopK = DefaultTopK
	}
	if r.TopK > MaxTopK {
		r.TopK = MaxTopK
	}
	return nil
}

// KeywordQuery is a ranked keyword search request.
type KeywordQuery struct {
	Query string `json:"q"`
	Limit int    `json:"limit,omitempty"`
	Fuzzy bool   `json:"fuzzy,omitempty"`
}

// Validate ensures the query is present and sets a default limit.
func (q *KeywordQuery) Validate() error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}
