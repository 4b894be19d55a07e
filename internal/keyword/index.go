// Package keyword provides ranked full-text search over corpus questions and
// answers, with typo tolerance and spelling suggestions.
package keyword

// SearchOptions tunes a keyword search. Nil means defaults.
type SearchOptions struct {
	// QuestionBoost multiplies the score of matches in the question field.
	// Values <= 1 search question and answer as one field.
	QuestionBoost float64
	// Fuzzy enables typo-tolerant term matching.
	Fuzzy bool
	// Fuzziness is the maximum edit distance per term when Fuzzy is set (1 or 2).
	Fuzziness int
}

// Hit is one ranked match; ID is the corpus entry id.
type Hit struct {
	ID    int
	Score float64
}

// TermDictionary exposes indexed terms for spell checking.
type TermDictionary interface {
	GetAllTerms() ([]string, error)
	GetTermFrequency(term string) (int, error)
}
