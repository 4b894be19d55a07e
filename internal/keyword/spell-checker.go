package keyword

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Suggestion is a dictionary term close to a misspelled query term.
type Suggestion struct {
	Term      string
	Distance  int
	Frequency int
	Score     float64
}

// SpellChecker suggests indexed terms for query terms missing from the index.
// The dictionary is read once; build a new checker for a new index.
type SpellChecker struct {
	dictionary     TermDictionary
	maxDistance    int
	minFreq        int
	maxSuggestions int

	terms   []string
	termSet map[string]struct{}
}

// SpellCheckerOption is a functional option for configuring SpellChecker.
type SpellCheckerOption func(*SpellChecker)

// WithMaxDistance sets the maximum edit distance for suggestions.
func WithMaxDistance(d int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if d > 0 {
			s.maxDistance = d
		}
	}
}

// WithMaxSuggestions sets the maximum number of suggestions per term.
func WithMaxSuggestions(n int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if n > 0 {
			s.maxSuggestions = n
		}
	}
}

// NewSpellChecker loads the dictionary's terms.
func NewSpellChecker(dict TermDictionary, opts ...SpellCheckerOption) (*SpellChecker, error) {
	s := &SpellChecker{
		dictionary:     dict,
		maxDistance:    2,
		minFreq:        1,
		maxSuggestions: 5,
	}
	for _, opt := range opts {
		opt(s)
	}
	terms, err := dict.GetAllTerms()
	if err != nil {
		return nil, err
	}
	s.terms = terms
	s.termSet = make(map[string]struct{}, len(terms))
	for _, t := range terms {
		s.termSet[strings.ToLower(t)] = struct{}{}
	}
	return s, nil
}

// IsMisspelled reports whether term is absent from the dictionary.
func (s *SpellChecker) IsMisspelled(term string) bool {
	_, ok := s.termSet[strings.ToLower(term)]
	return !ok
}

// Suggest returns dictionary terms within the maximum edit distance of term,
// best first: closer terms win, then more frequent ones.
func (s *SpellChecker) Suggest(term string) []Suggestion {
	term = strings.ToLower(term)
	termLen := utf8.RuneCountInString(term)
	suggestions := make([]Suggestion, 0)
	for _, dictTerm := range s.terms {
		if dictTerm == term {
			continue
		}
		lenDiff := utf8.RuneCountInString(dictTerm) - termLen
		if lenDiff > s.maxDistance || -lenDiff > s.maxDistance {
			continue
		}
		distance := LevenshteinDistance(term, dictTerm)
		if distance > s.maxDistance {
			continue
		}
		freq, err := s.dictionary.GetTermFrequency(dictTerm)
		if err != nil || freq < s.minFreq {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Term:      dictTerm,
			Distance:  distance,
			Frequency: freq,
			Score:     float64(freq) / float64(distance+1),
		})
	}
	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Distance != suggestions[j].Distance {
			return suggestions[i].Distance < suggestions[j].Distance
		}
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].Term < suggestions[j].Term
	})
	if len(suggestions) > s.maxSuggestions {
		suggestions = suggestions[:s.maxSuggestions]
	}
	return suggestions
}

// Correct replaces each misspelled term of query with its best suggestion.
// The bool reports whether anything changed.
func (s *SpellChecker) Correct(query string) (string, bool) {
	terms := tokenizeQuery(query)
	changed := false
	for i, term := range terms {
		if !s.IsMisspelled(term) {
			continue
		}
		if sug := s.Suggest(term); len(sug) > 0 {
			terms[i] = sug[0].Term
			changed = true
		}
	}
	return strings.Join(terms, " "), changed
}

// tokenizeQuery splits query into lowercase terms of letters and digits.
func tokenizeQuery(query string) []string {
	return strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsMark(r)
	})
}
