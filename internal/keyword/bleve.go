package keyword

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/Dunglqd/vexera-ai-system-test/internal/models"
)

const (
	fieldQuestion = "question"
	fieldAnswer   = "answer"
)

// BleveIndex is an in-memory Bleve index over one corpus snapshot.
type BleveIndex struct {
	index bleve.Index
}

type faqDoc struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// NewBleveIndex indexes entries into a memory-only Bleve index. The standard
// analyzer lowercases and tokenizes without stemming, which keeps Vietnamese
// syllables intact.
func NewBleveIndex(ctx context.Context, entries []models.CorpusEntry) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(fieldQuestion, textFieldMapping)
	docMapping.AddFieldMappingsAt(fieldAnswer, textFieldMapping)
	im.DefaultMapping = docMapping

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}

	batch := index.NewBatch()
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			_ = index.Close()
			return nil, err
		}
		if err := batch.Index(strconv.Itoa(e.ID), faqDoc{Question: e.Question, Answer: e.Answer}); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("index entry %d: %w", e.ID, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("failed to index corpus: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Search returns up to limit hits by descending score, ties by ascending id.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	questionBoost := 1.0
	fuzzy := false
	fuzziness := 2
	if opts != nil {
		if opts.QuestionBoost > 0 {
			questionBoost = opts.QuestionBoost
		}
		fuzzy = opts.Fuzzy
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
	}

	scores := make(map[string]float64)
	if questionBoost <= 1.0 {
		if err := b.collect(ctx, b.buildQuery(query, fuzzy, fuzziness, ""), limit, 1, scores); err != nil {
			return nil, err
		}
	} else {
		// Over-fetch per field so the merged top limit is correct.
		reqSize := max(limit*2, 50)
		if err := b.collect(ctx, b.buildQuery(query, fuzzy, fuzziness, fieldQuestion), reqSize, questionBoost, scores); err != nil {
			return nil, err
		}
		if err := b.collect(ctx, b.buildQuery(query, fuzzy, fuzziness, fieldAnswer), reqSize, 1, scores); err != nil {
			return nil, err
		}
	}

	hits := make([]Hit, 0, len(scores))
	for id, score := range scores {
		n, err := strconv.Atoi(id)
		if err != nil {
			continue
		}
		hits = append(hits, Hit{ID: n, Score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (b *BleveIndex) collect(ctx context.Context, q blevequery.Query, size int, weight float64, into map[string]float64) error {
	req := bleve.NewSearchRequest(q)
	req.Size = size
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return fmt.Errorf("Bleve search failed: %w", err)
	}
	for _, hit := range results.Hits {
		into[hit.ID] += hit.Score * weight
	}
	return nil
}

// buildQuery returns a match query, or a disjunction of per-term fuzzy
// queries when fuzzy is set. An empty field searches all fields.
func (b *BleveIndex) buildQuery(queryStr string, fuzzy bool, fuzziness int, field string) blevequery.Query {
	terms := tokenizeQuery(queryStr)
	if !fuzzy || len(terms) == 0 {
		mq := bleve.NewMatchQuery(queryStr)
		if field != "" {
			mq.SetField(field)
		}
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		if field != "" {
			fq.SetField(field)
		}
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// DocCount returns the number of indexed entries.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// GetAllTerms returns the unique terms of the question and answer fields.
func (b *BleveIndex) GetAllTerms() ([]string, error) {
	terms := make([]string, 0)
	seen := make(map[string]struct{})
	for _, field := range []string{fieldQuestion, fieldAnswer} {
		dict, err := b.index.FieldDict(field)
		if err != nil {
			return nil, fmt.Errorf("read %s terms: %w", field, err)
		}
		for {
			entry, err := dict.Next()
			if err != nil || entry == nil {
				break
			}
			if _, ok := seen[entry.Term]; !ok {
				terms = append(terms, entry.Term)
				seen[entry.Term] = struct{}{}
			}
		}
		_ = dict.Close()
	}
	return terms, nil
}

// GetTermFrequency returns the number of entries containing term.
func (b *BleveIndex) GetTermFrequency(term string) (int, error) {
	req := bleve.NewSearchRequest(bleve.NewMatchQuery(term))
	req.Size = 0
	results, err := b.index.Search(req)
	if err != nil {
		return 0, fmt.Errorf("failed to search for term frequency: %w", err)
	}
	return int(results.Total), nil
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
