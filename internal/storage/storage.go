// Package storage persists raw question embeddings between runs and reports
// disk usage of the engine's on-disk state.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Record is one raw (pre-normalization) embedding of a corpus question.
type Record struct {
	Hash     string
	Position int
	Vector   []float32
}

// EmbeddingStore caches raw embeddings keyed by model and question hash.
type EmbeddingStore interface {
	// Get returns the cached vectors for the hashes that are present.
	Get(ctx context.Context, model string, hashes []string) (map[string][]float32, error)
	Put(ctx context.Context, model string, records []Record) error
	// Retain deletes the model's rows whose hash is not in keep.
	Retain(ctx context.Context, model string, keep []string) (int64, error)
	Count(ctx context.Context, model string) (int64, error)
	Close() error
}

// HashText returns the cache key for a question.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
