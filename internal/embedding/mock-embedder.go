package embedding

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
)

// MockEmbedder is a deterministic bag-of-words embedder for tests and
// offline runs. Each distinct lowercased word maps to a fixed pseudo-random
// direction; a text embeds to the sum of its words. Identical texts score 1.0
// against each other, texts with no shared words score near 0.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns the unnormalized sum of the word directions in text.
// Text without words embeds to the zero vector.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, &EmbeddingError{Model: e.Model(), Err: err}
	}
	emb := make([]float32, e.dimensions)
	for _, word := range SplitWords(strings.ToLower(text)) {
		rng := rand.New(rand.NewSource(int64(HashString(word))))
		for i := range emb {
			emb[i] += float32(rng.NormFloat64())
		}
	}
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Model identifies the mock and its dimension, so indexes built with
// different sizes are never mixed.
func (e *MockEmbedder) Model() string {
	return fmt.Sprintf("mock-%d", e.dimensions)
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}
