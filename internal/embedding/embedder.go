// Package embedding turns question text into dense vectors. Providers return
// raw vectors; normalization is the vector index's job.
package embedding

import (
	"context"
	"fmt"
	"time"
)

// Embedder produces vector embeddings for text. Implementations must be
// deterministic for a given Model and safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Model() string
	Close() error
}

// EmbeddingError reports a provider failure.
type EmbeddingError struct {
	Model string
	Err   error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding with %s: %v", e.Model, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// Config selects and configures a provider.
type Config struct {
	Provider   string // mock, onnx, openai
	Model      string
	ModelPath  string
	Dimensions int
	MaxTokens  int
	CacheSize  int
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
}

// New builds the configured provider, wrapped in an in-memory LRU when
// CacheSize is positive.
func New(cfg Config) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch cfg.Provider {
	case "mock", "":
		e = NewMockEmbedder(cfg.Dimensions)
	case "onnx":
		e, err = NewONNXEmbedder(cfg.ModelPath, cfg.Model, cfg.Dimensions, cfg.MaxTokens)
	case "openai", "http":
		e, err = NewHTTPEmbedder(HTTPConfig{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			APIKey:     cfg.APIKey,
			Dimensions: cfg.Dimensions,
			Timeout:    cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: mock, onnx, openai)", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if cfg.CacheSize > 0 {
		e = NewCachedEmbedder(e, cfg.CacheSize)
	}
	return e, nil
}
