package embedding

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize is the number of texts sent to a provider per call.
const DefaultBatchSize = 32

// EmbedParallel embeds texts in batches of batchSize using up to workers
// concurrent provider calls. The result is in input order. The first failure
// cancels outstanding batches.
func EmbedParallel(ctx context.Context, e Embedder, texts []string, workers, batchSize int) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if workers <= 0 {
		workers = 1
	}
	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < len(texts); lo += batchSize {
		lo, hi := lo, min(lo+batchSize, len(texts))
		g.Go(func() error {
			vecs, err := e.EmbedBatch(gctx, texts[lo:hi])
			if err != nil {
				return asEmbeddingError(e, err)
			}
			if len(vecs) != hi-lo {
				return &EmbeddingError{Model: e.Model(), Err: fmt.Errorf("provider returned %d vectors for %d texts", len(vecs), hi-lo)}
			}
			copy(out[lo:hi], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func asEmbeddingError(e Embedder, err error) error {
	if _, ok := err.(*EmbeddingError); ok {
		return err
	}
	return &EmbeddingError{Model: e.Model(), Err: err}
}
