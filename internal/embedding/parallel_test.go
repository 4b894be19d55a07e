package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
)

func TestEmbedParallel_Order(t *testing.T) {
	e := NewMockEmbedder(8)
	texts := make([]string, 101)
	for i := range texts {
		texts[i] = fmt.Sprintf("question number %d", i)
	}
	got, err := EmbedParallel(context.Background(), e, texts, 4, 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(texts) {
		t.Fatalf("got %d vectors", len(got))
	}
	for i, text := range texts {
		want, _ := e.Embed(context.Background(), text)
		for j := range want {
			if got[i][j] != want[j] {
				t.Fatalf("vector %d out of order", i)
			}
		}
	}
}

func TestEmbedParallel_Empty(t *testing.T) {
	got, err := EmbedParallel(context.Background(), NewMockEmbedder(4), nil, 2, 0)
	if err != nil || len(got) != 0 {
		t.Errorf("got %v, %v", got, err)
	}
}

type failingEmbedder struct {
	*MockEmbedder
	calls atomic.Int32
}

func (f *failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.calls.Add(1) == 2 {
		return nil, errors.New("provider unavailable")
	}
	return f.MockEmbedder.EmbedBatch(ctx, texts)
}

func TestEmbedParallel_Error(t *testing.T) {
	e := &failingEmbedder{MockEmbedder: NewMockEmbedder(4)}
	texts := []string{"a", "b", "c", "d", "e", "f"}
	_, err := EmbedParallel(context.Background(), e, texts, 1, 2)
	var ee *EmbeddingError
	if !errors.As(err, &ee) {
		t.Fatalf("expected EmbeddingError, got %v", err)
	}
	if ee.Model != "mock-4" {
		t.Errorf("Model=%s", ee.Model)
	}
}
