package embedding

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/sashabaranov/go-openai"
)

// HTTPEmbedder calls an OpenAI-compatible /embeddings endpoint: OpenAI
// itself, Hugging Face TEI, LocalAI or Ollama.
type HTTPEmbedder struct {
	client     *openai.Client
	model      string
	dimensions atomic.Int64
}

// HTTPConfig configures the HTTP embedder.
type HTTPConfig struct {
	BaseURL string
	Model   string
	// APIKey may be empty for local services.
	APIKey string
	// Dimensions is learned from the first response when zero.
	Dimensions int
	Timeout    time.Duration
}

// NewHTTPEmbedder creates an HTTP-backed embedder.
func NewHTTPEmbedder(cfg HTTPConfig) (*HTTPEmbedder, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base_url is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "unused"
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = cfg.BaseURL
	config.HTTPClient = &http.Client{Timeout: timeout}

	h := &HTTPEmbedder{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
	}
	h.dimensions.Store(int64(cfg.Dimensions))
	return h, nil
}

// Embed embeds a single text.
func (h *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := h.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch sends all texts in one request and returns vectors in input order.
func (h *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	resp, err := h.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(h.model),
	})
	if err != nil {
		return nil, &EmbeddingError{Model: h.model, Err: fmt.Errorf("embedding API call failed: %w", err)}
	}
	if len(resp.Data) != len(texts) {
		return nil, &EmbeddingError{Model: h.model, Err: fmt.Errorf("API returned %d embeddings for %d texts", len(resp.Data), len(texts))}
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	out := make([][]float32, len(texts))
	for i, d := range data {
		out[i] = d.Embedding
	}
	if want := h.dimensions.Load(); want == 0 {
		h.dimensions.CompareAndSwap(0, int64(len(out[0])))
	} else {
		for i, v := range out {
			if int64(len(v)) != want {
				return nil, &EmbeddingError{Model: h.model, Err: fmt.Errorf("embedding %d has %d dimensions, expected %d", i, len(v), want)}
			}
		}
	}
	return out, nil
}

// Dimensions returns the configured or observed embedding size.
func (h *HTTPEmbedder) Dimensions() int {
	return int(h.dimensions.Load())
}

// Model returns the model identifier.
func (h *HTTPEmbedder) Model() string {
	return h.model
}

// Close is a no-op; the HTTP client holds no resources.
func (h *HTTPEmbedder) Close() error {
	return nil
}
