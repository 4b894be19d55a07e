package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Corpus.Path == "" && cfg.Corpus.DSN == "" {
		cfg.Corpus.Path = "./faq_data.csv"
	}
	if cfg.Corpus.DSN != "" && cfg.Corpus.Table == "" {
		cfg.Corpus.Table = "faqs"
	}
	if cfg.Corpus.Driver == "postgres" && cfg.Corpus.OrderBy == "" {
		cfg.Corpus.OrderBy = "id"
	}
	if cfg.Corpus.QuestionColumn == "" {
		cfg.Corpus.QuestionColumn = "question"
	}
	if cfg.Corpus.AnswerColumn == "" {
		cfg.Corpus.AnswerColumn = "answer"
	}
	if cfg.Storage.IndexPath == "" {
		cfg.Storage.IndexPath = "./data/embeddings/faq.idx"
	}
	if cfg.Storage.CachePath == "" {
		cfg.Storage.CachePath = "./data/embeddings/embeddings.db"
	}
	// The onnx provider tokenizes with SimpleTokenizer, which hashes words
	// instead of using the model vocabulary. Its vectors only support exact
	// and near-exact matches; use openai for paraphrase matching.
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "sentence-transformers/all-MiniLM-L6-v2"
	}
	if cfg.Embedding.ModelPath == "" && cfg.Embedding.Provider == "onnx" {
		cfg.Embedding.ModelPath = "/usr/local/var/faqd/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}
	if cfg.Embedding.Workers == 0 {
		cfg.Embedding.Workers = 4
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 32
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Retrieval.ConfidenceThreshold == 0 {
		cfg.Retrieval.ConfidenceThreshold = 30
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Analytics.Topic == "" {
		cfg.Analytics.Topic = "faq-answers"
	}
	if cfg.Analytics.BufferSize == 0 {
		cfg.Analytics.BufferSize = 10000
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 10 * time.Minute
	}
}
