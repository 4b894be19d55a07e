package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
corpus:
  path: "/srv/faq/faq_data.xlsx"
embedding:
  provider: openai
  model: text-embedding-3-small
  timeout: 5s
retrieval:
  top_k: 5
  confidence_threshold: 45
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr() != "127.0.0.1:9000" {
		t.Errorf("addr = %s", cfg.Server.Addr())
	}
	if cfg.Corpus.Path != "/srv/faq/faq_data.xlsx" {
		t.Errorf("corpus path = %s", cfg.Corpus.Path)
	}
	if cfg.Embedding.Timeout != 5*time.Second {
		t.Errorf("timeout = %v", cfg.Embedding.Timeout)
	}
	if cfg.Embedding.ModelPath != "" {
		t.Errorf("remote provider should not get a model path, got %s", cfg.Embedding.ModelPath)
	}
	if cfg.Retrieval.TopK != 5 || cfg.Retrieval.ConfidenceThreshold != 45 {
		t.Errorf("retrieval = %+v", cfg.Retrieval)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
corpus:
  path: "./faq_data.csv"
storage:
  index_path: "./data/faq.idx"
  cache_path: "./data/embeddings.db"
`)
	dir := filepath.Dir(path)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "faq_data.csv"); cfg.Corpus.Path != want {
		t.Errorf("corpus path = %s, want %s", cfg.Corpus.Path, want)
	}
	if want := filepath.Join(dir, "data", "faq.idx"); cfg.Storage.IndexPath != want {
		t.Errorf("index path = %s, want %s", cfg.Storage.IndexPath, want)
	}
	if want := filepath.Join(dir, "data", "embeddings.db"); cfg.Storage.CachePath != want {
		t.Errorf("cache path = %s, want %s", cfg.Storage.CachePath, want)
	}
}

func TestLoad_invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"threshold", "retrieval:\n  confidence_threshold: 150\n", "confidence_threshold"},
		{"dsn without driver", "corpus:\n  dsn: \"host=db\"\n", "corpus.driver"},
		{"bad yaml", "server: [", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error")
	}
}

func TestLoad_apiKeyFromEnvironment(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, err := Load(writeConfig(t, "embedding:\n  provider: openai\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Embedding.APIKey != "sk-test" {
		t.Errorf("api key = %q", cfg.Embedding.APIKey)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8000 {
		t.Errorf("server defaults: %+v", cfg.Server)
	}
	if cfg.Corpus.Path != "./faq_data.csv" {
		t.Errorf("corpus path default: %s", cfg.Corpus.Path)
	}
	if cfg.Corpus.QuestionColumn != "question" || cfg.Corpus.AnswerColumn != "answer" {
		t.Errorf("column defaults: %+v", cfg.Corpus)
	}
	if cfg.Retrieval.TopK != 3 || cfg.Retrieval.ConfidenceThreshold != 30 {
		t.Errorf("retrieval defaults: %+v", cfg.Retrieval)
	}
	if cfg.Embedding.Provider != "onnx" || cfg.Embedding.Dimensions != 384 {
		t.Errorf("embedding defaults: %+v", cfg.Embedding)
	}
	if !cfg.Metrics.EnabledOrDefault() || cfg.Metrics.Path != "/metrics" {
		t.Errorf("metrics defaults: %+v", cfg.Metrics)
	}
	if cfg.Cache.TTL != 10*time.Minute {
		t.Errorf("cache ttl default: %v", cfg.Cache.TTL)
	}
	if cfg.Corpus.OrderBy != "" {
		t.Errorf("file corpus should not get order_by, got %q", cfg.Corpus.OrderBy)
	}
}

func TestLoad_defaultStoragePaths(t *testing.T) {
	path := writeConfig(t, "corpus:\n  path: \"./faq_data.csv\"\n")
	dir := filepath.Dir(path)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "data", "embeddings", "faq.idx"); cfg.Storage.IndexPath != want {
		t.Errorf("index path = %q, want %q", cfg.Storage.IndexPath, want)
	}
	if want := filepath.Join(dir, "data", "embeddings", "embeddings.db"); cfg.Storage.CachePath != want {
		t.Errorf("cache path = %q, want %q", cfg.Storage.CachePath, want)
	}
}

func TestApplyDefaults_databaseCorpus(t *testing.T) {
	cfg := &Config{Corpus: CorpusConfig{Driver: "postgres", DSN: "postgres://localhost/faq"}}
	ApplyDefaults(cfg)
	if cfg.Corpus.Path != "" {
		t.Errorf("database corpus should not get a file path, got %s", cfg.Corpus.Path)
	}
	if cfg.Corpus.Table != "faqs" {
		t.Errorf("table default: %s", cfg.Corpus.Table)
	}
	if cfg.Corpus.OrderBy != "id" {
		t.Errorf("postgres order_by default: %q", cfg.Corpus.OrderBy)
	}
	if cfg.Corpus.WatchOrDefault() {
		t.Error("database corpus should not be watched by default")
	}
}

func TestCorpusConfig_WatchOrDefault(t *testing.T) {
	t.Run("file_defaults_true", func(t *testing.T) {
		c := &CorpusConfig{Path: "/tmp/faq.csv"}
		if !c.WatchOrDefault() {
			t.Error("WatchOrDefault() = false, want true")
		}
	})
	t.Run("explicit_false", func(t *testing.T) {
		f := false
		c := &CorpusConfig{Path: "/tmp/faq.csv", Watch: &f}
		if c.WatchOrDefault() {
			t.Error("WatchOrDefault() = true, want false")
		}
	})
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := &Config{
		Server:    ServerConfig{Host: "localhost", Port: 9090},
		Corpus:    CorpusConfig{Path: "/tmp/faq.csv"},
		Embedding: EmbeddingConfig{Provider: "mock", Timeout: 3 * time.Second},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
	if loaded.Embedding.Timeout != 3*time.Second {
		t.Errorf("loaded timeout: got %v", loaded.Embedding.Timeout)
	}
}
