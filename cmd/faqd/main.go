// Package main is the faqd CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Dunglqd/vexera-ai-system-test/internal/analytics"
	"github.com/Dunglqd/vexera-ai-system-test/internal/cache"
	"github.com/Dunglqd/vexera-ai-system-test/internal/cli"
	"github.com/Dunglqd/vexera-ai-system-test/internal/config"
	"github.com/Dunglqd/vexera-ai-system-test/internal/corpus"
	"github.com/Dunglqd/vexera-ai-system-test/internal/embedding"
	"github.com/Dunglqd/vexera-ai-system-test/internal/metrics"
	"github.com/Dunglqd/vexera-ai-system-test/internal/models"
	"github.com/Dunglqd/vexera-ai-system-test/internal/retrieval"
	"github.com/Dunglqd/vexera-ai-system-test/internal/server"
	"github.com/Dunglqd/vexera-ai-system-test/internal/storage"
	"github.com/Dunglqd/vexera-ai-system-test/internal/watcher"
	"github.com/Dunglqd/vexera-ai-system-test/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/faqd/config.yaml"
	defaultServerURL  = "http://localhost:8000"
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ask":
		runAsk()
	case "list":
		runList()
	case "search":
		runSearch()
	case "rebuild":
		runRebuild()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("faqd version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := initializeComponents(ctx, cfg, logger, true)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	// The API answers with the not-ready reply until the first build lands.
	go func() {
		if err := components.Engine.Initialize(ctx); err != nil {
			logger.Error("initial index build failed; POST /api/faq/rebuild to retry", zap.Error(err))
		}
	}()

	if cfg.Corpus.WatchOrDefault() && cfg.Corpus.Path != "" {
		w, err := watcher.NewWatcher(
			[]string{cfg.Corpus.Path},
			func(ctx context.Context, path string) {
				if err := components.Engine.Rebuild(ctx, false); err != nil {
					logger.Warn("rebuild after corpus change failed", zap.String("path", path), zap.Error(err))
				}
			},
			watcher.WithLogger(logger),
		)
		if err != nil {
			logger.Fatal("Failed to create watcher", zap.Error(err))
		}
		if err := w.Start(ctx); err != nil {
			logger.Warn("corpus watch disabled", zap.Error(err))
		} else {
			defer w.Stop()
		}
	}

	opts := []server.Option{server.WithDiskPaths(cfg.Storage.IndexPath, cfg.Storage.CachePath)}
	if components.Metrics != nil {
		opts = append(opts, server.WithMetrics(components.Metrics, cfg.Metrics.Path))
	}
	srv := server.NewServer(components.Engine, &cfg.Server, logger, opts...)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// argsReorder moves any flags (and their values) that appear after the
// positional arguments to the front so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument, so `faqd ask "question" -top-k 5`
// would otherwise leave -top-k unparsed.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// buildQuery joins all positional args with spaces so multi-word questions
// work the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// configPathFromArgs returns the value of -config/--config from args if present, else defaultPath.
func configPathFromArgs(args []string, defaultPath string) string {
	for i, a := range args {
		if (a == "-config" || a == "--config") && i+1 < len(args) {
			return args[i+1]
		}
	}
	return defaultPath
}

// topKDefaultFromConfig loads config at path and returns retrieval.top_k,
// or models.DefaultTopK when the config cannot be loaded.
func topKDefaultFromConfig(path string) int {
	cfg, _, err := loadConfig(path)
	if err != nil || cfg == nil {
		return models.DefaultTopK
	}
	return cfg.Retrieval.TopK
}

// clientFlags are shared by the commands that talk to a running server or
// fall back to a local engine.
type clientFlags struct {
	configPath *string
	serverURL  *string
	output     *string
}

func addClientFlags(fs *flag.FlagSet) clientFlags {
	return clientFlags{
		configPath: fs.String("config", defaultConfigPath, "config file path (for local mode)"),
		serverURL:  fs.String("server", defaultServerURL, `server URL (use --server "" to load the corpus locally)`),
		output:     fs.String("output", "text", "output format: text or json"),
	}
}

func (f clientFlags) format() cli.OutputFormat {
	format, err := cli.ParseOutputFormat(*f.output)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return format
}

// localEngine loads config and builds a ready engine for local mode.
func localEngine(f clientFlags) (*Components, func()) {
	cfg, _, err := loadConfig(*f.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	if err := components.Engine.Initialize(ctx); err != nil {
		components.Close()
		fmt.Fprintf(os.Stderr, "Failed to load FAQ index: %v\n", err)
		os.Exit(1)
	}
	return components, func() {
		components.Close()
		_ = logger.Sync()
	}
}

func exitOnOutputErr(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runAsk() {
	args := argsReorder(os.Args[2:])
	defaultTopK := topKDefaultFromConfig(configPathFromArgs(args, defaultConfigPath))

	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	f := addClientFlags(fs)
	topK := fs.Int("top-k", defaultTopK, "neighbours to search")
	userID := fs.String("user", "", "user id recorded with the question")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: faqd ask [flags] <question>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	question := buildQuery(fs.Args())
	if question == "" {
		fs.Usage()
		os.Exit(1)
	}
	format := f.format()
	req := models.AskRequest{Question: question, UserID: *userID, TopK: *topK}

	if *f.serverURL != "" {
		var resp models.AskResponse
		if err := doJSON(http.MethodPost, *f.serverURL+"/api/faq/ask", req, &resp); err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		exitOnOutputErr(cli.WriteAnswer(os.Stdout, question, resp.Outcome(), format))
		return
	}

	components, done := localEngine(f)
	defer done()
	out := components.Engine.Ask(context.Background(), req)
	exitOnOutputErr(cli.WriteAnswer(os.Stdout, question, out, format))
}

func runList() {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	f := addClientFlags(fs)
	_ = fs.Parse(os.Args[2:])
	format := f.format()

	if *f.serverURL != "" {
		var resp struct {
			FAQs []string `json:"faqs"`
		}
		if err := doJSON(http.MethodGet, *f.serverURL+"/api/faq/list", nil, &resp); err != nil {
			fmt.Fprintf(os.Stderr, "List failed: %v\n", err)
			os.Exit(1)
		}
		exitOnOutputErr(cli.WriteQuestions(os.Stdout, resp.FAQs, format))
		return
	}

	components, done := localEngine(f)
	defer done()
	exitOnOutputErr(cli.WriteQuestions(os.Stdout, components.Engine.ListQuestions(), format))
}

func runSearch() {
	args := argsReorder(os.Args[2:])
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	f := addClientFlags(fs)
	ranked := fs.Bool("ranked", false, "ranked full-text search instead of substring match")
	fuzzy := fs.Bool("fuzzy", false, "typo-tolerant ranked search (implies --ranked)")
	limit := fs.Int("limit", 10, "number of ranked results")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: faqd search [flags] <keyword>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	keyword := buildQuery(fs.Args())
	if keyword == "" {
		fs.Usage()
		os.Exit(1)
	}
	format := f.format()
	useRanked := *ranked || *fuzzy

	if *f.serverURL != "" {
		if useRanked {
			q := url.Values{"q": {keyword}, "limit": {fmt.Sprint(*limit)}, "fuzzy": {fmt.Sprint(*fuzzy)}}
			var resp struct {
				Results    []models.KeywordHit `json:"results"`
				Suggestion string              `json:"suggestion"`
			}
			if err := doJSON(http.MethodGet, *f.serverURL+"/api/faq/keyword?"+q.Encode(), nil, &resp); err != nil {
				fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
				os.Exit(1)
			}
			exitOnOutputErr(cli.WriteKeywordResult(os.Stdout, retrieval.KeywordResult{Hits: resp.Results, Suggestion: resp.Suggestion}, format))
			return
		}
		var resp struct {
			Results []models.CorpusEntry `json:"results"`
		}
		if err := doJSON(http.MethodGet, *f.serverURL+"/api/faq/search?keyword="+url.QueryEscape(keyword), nil, &resp); err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		exitOnOutputErr(cli.WriteEntries(os.Stdout, resp.Results, format))
		return
	}

	components, done := localEngine(f)
	defer done()
	if !useRanked {
		exitOnOutputErr(cli.WriteEntries(os.Stdout, components.Engine.FindBySubstring(keyword), format))
		return
	}
	q := models.KeywordQuery{Query: keyword, Limit: *limit, Fuzzy: *fuzzy}
	if err := q.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	res, err := components.Engine.KeywordSearch(context.Background(), q)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	exitOnOutputErr(cli.WriteKeywordResult(os.Stdout, res, format))
}

func runRebuild() {
	fs := flag.NewFlagSet("rebuild", flag.ExitOnError)
	f := addClientFlags(fs)
	force := fs.Bool("force", false, "ignore the persisted index and re-embed the corpus")
	_ = fs.Parse(os.Args[2:])
	format := f.format()

	if *f.serverURL != "" {
		var st retrieval.Status
		target := fmt.Sprintf("%s/api/faq/rebuild?force=%t", *f.serverURL, *force)
		if err := doJSON(http.MethodPost, target, nil, &st); err != nil {
			fmt.Fprintf(os.Stderr, "Rebuild failed: %v\n", err)
			os.Exit(1)
		}
		exitOnOutputErr(cli.WriteStatus(os.Stdout, st, format))
		return
	}

	// Local mode writes the persisted index so the next server start loads it.
	components, done := localEngine(f)
	defer done()
	if *force {
		if err := components.Engine.Rebuild(context.Background(), true); err != nil {
			fmt.Fprintf(os.Stderr, "Rebuild failed: %v\n", err)
			os.Exit(1)
		}
	}
	exitOnOutputErr(cli.WriteStatus(os.Stdout, components.Engine.Status(), format))
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	f := addClientFlags(fs)
	_ = fs.Parse(os.Args[2:])
	format := f.format()

	if *f.serverURL != "" {
		var resp struct {
			Engine retrieval.Status `json:"engine"`
		}
		if err := doJSON(http.MethodGet, *f.serverURL+"/api/v1/status", nil, &resp); err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		exitOnOutputErr(cli.WriteStatus(os.Stdout, resp.Engine, format))
		return
	}

	components, done := localEngine(f)
	defer done()
	exitOnOutputErr(cli.WriteStatus(os.Stdout, components.Engine.Status(), format))
}

// doJSON sends body (when non-nil) as JSON and decodes a 200 response into out.
func doJSON(method, target string, body, out interface{}) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, target, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Components holds initialized services.
type Components struct {
	Embedder   embedding.Embedder
	Embeddings *storage.SQLiteCache
	Engine     *retrieval.Engine
	Metrics    *metrics.Metrics
	Analytics  *analytics.Collector
	Cache      *cache.RedisCache
}

func (c *Components) Close() {
	if c.Engine != nil {
		_ = c.Engine.Close()
	}
	if c.Analytics != nil {
		_ = c.Analytics.Close()
	}
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
	if c.Embeddings != nil {
		_ = c.Embeddings.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func embeddingConfig(cfg *config.Config) embedding.Config {
	return embedding.Config{
		Provider:   cfg.Embedding.Provider,
		Model:      cfg.Embedding.Model,
		ModelPath:  cfg.Embedding.ModelPath,
		Dimensions: cfg.Embedding.Dimensions,
		MaxTokens:  cfg.Embedding.MaxTokens,
		CacheSize:  cfg.Embedding.CacheSize,
		BaseURL:    cfg.Embedding.BaseURL,
		APIKey:     cfg.Embedding.APIKey,
		Timeout:    cfg.Embedding.Timeout,
	}
}

func sourceConfig(cfg *config.Config) corpus.SourceConfig {
	return corpus.SourceConfig{
		Path:    cfg.Corpus.Path,
		Format:  cfg.Corpus.Format,
		Sheet:   cfg.Corpus.Sheet,
		Driver:  cfg.Corpus.Driver,
		DSN:     cfg.Corpus.DSN,
		Table:   cfg.Corpus.Table,
		OrderBy: cfg.Corpus.OrderBy,
	}
}

// initializeComponents wires the engine. With services set it also attaches
// metrics, analytics and the outcome cache; those are optional and a failure
// to reach Kafka or Redis only disables them.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, services bool) (*Components, error) {
	c := &Components{}

	src, err := corpus.Open(sourceConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}

	embedder, err := embedding.New(embeddingConfig(cfg))
	if err != nil {
		if cfg.Embedding.Provider != "onnx" {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		logger.Warn("onnx embedder unavailable, falling back to mock embeddings", zap.Error(err))
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	}
	c.Embedder = embedder

	opts := []retrieval.EngineOption{
		retrieval.WithLogger(logger),
		retrieval.WithIndexPath(cfg.Storage.IndexPath),
		retrieval.WithColumns(corpus.Columns{Question: cfg.Corpus.QuestionColumn, Answer: cfg.Corpus.AnswerColumn}),
		retrieval.WithWorkers(cfg.Embedding.Workers),
		retrieval.WithBatchSize(cfg.Embedding.BatchSize),
		retrieval.WithConfidenceThreshold(cfg.Retrieval.ConfidenceThreshold),
		retrieval.WithDefaultTopK(cfg.Retrieval.TopK),
	}
	if cfg.Storage.CachePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.CachePath), 0755); err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		store, err := storage.NewSQLiteCache(cfg.Storage.CachePath)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to open embedding cache: %w", err)
		}
		c.Embeddings = store
		opts = append(opts, retrieval.WithEmbeddingStore(store))
	}

	if services {
		if cfg.Metrics.EnabledOrDefault() {
			c.Metrics = metrics.New()
			opts = append(opts, retrieval.WithRecorder(c.Metrics))
		}
		if len(cfg.Analytics.Brokers) > 0 {
			producer := analytics.NewKafkaProducer(cfg.Analytics.Brokers, cfg.Analytics.Topic, logger)
			c.Analytics = analytics.NewCollector(producer, cfg.Analytics.BufferSize, logger)
			c.Analytics.Start()
			opts = append(opts, retrieval.WithEvents(c.Analytics))
		}
		if cfg.Cache.RedisAddr != "" {
			rc, err := cache.NewRedisCache(ctx, cache.Options{
				Addr:     cfg.Cache.RedisAddr,
				Password: cfg.Cache.RedisPassword,
				DB:       cfg.Cache.RedisDB,
				TTL:      cfg.Cache.TTL,
			}, logger)
			if err != nil {
				logger.Warn("outcome cache disabled", zap.Error(err))
			} else {
				c.Cache = rc
				opts = append(opts, retrieval.WithCache(rc))
			}
		}
	}

	c.Engine = retrieval.NewEngine(src, embedder, opts...)
	return c, nil
}

func printUsage() {
	fmt.Println(`faqd - FAQ answering service

Usage:
  faqd server [flags]              Start the HTTP server
  faqd ask [flags] <question>      Answer a question
  faqd list [flags]                List all FAQ questions
  faqd search [flags] <keyword>    Find FAQ entries by keyword
  faqd rebuild [flags]             Reload the corpus and rebuild the index
  faqd status [flags]              Show engine and index status
  faqd version                     Show version
  faqd help                        Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/faqd/config.yaml)
  --debug            Enable debug logging

Client Flags (ask, list, search, rebuild, status):
  --config string    Config file path (for local mode)
  --server string    Server URL (default: http://localhost:8000). Use --server "" to load the corpus locally.
  --output string    Output format: text or json (default: text)

Ask Flags:
  --top-k int        Neighbours to search (default from config, or 3)
  --user string      User id recorded with the question

Search Flags:
  --ranked           Ranked full-text search instead of substring match
  --fuzzy            Typo-tolerant ranked search
  --limit int        Number of ranked results (default: 10)

Rebuild Flags:
  --force            Ignore the persisted index and re-embed the corpus

Examples:
  faqd server
  faqd ask "Làm sao để hủy vé?"
  faqd ask --output json hủy vé
  faqd search hoàn tiền
  faqd search --fuzzy refnd
  faqd rebuild --force
  faqd status --server ""`)
}
