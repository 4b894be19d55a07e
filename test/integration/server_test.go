// Package integration provides end-to-end tests (real corpus files, index persistence and HTTP).
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Dunglqd/vexera-ai-system-test/internal/config"
	"github.com/Dunglqd/vexera-ai-system-test/internal/corpus"
	"github.com/Dunglqd/vexera-ai-system-test/internal/embedding"
	"github.com/Dunglqd/vexera-ai-system-test/internal/metrics"
	"github.com/Dunglqd/vexera-ai-system-test/internal/models"
	"github.com/Dunglqd/vexera-ai-system-test/internal/retrieval"
	"github.com/Dunglqd/vexera-ai-system-test/internal/server"
	"github.com/Dunglqd/vexera-ai-system-test/internal/storage"
	"github.com/Dunglqd/vexera-ai-system-test/internal/watcher"
)

const faqCSV = `question,answer
Làm sao để hủy vé?,Vào mục Vé của tôi và chọn Hủy vé.
Khi nào tôi được hoàn tiền?,Tiền được hoàn trong 3-5 ngày làm việc.
Tôi có thể đổi giờ khởi hành không?,Bạn được đổi giờ miễn phí trước 24 giờ.
`

type fixture struct {
	dir     string
	csvPath string
	engine  *retrieval.Engine
	metrics *metrics.Metrics
	url     string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{dir: dir, csvPath: filepath.Join(dir, "faq_data.csv")}
	if err := os.WriteFile(f.csvPath, []byte(faqCSV), 0644); err != nil {
		t.Fatal(err)
	}
	src, err := corpus.Open(corpus.SourceConfig{Path: f.csvPath})
	if err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewSQLiteCache(filepath.Join(dir, "embeddings.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	f.metrics = metrics.New()
	f.engine = retrieval.NewEngine(src, embedding.NewMockEmbedder(64),
		retrieval.WithLogger(zap.NewNop()),
		retrieval.WithIndexPath(filepath.Join(dir, "faq.idx")),
		retrieval.WithEmbeddingStore(store),
		retrieval.WithRecorder(f.metrics),
	)
	t.Cleanup(func() { _ = f.engine.Close() })

	srv := server.NewServer(f.engine, &config.ServerConfig{Host: "127.0.0.1", Port: 0}, zap.NewNop(),
		server.WithMetrics(f.metrics, "/metrics"),
		server.WithDiskPaths(filepath.Join(dir, "faq.idx"), filepath.Join(dir, "embeddings.db")),
	)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	f.url = ts.URL
	return f
}

func ask(t *testing.T, base, question string) models.AskResponse {
	t.Helper()
	body, _ := json.Marshal(models.AskRequest{Question: question})
	resp, err := http.Post(base+"/api/faq/ask", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ask status = %d", resp.StatusCode)
	}
	var out models.AskResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return out
}

func getJSON(t *testing.T, target string, into interface{}) int {
	t.Helper()
	resp, err := http.Get(target)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if into != nil {
		_ = json.NewDecoder(resp.Body).Decode(into)
	}
	return resp.StatusCode
}

func TestIntegration_ServeAfterInitialize(t *testing.T) {
	f := setup(t)

	// Before the first build the API still answers, with the not-ready reply.
	early := ask(t, f.url, "Làm sao để hủy vé?")
	if early.Outcome().Kind != models.OutcomeNotReady {
		t.Fatalf("early answer = %+v", early)
	}

	if err := f.engine.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	got := ask(t, f.url, "Làm sao để hủy vé?")
	if got.Answer != "Vào mục Vé của tôi và chọn Hủy vé." || got.Confidence < 99 {
		t.Errorf("answer = %+v", got)
	}

	var list struct {
		FAQs  []string `json:"faqs"`
		Count int      `json:"count"`
	}
	if code := getJSON(t, f.url+"/api/faq/list", &list); code != http.StatusOK || list.Count != 3 {
		t.Errorf("list: code %d, %+v", code, list)
	}

	var kw struct {
		Results []models.KeywordHit `json:"results"`
	}
	if code := getJSON(t, f.url+"/api/faq/keyword?"+url.Values{"q": {"miễn phí"}}.Encode(), &kw); code != http.StatusOK {
		t.Fatalf("keyword code = %d", code)
	}
	if len(kw.Results) == 0 || kw.Results[0].Entry.ID != 2 {
		t.Errorf("keyword results = %+v", kw.Results)
	}

	var status struct {
		Engine    retrieval.Status `json:"engine"`
		DiskUsage int64            `json:"disk_usage_bytes"`
	}
	if code := getJSON(t, f.url+"/api/v1/status", &status); code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if status.Engine.State != retrieval.StateReady || status.DiskUsage == 0 {
		t.Errorf("status = %+v", status)
	}

	resp, err := http.Get(f.url + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	for _, name := range []string{"faq_answers_total", "faq_index_rebuilds_total", "faq_index_entries 3"} {
		if !strings.Contains(buf.String(), name) {
			t.Errorf("metrics output missing %q", name)
		}
	}
}

func TestIntegration_WatcherRebuildsOnCorpusChange(t *testing.T) {
	f := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := f.engine.Initialize(ctx); err != nil {
		t.Fatal(err)
	}

	w, err := watcher.NewWatcher([]string{f.csvPath}, func(ctx context.Context, _ string) {
		_ = f.engine.Rebuild(ctx, false)
	}, watcher.WithLogger(zap.NewNop()), watcher.WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	updated := faqCSV + "Có wifi trên xe không?,Tất cả xe giường nằm đều có wifi miễn phí.\n"
	if err := os.WriteFile(f.csvPath, []byte(updated), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if f.engine.Status().Entries == 4 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if n := f.engine.Status().Entries; n != 4 {
		t.Fatalf("entries after change = %d, want 4", n)
	}
	got := ask(t, f.url, "Có wifi trên xe không?")
	if got.Answer != "Tất cả xe giường nằm đều có wifi miễn phí." {
		t.Errorf("answer after rebuild = %+v", got)
	}
}

func TestIntegration_RebuildEndpointKeepsServingOnBadCorpus(t *testing.T) {
	f := setup(t)
	if err := f.engine.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(f.csvPath, []byte("q,a\nx,y\n"), 0644); err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(f.url+"/api/faq/rebuild", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("rebuild status = %d, want 500", resp.StatusCode)
	}
	got := ask(t, f.url, "Khi nào tôi được hoàn tiền?")
	if got.Answer != "Tiền được hoàn trong 3-5 ngày làm việc." {
		t.Errorf("answer after failed rebuild = %+v", got)
	}
}
