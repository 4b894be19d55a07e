package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Dunglqd/vexera-ai-system-test/internal/models"
)

func TestObserveAnswer(t *testing.T) {
	m := New()
	m.ObserveAnswer(models.OutcomeAnswered, 87, 2*time.Millisecond)
	m.ObserveAnswer(models.OutcomeAnswered, 64, time.Millisecond)
	m.ObserveAnswer(models.OutcomeNotReady, 0, 0)

	if got := testutil.ToFloat64(m.AnswersTotal.WithLabelValues("answered")); got != 2 {
		t.Errorf("answered = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.AnswersTotal.WithLabelValues("not_ready")); got != 1 {
		t.Errorf("not_ready = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.AnswerConfidence); n != 1 {
		t.Errorf("confidence histogram series = %d", n)
	}
}

func TestObserveRebuild(t *testing.T) {
	m := New()
	m.ObserveRebuild("success", time.Second, 120)
	m.ObserveRebuild("failed", time.Second, 0)

	if got := testutil.ToFloat64(m.IndexEntries); got != 120 {
		t.Errorf("index entries = %v, want 120", got)
	}
	if got := testutil.ToFloat64(m.RebuildsTotal.WithLabelValues("failed")); got != 1 {
		t.Errorf("failed rebuilds = %v", got)
	}
}

func TestNewIsIndependent(t *testing.T) {
	// Separate instances must not collide on registration.
	a, b := New(), New()
	a.IndexEntries.Set(3)
	if testutil.ToFloat64(b.IndexEntries) != 0 {
		t.Error("instances share state")
	}
}

func TestMiddlewareAndHandler(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/faq/list", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Post("/api/faq/ask", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	r.Handle("/metrics", m.Handler())

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/faq/list", nil),
		httptest.NewRequest(http.MethodPost, "/api/faq/ask", nil),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/faq/list", "200")); got != 1 {
		t.Errorf("GET list = %v", got)
	}
	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/api/faq/ask", "400")); got != 1 {
		t.Errorf("POST ask = %v", got)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "faq_http_requests_total") {
		t.Error("scrape output missing request counter")
	}
}
