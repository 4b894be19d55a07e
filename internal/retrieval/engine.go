// Package retrieval answers free-text questions from the FAQ corpus by
// nearest-neighbour search over question embeddings.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Dunglqd/vexera-ai-system-test/internal/corpus"
	"github.com/Dunglqd/vexera-ai-system-test/internal/embedding"
	"github.com/Dunglqd/vexera-ai-system-test/internal/keyword"
	"github.com/Dunglqd/vexera-ai-system-test/internal/models"
	"github.com/Dunglqd/vexera-ai-system-test/internal/storage"
	"github.com/Dunglqd/vexera-ai-system-test/pkg/utils"
)

// ErrNotReady is returned by lookups that need a published snapshot.
var ErrNotReady = errors.New("retrieval engine not ready")

const retireDelay = 30 * time.Second

// Recorder receives engine measurements.
type Recorder interface {
	ObserveAnswer(kind models.OutcomeKind, confidence float64, d time.Duration)
	ObserveRebuild(status string, d time.Duration, entries int)
}

// EventSink receives one event per answered question. Track must not block.
type EventSink interface {
	Track(ev models.AnswerEvent)
}

// OutcomeCache memoizes outcomes for a snapshot. Implementations treat
// failures as misses.
type OutcomeCache interface {
	Get(ctx context.Context, key string) (models.RetrievalOutcome, bool)
	Set(ctx context.Context, key string, o models.RetrievalOutcome)
}

// cacheFlusher is implemented by outcome caches that can drop every entry.
// Keys carry the snapshot id, so entries of a retired snapshot are never
// read again.
type cacheFlusher interface {
	Flush(ctx context.Context) (int64, error)
}

// Engine owns the corpus, the vector index and their lifecycle. Answer is
// safe for any number of concurrent callers; it reads the published snapshot
// without locking.
type Engine struct {
	source    corpus.Source
	columns   corpus.Columns
	embedder  embedding.Embedder
	indexPath string
	vectors   storage.EmbeddingStore
	workers   int
	batchSize int
	threshold float64
	topK      int

	logger   *zap.Logger
	recorder Recorder
	events   EventSink
	cache    OutcomeCache

	snap atomic.Pointer[snapshot]

	mu         sync.Mutex
	state      State
	reason     string
	rebuilding bool
	lastErr    string

	group singleflight.Group
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger. A nil logger disables logging.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = utils.OrNop(l) }
}

// WithIndexPath persists the index at path and reuses it when it matches
// the corpus and model.
func WithIndexPath(path string) EngineOption {
	return func(e *Engine) { e.indexPath = path }
}

// WithEmbeddingStore caches raw question embeddings across rebuilds.
func WithEmbeddingStore(s storage.EmbeddingStore) EngineOption {
	return func(e *Engine) { e.vectors = s }
}

// WithColumns sets the corpus header names.
func WithColumns(c corpus.Columns) EngineOption {
	return func(e *Engine) { e.columns = c }
}

// WithWorkers bounds concurrent provider calls during a build.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithBatchSize sets how many questions go to the provider per call.
func WithBatchSize(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithConfidenceThreshold overrides DefaultConfidenceThreshold.
func WithConfidenceThreshold(t float64) EngineOption {
	return func(e *Engine) {
		if t >= 0 && t <= 100 {
			e.threshold = t
		}
	}
}

// WithDefaultTopK sets the neighbour count used when callers pass k <= 0.
func WithDefaultTopK(k int) EngineOption {
	return func(e *Engine) {
		if k > 0 {
			e.topK = k
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) { e.recorder = r }
}

// WithEvents attaches an analytics sink.
func WithEvents(s EventSink) EngineOption {
	return func(e *Engine) { e.events = s }
}

// WithCache attaches an outcome cache.
func WithCache(c OutcomeCache) EngineOption {
	return func(e *Engine) { e.cache = c }
}

// NewEngine returns an uninitialized engine.
func NewEngine(src corpus.Source, emb embedding.Embedder, opts ...EngineOption) *Engine {
	e := &Engine{
		source:    src,
		columns:   corpus.DefaultColumns,
		embedder:  emb,
		workers:   4,
		batchSize: embedding.DefaultBatchSize,
		threshold: DefaultConfidenceThreshold,
		topK:      models.DefaultTopK,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Ready reports whether a snapshot is published.
func (e *Engine) Ready() bool {
	return e.snap.Load() != nil
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	if s != StateFailed {
		e.reason = ""
	}
	e.mu.Unlock()
	e.logger.Debug("engine state", zap.Stringer("state", s))
}

func (e *Engine) fail(err error) {
	e.mu.Lock()
	e.state = StateFailed
	e.reason = err.Error()
	e.mu.Unlock()
	e.logger.Error("engine initialization failed", zap.Error(err))
}

// Initialize loads the corpus and the index. It is a no-op once Ready; after
// a failure it retries from the corpus. Concurrent calls share one attempt.
func (e *Engine) Initialize(ctx context.Context) error {
	if e.Ready() {
		return nil
	}
	_, err, _ := e.group.Do("init", func() (interface{}, error) {
		if e.Ready() {
			return nil, nil
		}
		start := time.Now()
		snap, err := e.prepare(ctx, false, e.setState)
		if err != nil {
			e.fail(err)
			e.observeRebuild("failed", time.Since(start), 0)
			return nil, err
		}
		e.publish(snap)
		e.setState(StateReady)
		e.observeRebuild("success", time.Since(start), snap.corpus.Len())
		return nil, nil
	})
	return err
}

// Rebuild reloads the corpus and republishes. Before the first successful
// Initialize it behaves like Initialize. Once Ready, readers keep the current
// snapshot until the new one is complete, and a failed rebuild leaves it in
// place. With force the persisted index is ignored.
func (e *Engine) Rebuild(ctx context.Context, force bool) error {
	if !e.Ready() {
		return e.Initialize(ctx)
	}
	_, err, _ := e.group.Do("rebuild", func() (interface{}, error) {
		e.mu.Lock()
		e.rebuilding = true
		e.mu.Unlock()
		defer func() {
			e.mu.Lock()
			e.rebuilding = false
			e.mu.Unlock()
		}()

		start := time.Now()
		snap, err := e.prepare(ctx, force, func(State) {})
		if err != nil {
			e.mu.Lock()
			e.lastErr = err.Error()
			e.mu.Unlock()
			e.logger.Warn("rebuild failed, keeping current snapshot", zap.Error(err))
			e.observeRebuild("failed", time.Since(start), 0)
			return nil, err
		}
		e.publish(snap)
		e.mu.Lock()
		e.lastErr = ""
		e.mu.Unlock()
		e.flushCache(ctx)
		e.observeRebuild("success", time.Since(start), snap.corpus.Len())
		return nil, nil
	})
	return err
}

func (e *Engine) publish(s *snapshot) {
	old := e.snap.Swap(s)
	e.logger.Info("snapshot published",
		zap.String("snapshot", s.id),
		zap.Int("entries", s.corpus.Len()),
		zap.String("index", s.origin))
	if old != nil {
		// In-flight readers may still hold the old snapshot.
		time.AfterFunc(retireDelay, old.close)
	}
}

func (e *Engine) flushCache(ctx context.Context) {
	f, ok := e.cache.(cacheFlusher)
	if !ok {
		return
	}
	n, err := f.Flush(ctx)
	if err != nil {
		e.logger.Warn("outcome cache flush failed", zap.Error(err))
		return
	}
	e.logger.Info("outcome cache flushed", zap.Int64("keys", n))
}

func (e *Engine) observeRebuild(status string, d time.Duration, entries int) {
	if e.recorder != nil {
		e.recorder.ObserveRebuild(status, d, entries)
	}
}

// Answer resolves one question. It never fails: problems are reported
// through the outcome's Kind and a fixed reply with zero confidence.
func (e *Engine) Answer(ctx context.Context, question string, topK int) models.RetrievalOutcome {
	return e.answer(ctx, question, topK, "")
}

// Ask is Answer for an API request, carrying the user id into analytics.
func (e *Engine) Ask(ctx context.Context, req models.AskRequest) models.RetrievalOutcome {
	return e.answer(ctx, req.Question, req.TopK, req.UserID)
}

func (e *Engine) answer(ctx context.Context, question string, topK int, userID string) models.RetrievalOutcome {
	snap := e.snap.Load()
	if snap == nil {
		out := sentinel(models.OutcomeNotReady)
		e.observe(out, question, userID, "")
		return out
	}
	if topK <= 0 {
		topK = e.topK
	}

	start := time.Now()
	key := cacheKey(snap.id, question)
	if e.cache != nil {
		if out, ok := e.cache.Get(ctx, key); ok {
			out.ProcessingTime = time.Since(start)
			e.observe(out, question, userID, snap.id)
			return out
		}
	}

	out := e.resolve(ctx, snap, question, topK)
	out.ProcessingTime = time.Since(start)
	if e.cache != nil && cacheable(out.Kind) {
		e.cache.Set(ctx, key, out)
	}
	e.observe(out, question, userID, snap.id)
	return out
}

func (e *Engine) resolve(ctx context.Context, snap *snapshot, question string, topK int) models.RetrievalOutcome {
	vec, err := e.embedder.Embed(ctx, question)
	if err != nil {
		e.logger.Warn("embedding question failed", zap.Error(err))
		return sentinel(models.OutcomeProcessingError)
	}
	results, err := snap.index.Search(vec, topK)
	if err != nil {
		e.logger.Warn("vector search failed", zap.Error(err))
		return sentinel(models.OutcomeProcessingError)
	}
	return Decide(results, snap.corpus, e.threshold)
}

func (e *Engine) observe(out models.RetrievalOutcome, question, userID, snapshotID string) {
	if e.recorder != nil {
		e.recorder.ObserveAnswer(out.Kind, out.Confidence, out.ProcessingTime)
	}
	if e.events != nil {
		e.events.Track(models.AnswerEvent{
			Question:        question,
			UserID:          userID,
			Kind:            out.Kind,
			Confidence:      out.Confidence,
			MatchedQuestion: out.MatchedQuestion,
			LatencyMS:       float64(out.ProcessingTime.Microseconds()) / 1000,
			SnapshotID:      snapshotID,
			Timestamp:       time.Now().UTC(),
		})
	}
}

func cacheable(k models.OutcomeKind) bool {
	return k == models.OutcomeAnswered || k == models.OutcomeLowConfidence || k == models.OutcomeNoMatch
}

// cacheKey scopes outcomes to a snapshot; whitespace runs in the question are
// collapsed, case is kept.
func cacheKey(snapshotID, question string) string {
	return snapshotID + ":" + utils.CollapseSpace(question)
}

// ListQuestions returns every corpus question, or nil before the engine is ready.
func (e *Engine) ListQuestions() []string {
	snap := e.snap.Load()
	if snap == nil {
		return nil
	}
	return snap.corpus.AllQuestions()
}

// FindBySubstring returns entries whose question contains keyword, ignoring
// case, in corpus order; nil before the engine is ready.
func (e *Engine) FindBySubstring(keyword string) []models.CorpusEntry {
	snap := e.snap.Load()
	if snap == nil {
		return nil
	}
	return snap.corpus.FindBySubstring(keyword, true)
}

// KeywordResult is a ranked keyword search response.
type KeywordResult struct {
	Hits []models.KeywordHit `json:"hits"`
	// Suggestion is a spelling-corrected query, set when the query had no hits.
	Suggestion string `json:"suggestion,omitempty"`
}

// KeywordSearch runs a ranked full-text search over questions and answers.
func (e *Engine) KeywordSearch(ctx context.Context, q models.KeywordQuery) (KeywordResult, error) {
	snap := e.snap.Load()
	if snap == nil {
		return KeywordResult{}, ErrNotReady
	}
	if snap.keywords == nil {
		return KeywordResult{}, fmt.Errorf("keyword index unavailable")
	}
	hits, err := snap.keywords.Search(ctx, q.Query, q.Limit, &keyword.SearchOptions{
		QuestionBoost: 2,
		Fuzzy:         q.Fuzzy,
	})
	if err != nil {
		return KeywordResult{}, err
	}
	res := KeywordResult{Hits: make([]models.KeywordHit, 0, len(hits))}
	for _, h := range hits {
		entry, ok := snap.corpus.Entry(h.ID)
		if !ok {
			continue
		}
		res.Hits = append(res.Hits, models.KeywordHit{Entry: entry, Score: h.Score})
	}
	if len(res.Hits) == 0 && snap.spell != nil {
		if corrected, changed := snap.spell.Correct(q.Query); changed {
			res.Suggestion = corrected
		}
	}
	return res, nil
}

// Status reports the lifecycle state and the published snapshot.
func (e *Engine) Status() Status {
	e.mu.Lock()
	st := Status{
		State:      e.state,
		Reason:     e.reason,
		Rebuilding: e.rebuilding,
		LastError:  e.lastErr,
		Model:      e.embedder.Model(),
	}
	e.mu.Unlock()
	if snap := e.snap.Load(); snap != nil {
		st.SnapshotID = snap.id
		st.Source = snap.corpus.Source()
		st.Entries = snap.corpus.Len()
		st.Dimensions = snap.index.Dimensions()
		st.Fingerprint = snap.corpus.Fingerprint()
		st.IndexOrigin = snap.origin
		st.BuiltAt = snap.builtAt
	}
	return st
}

// Close releases the published snapshot. The embedder and stores belong to
// the caller.
func (e *Engine) Close() error {
	if old := e.snap.Swap(nil); old != nil {
		old.close()
	}
	return nil
}
