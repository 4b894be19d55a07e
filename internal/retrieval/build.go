package retrieval

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Dunglqd/vexera-ai-system-test/internal/corpus"
	"github.com/Dunglqd/vexera-ai-system-test/internal/embedding"
	"github.com/Dunglqd/vexera-ai-system-test/internal/keyword"
	"github.com/Dunglqd/vexera-ai-system-test/internal/storage"
	"github.com/Dunglqd/vexera-ai-system-test/internal/vector"
)

const (
	originLoaded = "loaded"
	originBuilt  = "built"
)

// snapshot is an immutable corpus/index pair. Readers that loaded it may use
// it without synchronization.
type snapshot struct {
	id       string
	corpus   *corpus.Store
	index    *vector.FlatIndex
	keywords *keyword.BleveIndex
	spell    *keyword.SpellChecker
	origin   string
	builtAt  time.Time

	closeOnce sync.Once
}

func (s *snapshot) close() {
	s.closeOnce.Do(func() {
		if s.keywords != nil {
			_ = s.keywords.Close()
		}
	})
}

// prepare builds a complete snapshot off to the side. track receives state
// transitions; it is a no-op during rebuilds behind a live snapshot.
func (e *Engine) prepare(ctx context.Context, force bool, track func(State)) (*snapshot, error) {
	track(StateLoadingCorpus)
	store, err := corpus.Load(ctx, e.source, e.columns)
	if err != nil {
		return nil, err
	}
	e.logger.Info("corpus loaded", zap.String("source", store.Source()), zap.Int("entries", store.Len()))

	track(StateLoadingIndex)
	origin := originLoaded
	var idx *vector.FlatIndex
	if !force {
		idx = e.loadPersisted(store)
	}
	if idx == nil {
		track(StateBuildingIndex)
		origin = originBuilt
		idx, err = e.buildIndex(ctx, store)
		if err != nil {
			return nil, err
		}
		e.persist(store, idx)
	}

	snap := &snapshot{
		id:      uuid.NewString(),
		corpus:  store,
		index:   idx,
		origin:  origin,
		builtAt: time.Now().UTC(),
	}
	kw, err := keyword.NewBleveIndex(ctx, store.Entries())
	if err != nil {
		e.logger.Warn("keyword index unavailable", zap.Error(err))
		return snap, nil
	}
	snap.keywords = kw
	if sc, err := keyword.NewSpellChecker(kw); err != nil {
		e.logger.Warn("spell checker unavailable", zap.Error(err))
	} else {
		snap.spell = sc
	}
	return snap, nil
}

// loadPersisted returns the persisted index when it was built from this
// corpus with this model, or nil.
func (e *Engine) loadPersisted(store *corpus.Store) *vector.FlatIndex {
	if e.indexPath == "" {
		return nil
	}
	idx, meta, err := vector.Load(e.indexPath)
	if err != nil {
		if vector.IsNotExist(err) {
			e.logger.Info("no persisted index", zap.String("path", e.indexPath))
		} else {
			e.logger.Warn("persisted index unreadable, rebuilding", zap.Error(err))
		}
		return nil
	}
	reject := func(why string) *vector.FlatIndex {
		e.logger.Info("persisted index stale, rebuilding", zap.String("path", e.indexPath), zap.String("reason", why))
		return nil
	}
	switch {
	case idx.Size() != store.Len():
		return reject(fmt.Sprintf("index has %d vectors, corpus has %d entries", idx.Size(), store.Len()))
	case meta.Fingerprint != store.Fingerprint():
		return reject("corpus fingerprint changed")
	case meta.Model != e.embedder.Model():
		return reject(fmt.Sprintf("model changed from %q", meta.Model))
	case idx.Size() > 0 && e.embedder.Dimensions() > 0 && idx.Dimensions() != e.embedder.Dimensions():
		return reject(fmt.Sprintf("dimension %d, embedder has %d", idx.Dimensions(), e.embedder.Dimensions()))
	}
	e.logger.Info("persisted index loaded", zap.String("path", e.indexPath), zap.Int("vectors", idx.Size()))
	return idx
}

func (e *Engine) persist(store *corpus.Store, idx *vector.FlatIndex) {
	if e.indexPath == "" {
		return
	}
	meta := vector.Meta{Fingerprint: store.Fingerprint(), Model: e.embedder.Model()}
	if err := vector.Save(e.indexPath, idx, meta); err != nil {
		e.logger.Warn("index not persisted, serving from memory", zap.Error(err))
	}
}

// buildIndex embeds every question, reusing cached raw vectors, and builds
// the index in corpus order.
func (e *Engine) buildIndex(ctx context.Context, store *corpus.Store) (*vector.FlatIndex, error) {
	questions := store.AllQuestions()
	raw := make([][]float32, len(questions))
	model := e.embedder.Model()

	hashes := make([]string, len(questions))
	for i, q := range questions {
		hashes[i] = storage.HashText(q)
	}
	if e.vectors != nil {
		cached, err := e.vectors.Get(ctx, model, hashes)
		if err != nil {
			e.logger.Warn("embedding cache read failed", zap.Error(err))
		}
		for i, h := range hashes {
			if v, ok := cached[h]; ok {
				raw[i] = v
			}
		}
	}

	var missIdx []int
	var missTexts []string
	for i, v := range raw {
		if v == nil {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, questions[i])
		}
	}
	e.logger.Info("embedding corpus",
		zap.Int("questions", len(questions)),
		zap.Int("cached", len(questions)-len(missTexts)),
		zap.String("model", model))

	if len(missTexts) > 0 {
		vecs, err := embedding.EmbedParallel(ctx, e.embedder, missTexts, e.workers, e.batchSize)
		if err != nil {
			return nil, err
		}
		records := make([]storage.Record, len(vecs))
		for j, v := range vecs {
			raw[missIdx[j]] = v
			records[j] = storage.Record{Hash: hashes[missIdx[j]], Position: missIdx[j], Vector: v}
		}
		if e.vectors != nil {
			if err := e.vectors.Put(ctx, model, records); err != nil {
				e.logger.Warn("embedding cache write failed", zap.Error(err))
			}
		}
	}
	if e.vectors != nil {
		if n, err := e.vectors.Retain(ctx, model, hashes); err != nil {
			e.logger.Warn("embedding cache prune failed", zap.Error(err))
		} else if n > 0 {
			e.logger.Debug("pruned cached embeddings", zap.Int64("removed", n))
		}
	}

	idx, err := vector.Build(raw)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	return idx, nil
}
