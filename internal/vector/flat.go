package vector

import (
	"container/heap"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/Dunglqd/vexera-ai-system-test/internal/models"
)

// parallelThreshold is the index size above which Search splits scoring
// across goroutines.
const parallelThreshold = 8192

// FlatIndex is an immutable brute-force inner-product index. Rows are stored
// contiguously, unit length, in insertion order; row i has id i.
type FlatIndex struct {
	dim  int
	n    int
	data []float32
}

// Build normalizes every vector to unit length and returns the index. All
// vectors must share one dimension. An empty input yields an empty index.
func Build(vectors [][]float32) (*FlatIndex, error) {
	if len(vectors) == 0 {
		return &FlatIndex{}, nil
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("vector 0: %w", ErrDegenerateVector)
	}
	data := make([]float32, 0, dim*len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vector %d has %d dimensions, expected %d: %w", i, len(v), dim, ErrDimensionMismatch)
		}
		scale, err := unitScale(v)
		if err != nil {
			return nil, fmt.Errorf("vector %d: %w", i, err)
		}
		for _, x := range v {
			data = append(data, float32(float64(x)*scale))
		}
	}
	return &FlatIndex{dim: dim, n: len(vectors), data: data}, nil
}

// Size returns the number of stored vectors.
func (f *FlatIndex) Size() int { return f.n }

// Dimensions returns the vector dimension, or 0 for an empty index.
func (f *FlatIndex) Dimensions() int { return f.dim }

// Vector returns a copy of row id.
func (f *FlatIndex) Vector(id int) []float32 {
	if id < 0 || id >= f.n {
		return nil
	}
	out := make([]float32, f.dim)
	copy(out, f.row(id))
	return out
}

func (f *FlatIndex) row(id int) []float32 {
	return f.data[id*f.dim : (id+1)*f.dim]
}

// Search returns up to k hits ordered by descending inner product with the
// normalized query; equal scores are ordered by ascending id. An empty index
// or k <= 0 yields no hits.
func (f *FlatIndex) Search(query []float32, k int) ([]models.SearchResult, error) {
	if f.n == 0 || k <= 0 {
		return []models.SearchResult{}, nil
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("query has %d dimensions, index has %d: %w", len(query), f.dim, ErrDimensionMismatch)
	}
	scale, err := unitScale(query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	q := make([]float64, f.dim)
	for i, v := range query {
		q[i] = float64(v) * scale
	}
	if k > f.n {
		k = f.n
	}

	scores := make([]float64, f.n)
	if f.n < parallelThreshold {
		f.scoreRange(q, scores, 0, f.n)
	} else {
		f.scoreParallel(q, scores)
	}
	return selectTop(scores, k), nil
}

func (f *FlatIndex) scoreRange(q []float64, scores []float64, lo, hi int) {
	for id := lo; id < hi; id++ {
		scores[id] = innerProduct(q, f.row(id))
	}
}

func (f *FlatIndex) scoreParallel(q []float64, scores []float64) {
	workers := runtime.GOMAXPROCS(0)
	chunk := (f.n + workers - 1) / workers
	var g errgroup.Group
	for lo := 0; lo < f.n; lo += chunk {
		lo, hi := lo, min(lo+chunk, f.n)
		g.Go(func() error {
			f.scoreRange(q, scores, lo, hi)
			return nil
		})
	}
	_ = g.Wait()
}

// hitHeap is a min-heap on rank: the root is the worst of the current top k.
type hitHeap []models.SearchResult

func (h hitHeap) Len() int { return len(h) }
func (h hitHeap) Less(i, j int) bool {
	return ranksBefore(h[j].Score, h[j].ID, h[i].Score, h[i].ID)
}
func (h hitHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *hitHeap) Push(x interface{}) { *h = append(*h, x.(models.SearchResult)) }
func (h *hitHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func selectTop(scores []float64, k int) []models.SearchResult {
	h := make(hitHeap, 0, k)
	for id, s := range scores {
		if len(h) < k {
			heap.Push(&h, models.SearchResult{ID: id, Score: s})
			continue
		}
		if ranksBefore(s, id, h[0].Score, h[0].ID) {
			h[0] = models.SearchResult{ID: id, Score: s}
			heap.Fix(&h, 0)
		}
	}
	out := make([]models.SearchResult, len(h))
	for i := len(h) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(models.SearchResult)
	}
	return out
}
