package vector

import (
	"errors"
	"math"
	"testing"
)

func TestBuild_UnitNorm(t *testing.T) {
	idx, err := Build([][]float32{
		{3, 4, 0},
		{0.001, 0, 0},
		{-2, 2, 1},
		{1e6, 1e6, 1e6},
	})
	if err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 4 || idx.Dimensions() != 3 {
		t.Fatalf("Size=%d Dimensions=%d", idx.Size(), idx.Dimensions())
	}
	for id := 0; id < idx.Size(); id++ {
		var sum float64
		for _, v := range idx.Vector(id) {
			sum += float64(v) * float64(v)
		}
		if n := math.Sqrt(sum); math.Abs(n-1) > 1e-5 {
			t.Errorf("row %d has norm %v", id, n)
		}
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name    string
		vectors [][]float32
		want    error
	}{
		{"zero vector", [][]float32{{1, 0}, {0, 0}}, ErrDegenerateVector},
		{"nan component", [][]float32{{float32(math.NaN()), 1}}, ErrDegenerateVector},
		{"inf component", [][]float32{{float32(math.Inf(1)), 1}}, ErrDegenerateVector},
		{"ragged", [][]float32{{1, 0}, {1, 0, 0}}, ErrDimensionMismatch},
		{"empty row", [][]float32{{}}, ErrDegenerateVector},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.vectors)
			if !errors.Is(err, tt.want) {
				t.Errorf("Build() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSearch_Ordering(t *testing.T) {
	idx, err := Build([][]float32{
		{0, 1, 0},
		{1, 0, 0},
		{0.9, 0.1, 0},
		{-1, 0, 0},
	})
	if err != nil {
		t.Fatal(err)
	}
	results, err := idx.Search([]float32{2, 0, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	wantIDs := []int{1, 2, 0}
	for i, r := range results {
		if r.ID != wantIDs[i] {
			t.Errorf("result %d: id %d, want %d", i, r.ID, wantIDs[i])
		}
	}
	if math.Abs(results[0].Score-1) > 1e-6 {
		t.Errorf("exact match score = %v", results[0].Score)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("scores not descending at %d", i)
		}
	}
}

func TestSearch_TiesByAscendingID(t *testing.T) {
	idx, err := Build([][]float32{
		{0, 1},
		{2, 0},
		{0, 3},
		{1, 0},
		{5, 0},
	})
	if err != nil {
		t.Fatal(err)
	}
	results, err := idx.Search([]float32{1, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	wantIDs := []int{1, 3, 4}
	for i, r := range results {
		if r.ID != wantIDs[i] {
			t.Errorf("result %d: id %d, want %d", i, r.ID, wantIDs[i])
		}
	}
}

func TestSearch_KLargerThanSize(t *testing.T) {
	idx, _ := Build([][]float32{{1, 0}, {0, 1}})
	results, err := idx.Search([]float32{1, 1}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestSearch_EmptyIndex(t *testing.T) {
	idx, err := Build(nil)
	if err != nil {
		t.Fatal(err)
	}
	results, err := idx.Search([]float32{1, 2, 3}, 3)
	if err != nil {
		t.Fatalf("empty index should not error: %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("expected empty non-nil result, got %v", results)
	}
}

func TestSearch_QueryErrors(t *testing.T) {
	idx, _ := Build([][]float32{{1, 0, 0}})
	if _, err := idx.Search([]float32{1, 0}, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("short query: got %v", err)
	}
	if _, err := idx.Search([]float32{0, 0, 0}, 1); !errors.Is(err, ErrDegenerateVector) {
		t.Errorf("zero query: got %v", err)
	}
}

func TestSearch_NonPositiveK(t *testing.T) {
	idx, _ := Build([][]float32{{1, 0}})
	results, err := idx.Search([]float32{1, 0}, 0)
	if err != nil || len(results) != 0 {
		t.Errorf("k=0: results=%v err=%v", results, err)
	}
}

func TestSearch_ParallelMatchesSequential(t *testing.T) {
	const n, dim = parallelThreshold + 513, 8
	vectors := make([][]float32, n)
	for i := range vectors {
		v := make([]float32, dim)
		for j := range v {
			v[j] = float32((i*31+j*17)%97) - 48
		}
		v[i%dim] += 0.5
		vectors[i] = v
	}
	idx, err := Build(vectors)
	if err != nil {
		t.Fatal(err)
	}
	query := []float32{1, -2, 3, -4, 5, -6, 7, -8}
	got, err := idx.Search(query, 25)
	if err != nil {
		t.Fatal(err)
	}

	scale, _ := unitScale(query)
	q := make([]float64, dim)
	for i, v := range query {
		q[i] = float64(v) * scale
	}
	scores := make([]float64, n)
	idx.scoreRange(q, scores, 0, n)
	want := selectTop(scores, 25)

	if len(got) != len(want) {
		t.Fatalf("got %d results, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("result %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}
