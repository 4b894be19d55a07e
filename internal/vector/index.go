// Package vector provides an exact inner-product index over unit-length
// embeddings and its binary persistence.
package vector

import (
	"errors"

	"github.com/Dunglqd/vexera-ai-system-test/internal/models"
)

var (
	// ErrDimensionMismatch is returned when vector lengths disagree with each
	// other, with the index, or with a serialized payload.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrDegenerateVector is returned for vectors whose norm is zero or not finite.
	ErrDegenerateVector = errors.New("degenerate vector")
	// ErrCorruptIndex is returned when a serialized index has an unknown header.
	ErrCorruptIndex = errors.New("corrupt index data")
)

// Index is a read-only nearest-neighbour index.
type Index interface {
	Search(query []float32, k int) ([]models.SearchResult, error)
	Size() int
	Dimensions() int
}
