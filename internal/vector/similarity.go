package vector

import (
	"math"

	"github.com/Dunglqd/vexera-ai-system-test/pkg/utils"
)

// unitScale returns 1/‖x‖ in float64, or ErrDegenerateVector when the norm is
// zero, NaN or infinite.
func unitScale(x []float32) (float64, error) {
	norm := utils.L2Norm(x)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return 0, ErrDegenerateVector
	}
	return 1 / norm, nil
}

// innerProduct scores a float64 query against a stored float32 row.
func innerProduct(q []float64, row []float32) float64 {
	var dot float64
	for i, v := range row {
		dot += q[i] * float64(v)
	}
	return dot
}

// ranksBefore orders hits by descending score, then ascending id.
func ranksBefore(scoreA float64, idA int, scoreB float64, idB int) bool {
	if scoreA != scoreB {
		return scoreA > scoreB
	}
	return idA < idB
}
