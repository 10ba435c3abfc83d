package numeric

import (
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/mimir-aip/microfinance-go/pkg/models"
)

// Normalize rescales data into [0, 1] using min-max scaling. A constant
// series maps to all zeros.
func Normalize(data []float64) ([]float64, error) {
	if len(data) == 0 {
		return nil, errors.Wrap(models.ErrEmptyInput, "normalize")
	}
	lo, hi := floats.Min(data), floats.Max(data)
	out := make([]float64, len(data))
	if hi == lo {
		return out, nil
	}
	for i, x := range data {
		out[i] = (x - lo) / (hi - lo)
	}
	return out, nil
}

// CheckLen returns ErrDimensionMismatch unless len(x) == want.
func CheckLen(what string, want int, x []float64) error {
	if len(x) != want {
		return errors.Wrapf(models.ErrDimensionMismatch, "%s: expected %d values, got %d", what, want, len(x))
	}
	return nil
}

// CheckRows validates every row of a batch against want.
func CheckRows(what string, want int, rows [][]float64) error {
	for i, row := range rows {
		if len(row) != want {
			return errors.Wrapf(models.ErrDimensionMismatch, "%s: row %d has %d values, expected %d", what, i, len(row), want)
		}
	}
	return nil
}

// Dot is the weighted sum of x under w. Lengths must already match.
func Dot(w, x []float64) float64 {
	return floats.Dot(w, x)
}

// Uniform draws from [lo, hi) using rng.
func Uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*rng.Float64()
}

// RandomWeights returns n weights drawn uniformly from [-1, 1).
func RandomWeights(rng *rand.Rand, n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = Uniform(rng, -1, 1)
	}
	return w
}

// Clone returns a copy of x that shares no storage with it.
func Clone(x []float64) []float64 {
	if x == nil {
		return nil
	}
	out := make([]float64, len(x))
	copy(out, x)
	return out
}

// CloneMatrix deep-copies a row-major matrix.
func CloneMatrix(m [][]float64) [][]float64 {
	if m == nil {
		return nil
	}
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = Clone(row)
	}
	return out
}
