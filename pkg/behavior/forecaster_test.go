package behavior

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimir-aip/microfinance-go/pkg/models"
	"github.com/mimir-aip/microfinance-go/pkg/numeric"
)

func TestForecasterSlidingWindow(t *testing.T) {
	f := NewStabilityForecaster(3, numeric.NewRand(1))
	require.NoError(t, f.Restore(ForecasterState{Memory: []float64{0, 0, 0}, Weights: []float64{1, 1, 1}}))

	for i, x := range [][]float64{{1, 0, 0}, {1, 1, 0}, {1, 1, 1}, {2, 2, 0}} {
		p, err := f.Predict(x)
		require.NoError(t, err, "step %d", i)
		assert.InDelta(t, numeric.Sigmoid(f.Memory()[2]), p, 1e-12)
	}
	assert.Equal(t, []float64{2, 3, 4}, f.Memory(), "oldest value dropped on every push")
}

func TestForecasterDimensionMismatch(t *testing.T) {
	f := NewStabilityForecaster(3, numeric.NewRand(1))
	before := f.Memory()
	_, err := f.Echo([]float64{1, 2})
	assert.True(t, errors.Is(err, models.ErrDimensionMismatch))
	assert.Equal(t, before, f.Memory())
}
