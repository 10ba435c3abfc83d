package behavior

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimir-aip/microfinance-go/pkg/models"
	"github.com/mimir-aip/microfinance-go/pkg/numeric"
)

func blobs() [][]float64 {
	return [][]float64{
		{0, 0}, {0.1, 0.2}, {0.2, 0.1},
		{10, 10}, {10.1, 9.9}, {9.8, 10.2},
	}
}

func TestSegmenterSeparatesClusters(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		s := NewLifestyleSegmenter(2, numeric.NewRand(seed))
		require.NoError(t, s.Fit(blobs()))

		low, err := s.Predict([]float64{0.05, 0.05})
		require.NoError(t, err)
		high, err := s.Predict([]float64{10, 10})
		require.NoError(t, err)
		assert.NotEqual(t, low, high, "seed %d", seed)
	}
}

func TestSegmenterCentersAreGroupMeans(t *testing.T) {
	s := NewLifestyleSegmenter(2, numeric.NewRand(3))
	require.NoError(t, s.Fit(blobs()))

	state := s.Snapshot()
	require.Len(t, state.Centers, 2)
	for _, c := range state.Centers {
		if c[0] < 5 {
			assert.InDeltaSlice(t, []float64{0.1, 0.1}, c, 1e-9)
		} else {
			assert.InDeltaSlice(t, []float64{9.9666666667, 10.0333333333}, c, 1e-9)
		}
	}
}

func TestSegmenterErrors(t *testing.T) {
	s := NewLifestyleSegmenter(3, numeric.NewRand(1))

	_, err := s.Predict([]float64{1, 2})
	assert.True(t, errors.Is(err, models.ErrNotFitted))

	err = s.Fit([][]float64{{1, 2}, {3, 4}})
	assert.True(t, errors.Is(err, models.ErrInsufficientSamples))
	assert.False(t, s.Fitted())

	err = s.Fit([][]float64{{1, 2}, {3, 4}, {5}})
	assert.True(t, errors.Is(err, models.ErrDimensionMismatch))

	require.NoError(t, s.Fit([][]float64{{1, 2}, {3, 4}, {5, 6}}))
	_, err = s.Predict([]float64{1})
	assert.True(t, errors.Is(err, models.ErrDimensionMismatch))
}

func TestSegmenterSnapshotRoundTrip(t *testing.T) {
	src := NewLifestyleSegmenter(2, numeric.NewRand(5))
	require.NoError(t, src.Fit(blobs()))

	dst := NewLifestyleSegmenter(2, numeric.NewRand(6))
	require.NoError(t, dst.Restore(src.Snapshot()))
	assert.Equal(t, src.Snapshot(), dst.Snapshot())
	assert.True(t, dst.Fitted())

	err := NewLifestyleSegmenter(4, numeric.NewRand(1)).Restore(src.Snapshot())
	assert.True(t, errors.Is(err, models.ErrDimensionMismatch))
}
