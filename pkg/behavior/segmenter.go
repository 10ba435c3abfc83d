package behavior

import (
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/mimir-aip/microfinance-go/pkg/models"
	"github.com/mimir-aip/microfinance-go/pkg/numeric"
)

const (
	DefaultGroups = 3
	fitIterations = 5
)

// LifestyleSegmenter groups feature vectors with Lloyd's k-means.
type LifestyleSegmenter struct {
	groups  int
	centers [][]float64
	rng     *rand.Rand
}

// SegmenterState is the serializable cluster model. Centers is nil until fit.
type SegmenterState struct {
	Groups  int         `json:"groups"`
	Centers [][]float64 `json:"centers,omitempty"`
}

func NewLifestyleSegmenter(groups int, rng *rand.Rand) *LifestyleSegmenter {
	return &LifestyleSegmenter{groups: groups, rng: rng}
}

// Fitted reports whether Fit has completed.
func (s *LifestyleSegmenter) Fitted() bool {
	return s.centers != nil
}

// Fit seeds the centers with distinct rows sampled without replacement and
// runs a fixed five reassignment passes. A group that loses every member
// keeps its previous center.
func (s *LifestyleSegmenter) Fit(rows [][]float64) error {
	if s.groups <= 0 {
		return errors.Wrapf(models.ErrInvalidArgument, "segmenter: %d groups", s.groups)
	}
	if len(rows) < s.groups {
		return errors.Wrapf(models.ErrInsufficientSamples, "segmenter: %d rows for %d groups", len(rows), s.groups)
	}
	width := len(rows[0])
	if width == 0 {
		return errors.Wrap(models.ErrEmptyInput, "segmenter rows have no features")
	}
	if err := numeric.CheckRows("segmenter rows", width, rows); err != nil {
		return err
	}

	centers := make([][]float64, s.groups)
	for i, idx := range s.rng.Perm(len(rows))[:s.groups] {
		centers[i] = numeric.Clone(rows[idx])
	}

	for iter := 0; iter < fitIterations; iter++ {
		sums := make([][]float64, s.groups)
		counts := make([]int, s.groups)
		for i := range sums {
			sums[i] = make([]float64, width)
		}
		for _, row := range rows {
			g := nearest(centers, row)
			floats.Add(sums[g], row)
			counts[g]++
		}
		for g := range centers {
			if counts[g] == 0 {
				continue
			}
			floats.Scale(1/float64(counts[g]), sums[g])
			centers[g] = sums[g]
		}
	}

	s.centers = centers
	return nil
}

// nearest returns the index of the closest center by squared Euclidean
// distance, lowest index on ties.
func nearest(centers [][]float64, x []float64) int {
	best, bestDist := 0, 0.0
	for i, c := range centers {
		d := floats.Distance(c, x, 2)
		d *= d
		if i == 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// Predict assigns x to its nearest center.
func (s *LifestyleSegmenter) Predict(x []float64) (int, error) {
	if s.centers == nil {
		return 0, errors.Wrap(models.ErrNotFitted, "lifestyle segmenter")
	}
	if err := numeric.CheckLen("segmenter features", len(s.centers[0]), x); err != nil {
		return 0, err
	}
	return nearest(s.centers, x), nil
}

func (s *LifestyleSegmenter) Snapshot() SegmenterState {
	return SegmenterState{Groups: s.groups, Centers: numeric.CloneMatrix(s.centers)}
}

func (s *LifestyleSegmenter) Restore(state SegmenterState) error {
	if state.Groups != s.groups {
		return errors.Wrapf(models.ErrDimensionMismatch, "segmenter: expected %d groups, got %d", s.groups, state.Groups)
	}
	if state.Centers != nil {
		if len(state.Centers) != s.groups {
			return errors.Wrapf(models.ErrDimensionMismatch, "segmenter: expected %d centers, got %d", s.groups, len(state.Centers))
		}
		if err := numeric.CheckRows("segmenter centers", len(state.Centers[0]), state.Centers); err != nil {
			return err
		}
	}
	s.centers = numeric.CloneMatrix(state.Centers)
	return nil
}
