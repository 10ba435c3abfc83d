// Package behavior implements the behavioral models: the sine-wave sentiment
// regressor, k-means lifestyle segmentation, the sliding-window stability
// forecaster, noise-based privacy veiling and the prospect-theory utility.
package behavior

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/mimir-aip/microfinance-go/pkg/models"
	"github.com/mimir-aip/microfinance-go/pkg/numeric"
)

const (
	DefaultSize         = 3
	DefaultEpochs       = 50
	DefaultLearningRate = 0.01
)

// SentimentAnalyzer is a weighted sine-wave regressor squashed by a sigmoid.
// It has no bias term.
type SentimentAnalyzer struct {
	weights []float64
}

// WeightState holds a plain weight vector.
type WeightState struct {
	Weights []float64 `json:"weights"`
}

func NewSentimentAnalyzer(size int, rng *rand.Rand) *SentimentAnalyzer {
	return &SentimentAnalyzer{weights: numeric.RandomWeights(rng, size)}
}

func (s *SentimentAnalyzer) wave(f []float64) float64 {
	var sum float64
	for i, w := range s.weights {
		sum += w * math.Sin(f[i])
	}
	return sum
}

// Wave returns Σ w_i * sin(f_i).
func (s *SentimentAnalyzer) Wave(f []float64) (float64, error) {
	if err := numeric.CheckLen("sentiment features", len(s.weights), f); err != nil {
		return 0, err
	}
	return s.wave(f), nil
}

// Predict returns a sentiment score in (0, 1).
func (s *SentimentAnalyzer) Predict(f []float64) (float64, error) {
	w, err := s.Wave(f)
	if err != nil {
		return 0, err
	}
	return numeric.Sigmoid(w), nil
}

// Train runs per-sample SGD with gradient error*sin(f_i). The batch is
// validated before any weight changes.
func (s *SentimentAnalyzer) Train(samples [][]float64, targets []float64, epochs int, lr float64) error {
	if len(samples) != len(targets) {
		return errors.Wrapf(models.ErrDimensionMismatch, "sentiment: %d samples but %d targets", len(samples), len(targets))
	}
	if err := numeric.CheckRows("sentiment samples", len(s.weights), samples); err != nil {
		return err
	}
	for epoch := 0; epoch < epochs; epoch++ {
		for n, f := range samples {
			diff := numeric.Sigmoid(s.wave(f)) - targets[n]
			for i := range s.weights {
				s.weights[i] -= lr * diff * math.Sin(f[i])
			}
		}
	}
	return nil
}

func (s *SentimentAnalyzer) Snapshot() WeightState {
	return WeightState{Weights: numeric.Clone(s.weights)}
}

func (s *SentimentAnalyzer) Restore(state WeightState) error {
	if err := numeric.CheckLen("sentiment weights", len(s.weights), state.Weights); err != nil {
		return err
	}
	s.weights = numeric.Clone(state.Weights)
	return nil
}
