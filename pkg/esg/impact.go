package esg

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/mimir-aip/microfinance-go/pkg/models"
	"github.com/mimir-aip/microfinance-go/pkg/numeric"
)

const (
	DefaultImpactSize   = 3
	DefaultEpochs       = 50
	DefaultLearningRate = 0.01
)

// ImpactMeasurer is a bias-free linear regressor.
type ImpactMeasurer struct {
	weights []float64
}

// ImpactState is the serializable weight vector.
type ImpactState struct {
	Weights []float64 `json:"weights"`
}

func NewImpactMeasurer(size int, rng *rand.Rand) *ImpactMeasurer {
	return &ImpactMeasurer{weights: numeric.RandomWeights(rng, size)}
}

// Ripple returns the weighted dot product w·x.
func (m *ImpactMeasurer) Ripple(x []float64) (float64, error) {
	if err := numeric.CheckLen("impact data", len(m.weights), x); err != nil {
		return 0, err
	}
	return numeric.Dot(m.weights, x), nil
}

// Fit runs per-sample SGD on squared error. The batch is validated first.
func (m *ImpactMeasurer) Fit(samples [][]float64, targets []float64, epochs int, lr float64) error {
	if len(samples) != len(targets) {
		return errors.Wrapf(models.ErrDimensionMismatch, "impact: %d samples but %d targets", len(samples), len(targets))
	}
	if err := numeric.CheckRows("impact samples", len(m.weights), samples); err != nil {
		return err
	}
	for epoch := 0; epoch < epochs; epoch++ {
		for n, x := range samples {
			diff := numeric.Dot(m.weights, x) - targets[n]
			for i := range m.weights {
				m.weights[i] -= lr * diff * x[i]
			}
		}
	}
	return nil
}

func (m *ImpactMeasurer) Snapshot() ImpactState {
	return ImpactState{Weights: numeric.Clone(m.weights)}
}

func (m *ImpactMeasurer) Restore(state ImpactState) error {
	if err := numeric.CheckLen("impact weights", len(m.weights), state.Weights); err != nil {
		return err
	}
	m.weights = numeric.Clone(state.Weights)
	return nil
}
