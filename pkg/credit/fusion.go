// Package credit implements the creditworthiness models: the alternative-data
// fusion scorer, the social propagation network, the federated ensemble and
// the time-decayed running score.
//
// None of the types here are safe for concurrent mutation. A single owner
// (usually platform.Service) is expected to serialize Train/Update calls.
package credit

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/mimir-aip/microfinance-go/pkg/models"
	"github.com/mimir-aip/microfinance-go/pkg/numeric"
)

const (
	DefaultInputSize    = 5
	DefaultEpochs       = 50
	DefaultLearningRate = 0.01
)

// AlternativeDataFusion is a single-layer scorer over alternative data. Each
// feature contributes w*ln(1+|x|)*sigmoid(x) (the trust ripple) and the sum
// plus bias is squashed with a sigmoid.
type AlternativeDataFusion struct {
	weights []float64
	bias    float64
}

// FusionState is the serializable parameter set of an AlternativeDataFusion.
type FusionState struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

// NewAlternativeDataFusion creates a scorer over inputSize features with
// weights and bias drawn from [-1, 1).
func NewAlternativeDataFusion(inputSize int, rng *rand.Rand) *AlternativeDataFusion {
	return &AlternativeDataFusion{
		weights: numeric.RandomWeights(rng, inputSize),
		bias:    numeric.Uniform(rng, -1, 1),
	}
}

// InputSize returns the number of features the scorer expects.
func (m *AlternativeDataFusion) InputSize() int {
	return len(m.weights)
}

func rippleTerm(x float64) float64 {
	return math.Log1p(math.Abs(x)) * numeric.Sigmoid(x)
}

func (m *AlternativeDataFusion) ripple(x []float64) float64 {
	sum := m.bias
	for i, w := range m.weights {
		sum += w * rippleTerm(x[i])
	}
	return sum
}

// TrustRipple returns the raw weighted log-sigmoid sum before squashing.
func (m *AlternativeDataFusion) TrustRipple(x []float64) (float64, error) {
	if err := numeric.CheckLen("fusion features", len(m.weights), x); err != nil {
		return 0, err
	}
	return m.ripple(x), nil
}

// Predict returns a creditworthiness score in (0, 1).
func (m *AlternativeDataFusion) Predict(x []float64) (float64, error) {
	r, err := m.TrustRipple(x)
	if err != nil {
		return 0, err
	}
	return numeric.Sigmoid(r), nil
}

// Train runs per-sample stochastic gradient descent for the given number of
// epochs. The whole batch is validated before the first update so a bad
// sample never leaves the weights half-trained.
func (m *AlternativeDataFusion) Train(samples [][]float64, targets []float64, epochs int, lr float64) error {
	if len(samples) != len(targets) {
		return errors.Wrapf(models.ErrDimensionMismatch, "fusion: %d samples but %d targets", len(samples), len(targets))
	}
	if err := numeric.CheckRows("fusion samples", len(m.weights), samples); err != nil {
		return err
	}

	for epoch := 0; epoch < epochs; epoch++ {
		for s, x := range samples {
			diff := numeric.Sigmoid(m.ripple(x)) - targets[s]
			for i := range m.weights {
				m.weights[i] -= lr * diff * rippleTerm(x[i])
			}
			m.bias -= lr * diff
		}
	}
	return nil
}

// Snapshot copies the current parameters.
func (m *AlternativeDataFusion) Snapshot() FusionState {
	return FusionState{Weights: numeric.Clone(m.weights), Bias: m.bias}
}

// Restore replaces the parameters with state. The weight count must match.
func (m *AlternativeDataFusion) Restore(state FusionState) error {
	if err := numeric.CheckLen("fusion weights", len(m.weights), state.Weights); err != nil {
		return err
	}
	m.weights = numeric.Clone(state.Weights)
	m.bias = state.Bias
	return nil
}
