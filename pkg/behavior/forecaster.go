package behavior

import (
	"math/rand"

	"github.com/mimir-aip/microfinance-go/pkg/numeric"
)

// StabilityForecaster keeps a fixed-size FIFO of weighted pulses. The most
// recent entry is the echo.
type StabilityForecaster struct {
	memory  []float64
	weights []float64
}

// ForecasterState is the serializable window and weights.
type ForecasterState struct {
	Memory  []float64 `json:"memory"`
	Weights []float64 `json:"weights"`
}

// NewStabilityForecaster creates a window of size zeros and size weights.
func NewStabilityForecaster(size int, rng *rand.Rand) *StabilityForecaster {
	return &StabilityForecaster{
		memory:  make([]float64, size),
		weights: numeric.RandomWeights(rng, size),
	}
}

// Echo pushes w·x into the window, dropping the oldest value, and returns it.
func (f *StabilityForecaster) Echo(x []float64) (float64, error) {
	if err := numeric.CheckLen("stability features", len(f.weights), x); err != nil {
		return 0, err
	}
	v := numeric.Dot(f.weights, x)
	copy(f.memory, f.memory[1:])
	f.memory[len(f.memory)-1] = v
	return v, nil
}

// Predict pushes a new value and returns its sigmoid.
func (f *StabilityForecaster) Predict(x []float64) (float64, error) {
	v, err := f.Echo(x)
	if err != nil {
		return 0, err
	}
	return numeric.Sigmoid(v), nil
}

// Memory returns a copy of the window, oldest first.
func (f *StabilityForecaster) Memory() []float64 {
	return numeric.Clone(f.memory)
}

func (f *StabilityForecaster) Snapshot() ForecasterState {
	return ForecasterState{Memory: numeric.Clone(f.memory), Weights: numeric.Clone(f.weights)}
}

func (f *StabilityForecaster) Restore(state ForecasterState) error {
	if err := numeric.CheckLen("stability memory", len(f.memory), state.Memory); err != nil {
		return err
	}
	if err := numeric.CheckLen("stability weights", len(f.weights), state.Weights); err != nil {
		return err
	}
	f.memory = numeric.Clone(state.Memory)
	f.weights = numeric.Clone(state.Weights)
	return nil
}
