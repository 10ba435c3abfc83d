package compliance

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/mimir-aip/microfinance-go/pkg/models"
	"github.com/mimir-aip/microfinance-go/pkg/numeric"
)

const (
	DefaultAMLSize   = 5
	DefaultThreshold = 1.0
)

// AMLAnomalyDetector flags transactions whose weighted deviation from the
// training mean (the pulse) exceeds a threshold.
type AMLAnomalyDetector struct {
	avg     []float64
	weights []float64
}

// AMLState is the serializable detector state.
type AMLState struct {
	Avg     []float64 `json:"avg"`
	Weights []float64 `json:"weights"`
}

// NewAMLAnomalyDetector creates a detector over size features with a zero
// mean and random weights.
func NewAMLAnomalyDetector(size int, rng *rand.Rand) *AMLAnomalyDetector {
	return &AMLAnomalyDetector{
		avg:     make([]float64, size),
		weights: numeric.RandomWeights(rng, size),
	}
}

// Size returns the configured feature count.
func (d *AMLAnomalyDetector) Size() int {
	return len(d.weights)
}

// Pulse returns Σ w_i * (x_i - avg_i).
func (d *AMLAnomalyDetector) Pulse(x []float64) (float64, error) {
	if err := numeric.CheckLen("aml transaction", len(d.weights), x); err != nil {
		return 0, err
	}
	dev := make([]float64, len(x))
	floats.SubTo(dev, x, d.avg)
	return floats.Dot(d.weights, dev), nil
}

// Detect reports an anomaly when |pulse| > threshold.
func (d *AMLAnomalyDetector) Detect(x []float64, threshold float64) (bool, error) {
	p, err := d.Pulse(x)
	if err != nil {
		return false, err
	}
	return math.Abs(p) > threshold, nil
}

// Train sets the reference mean to the per-feature column mean of samples.
// Weights are left untouched.
func (d *AMLAnomalyDetector) Train(samples [][]float64) error {
	if len(samples) == 0 {
		return errors.Wrap(models.ErrEmptyInput, "aml training batch")
	}
	if err := numeric.CheckRows("aml samples", len(d.weights), samples); err != nil {
		return err
	}
	avg := make([]float64, len(d.weights))
	for _, row := range samples {
		floats.Add(avg, row)
	}
	floats.Scale(1/float64(len(samples)), avg)
	d.avg = avg
	return nil
}

func (d *AMLAnomalyDetector) Snapshot() AMLState {
	return AMLState{Avg: numeric.Clone(d.avg), Weights: numeric.Clone(d.weights)}
}

func (d *AMLAnomalyDetector) Restore(state AMLState) error {
	if err := numeric.CheckLen("aml avg", len(d.weights), state.Avg); err != nil {
		return err
	}
	if err := numeric.CheckLen("aml weights", len(d.weights), state.Weights); err != nil {
		return err
	}
	d.avg = numeric.Clone(state.Avg)
	d.weights = numeric.Clone(state.Weights)
	return nil
}
