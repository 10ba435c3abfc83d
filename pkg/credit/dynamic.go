package credit

import (
	"github.com/pkg/errors"

	"github.com/mimir-aip/microfinance-go/pkg/models"
	"github.com/mimir-aip/microfinance-go/pkg/numeric"
)

// DefaultDecay is the weight kept by the running score on every update.
const DefaultDecay = 0.9

// DynamicCreditScoring keeps an exponentially smoothed running score. Older
// updates carry geometrically less weight; the decay never changes after
// construction.
type DynamicCreditScoring struct {
	score float64
	decay float64
}

// DynamicState is the serializable state of the running score.
type DynamicState struct {
	Score float64 `json:"score"`
	Decay float64 `json:"decay"`
}

// NewDynamicCreditScoring creates a running score starting at zero. decay
// must lie strictly between 0 and 1.
func NewDynamicCreditScoring(decay float64) (*DynamicCreditScoring, error) {
	if err := checkDecay(decay); err != nil {
		return nil, err
	}
	return &DynamicCreditScoring{decay: decay}, nil
}

func checkDecay(decay float64) error {
	if !(decay > 0 && decay < 1) {
		return errors.Wrapf(models.ErrInvalidArgument, "decay %v outside (0, 1)", decay)
	}
	return nil
}

// Decay returns the fixed smoothing weight.
func (d *DynamicCreditScoring) Decay() float64 {
	return d.decay
}

// Update blends value into the running score. The feature vector is accepted
// for call-site symmetry with the other scorers and is not used.
func (d *DynamicCreditScoring) Update(_ []float64, value float64) {
	d.score = d.decay*d.score + (1-d.decay)*value
}

// Predict returns the sigmoid of the running score.
func (d *DynamicCreditScoring) Predict() float64 {
	return numeric.Sigmoid(d.score)
}

// Snapshot copies the running score.
func (d *DynamicCreditScoring) Snapshot() DynamicState {
	return DynamicState{Score: d.score, Decay: d.decay}
}

// Restore replaces the running score. The decay must equal the configured one.
func (d *DynamicCreditScoring) Restore(state DynamicState) error {
	if state.Decay != d.decay {
		return errors.Wrapf(models.ErrInvalidArgument, "decay %v does not match configured %v", state.Decay, d.decay)
	}
	d.score = state.Score
	return nil
}
