package credit

import (
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/mimir-aip/microfinance-go/pkg/models"
	"github.com/mimir-aip/microfinance-go/pkg/numeric"
)

// FederatedCreditScoring simulates cross-institution aggregation: every
// institution trains its own fusion scorer on its own shard and only the mean
// prediction of each shard leaves the institution. The consensus score is the
// mean of those means.
type FederatedCreditScoring struct {
	institutions []*AlternativeDataFusion
	globalScore  float64
	fitted       bool
}

// FederatedState is the serializable state of the ensemble.
type FederatedState struct {
	Institutions []FusionState `json:"institutions"`
	GlobalScore  float64       `json:"global_score"`
	Fitted       bool          `json:"fitted"`
}

// NewFederatedCreditScoring creates count independent scorers over inputSize
// features.
func NewFederatedCreditScoring(count, inputSize int, rng *rand.Rand) *FederatedCreditScoring {
	institutions := make([]*AlternativeDataFusion, count)
	for i := range institutions {
		institutions[i] = NewAlternativeDataFusion(inputSize, rng)
	}
	return &FederatedCreditScoring{institutions: institutions}
}

// Institutions returns the number of participating scorers.
func (f *FederatedCreditScoring) Institutions() int {
	return len(f.institutions)
}

// Train fits every institution on its own shard and recomputes the consensus
// score wholesale. Shards are validated up front.
func (f *FederatedCreditScoring) Train(datasets [][][]float64, targets [][]float64, epochs int) error {
	if len(datasets) != len(f.institutions) || len(targets) != len(f.institutions) {
		return errors.Wrapf(models.ErrDimensionMismatch, "federated: %d institutions, got %d datasets and %d target sets",
			len(f.institutions), len(datasets), len(targets))
	}
	for i, shard := range datasets {
		if len(shard) == 0 {
			return errors.Wrapf(models.ErrEmptyInput, "federated: institution %d has no samples", i)
		}
		if len(shard) != len(targets[i]) {
			return errors.Wrapf(models.ErrDimensionMismatch, "federated: institution %d has %d samples but %d targets", i, len(shard), len(targets[i]))
		}
		if err := numeric.CheckRows("federated samples", f.institutions[i].InputSize(), shard); err != nil {
			return errors.Wrapf(err, "institution %d", i)
		}
	}

	means := make([]float64, len(f.institutions))
	for i, model := range f.institutions {
		if err := model.Train(datasets[i], targets[i], epochs, DefaultLearningRate); err != nil {
			return errors.Wrapf(err, "institution %d", i)
		}
		preds := make([]float64, len(datasets[i]))
		for j, x := range datasets[i] {
			preds[j] = numeric.Sigmoid(model.ripple(x))
		}
		means[i] = stat.Mean(preds, nil)
	}

	f.globalScore = stat.Mean(means, nil)
	f.fitted = true
	return nil
}

// Predict ignores its argument and returns the cached consensus score.
func (f *FederatedCreditScoring) Predict(_ []float64) (float64, error) {
	if !f.fitted {
		return 0, errors.Wrap(models.ErrNotFitted, "federated credit scoring")
	}
	return f.globalScore, nil
}

// Snapshot copies every institution and the consensus score.
func (f *FederatedCreditScoring) Snapshot() FederatedState {
	state := FederatedState{
		Institutions: make([]FusionState, len(f.institutions)),
		GlobalScore:  f.globalScore,
		Fitted:       f.fitted,
	}
	for i, m := range f.institutions {
		state.Institutions[i] = m.Snapshot()
	}
	return state
}

// Restore replaces the ensemble state. The institution count must match.
func (f *FederatedCreditScoring) Restore(state FederatedState) error {
	if len(state.Institutions) != len(f.institutions) {
		return errors.Wrapf(models.ErrDimensionMismatch, "federated: expected %d institutions, got %d",
			len(f.institutions), len(state.Institutions))
	}
	for i, s := range state.Institutions {
		if err := numeric.CheckLen("federated weights", f.institutions[i].InputSize(), s.Weights); err != nil {
			return err
		}
	}
	for i, s := range state.Institutions {
		// Lengths were checked above, Restore cannot fail here.
		_ = f.institutions[i].Restore(s)
	}
	f.globalScore = state.GlobalScore
	f.fitted = state.Fitted
	return nil
}
