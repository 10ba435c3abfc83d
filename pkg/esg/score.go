package esg

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/mimir-aip/microfinance-go/pkg/models"
	"github.com/mimir-aip/microfinance-go/pkg/numeric"
)

// DefaultCurveFactor is the exponent applied to every ESG factor.
const DefaultCurveFactor = 1.5

// Scorer maps ESG factors to (0, 1) through a power curve.
type Scorer struct {
	factor float64
}

func NewScorer() *Scorer {
	return &Scorer{factor: DefaultCurveFactor}
}

// Curve returns mean(f^factor). Negative factors yield NaN.
func (s *Scorer) Curve(factors []float64) (float64, error) {
	if len(factors) == 0 {
		return 0, errors.Wrap(models.ErrEmptyInput, "esg factors")
	}
	var sum float64
	for _, f := range factors {
		sum += math.Pow(f, s.factor)
	}
	return sum / float64(len(factors)), nil
}

// Score returns sigmoid(Curve(factors)).
func (s *Scorer) Score(factors []float64) (float64, error) {
	c, err := s.Curve(factors)
	if err != nil {
		return 0, err
	}
	return numeric.Sigmoid(c), nil
}

// PortfolioOptimizer trades an ESG score off against risk with a green
// factor fixed at construction.
type PortfolioOptimizer struct {
	greenFactor float64
}

// OptimizerState is the serializable green factor.
type OptimizerState struct {
	GreenFactor float64 `json:"green_factor"`
}

// NewPortfolioOptimizer draws the green factor from [0.5, 1.5).
func NewPortfolioOptimizer(rng *rand.Rand) *PortfolioOptimizer {
	return &PortfolioOptimizer{greenFactor: numeric.Uniform(rng, 0.5, 1.5)}
}

// Balance returns greenFactor*score - risk.
func (p *PortfolioOptimizer) Balance(score, risk float64) float64 {
	return p.greenFactor*score - risk
}

func (p *PortfolioOptimizer) Snapshot() OptimizerState {
	return OptimizerState{GreenFactor: p.greenFactor}
}

func (p *PortfolioOptimizer) Restore(state OptimizerState) error {
	p.greenFactor = state.GreenFactor
	return nil
}
