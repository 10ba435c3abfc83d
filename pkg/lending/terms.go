package lending

import (
	"math/rand"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/mimir-aip/microfinance-go/pkg/models"
	"github.com/mimir-aip/microfinance-go/pkg/numeric"
)

// Terms is a structured loan offer.
type Terms struct {
	Amount float64 `json:"amount"`
	Rate   float64 `json:"rate"`
}

// AmountDecimal returns the amount rounded to cents.
func (t Terms) AmountDecimal() decimal.Decimal {
	return decimal.NewFromFloat(t.Amount).Round(2)
}

// LoanStructurer scales credit scores into loan amounts.
type LoanStructurer struct {
	scale float64
}

// StructurerState is the serializable scale.
type StructurerState struct {
	Scale float64 `json:"scale"`
}

// NewLoanStructurer draws the scale from [0.5, 1.5).
func NewLoanStructurer(rng *rand.Rand) *LoanStructurer {
	return &LoanStructurer{scale: numeric.Uniform(rng, 0.5, 1.5)}
}

// Terms returns amount = scale*score*1000 and rate = score/(risk+1).
func (s *LoanStructurer) Terms(score, risk float64) (Terms, error) {
	if risk == -1 {
		return Terms{}, errors.Wrap(models.ErrInvalidArgument, "risk of -1 makes the rate undefined")
	}
	return Terms{
		Amount: s.scale * score * 1000,
		Rate:   score / (risk + 1),
	}, nil
}

func (s *LoanStructurer) Snapshot() StructurerState {
	return StructurerState{Scale: s.scale}
}

func (s *LoanStructurer) Restore(state StructurerState) error {
	s.scale = state.Scale
	return nil
}
