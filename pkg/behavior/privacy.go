package behavior

import (
	"math"
	"math/rand"

	"github.com/mimir-aip/microfinance-go/pkg/numeric"
)

// DefaultStrength is the default half-width of the veil noise.
const DefaultStrength = 1.0

// EthicalAI obfuscates feature vectors with independent uniform noise.
type EthicalAI struct {
	strength float64
	rng      *rand.Rand
}

func NewEthicalAI(strength float64, rng *rand.Rand) *EthicalAI {
	return &EthicalAI{strength: math.Abs(strength), rng: rng}
}

// Strength returns the noise half-width.
func (e *EthicalAI) Strength() float64 {
	return e.strength
}

// Veil returns a new slice with noise in [-strength, strength] added to
// every element. data is not modified.
func (e *EthicalAI) Veil(data []float64) []float64 {
	out := make([]float64, len(data))
	for i, d := range data {
		out[i] = d + numeric.Uniform(e.rng, -e.strength, e.strength)
	}
	return out
}

// Prospect theory defaults.
const (
	DefaultAlpha  = 0.88
	DefaultBeta   = 0.88
	DefaultLambda = 2.25
)

// Utility is the piecewise prospect-theory value: x^alpha for gains and
// -lambda*(-x)^beta for losses. The loss branch always raises a positive
// base, so fractional exponents stay real.
func Utility(x, alpha, beta, lambda float64) float64 {
	if x >= 0 {
		return math.Pow(x, alpha)
	}
	return -lambda * math.Pow(-x, beta)
}

// DefaultUtility applies Utility with the default parameters.
func DefaultUtility(x float64) float64 {
	return Utility(x, DefaultAlpha, DefaultBeta, DefaultLambda)
}
