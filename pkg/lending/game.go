package lending

import (
	"math"
	"math/rand"

	"github.com/mimir-aip/microfinance-go/pkg/numeric"
)

// LiteracyGame hands out random rewards scaled by the size of the action.
type LiteracyGame struct {
	score float64
	rng   *rand.Rand
}

// GameState is the serializable running score.
type GameState struct {
	Score float64 `json:"score"`
}

func NewLiteracyGame(rng *rand.Rand) *LiteracyGame {
	return &LiteracyGame{rng: rng}
}

// Play returns U(-5, 5)*(1+|action|) and adds it to the running score.
func (g *LiteracyGame) Play(action float64) float64 {
	reward := numeric.Uniform(g.rng, -5, 5) * (1 + math.Abs(action))
	g.score += reward
	return reward
}

func (g *LiteracyGame) Score() float64 { return g.score }

func (g *LiteracyGame) Snapshot() GameState {
	return GameState{Score: g.score}
}

func (g *LiteracyGame) Restore(state GameState) error {
	g.score = state.Score
	return nil
}
