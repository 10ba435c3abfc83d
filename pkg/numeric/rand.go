package numeric

import (
	"math/rand"
	"time"
)

// NewRand returns a generator seeded with seed, or with the wall clock when
// seed is zero.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
