// Package lending holds the loan-side components: the preference matrix
// recommender, term structuring, the keyword chatbot, the literacy game and
// frequency-based cross-selling.
package lending

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/mimir-aip/microfinance-go/pkg/models"
	"github.com/mimir-aip/microfinance-go/pkg/numeric"
)

const (
	DefaultUsers = 5
	DefaultItems = 5

	// TopItems caps both loan and cross-sell recommendations.
	TopItems = 3
)

// Rating is one (user, item, rating) observation.
type Rating struct {
	User   int     `json:"user"`
	Item   int     `json:"item"`
	Rating float64 `json:"rating"`
}

// LoanRecommender keeps a users x items rating matrix. Not safe for
// concurrent use.
type LoanRecommender struct {
	matrix [][]float64
}

// RecommenderState is the serializable rating matrix.
type RecommenderState struct {
	Matrix [][]float64 `json:"matrix"`
}

func NewLoanRecommender(users, items int) *LoanRecommender {
	matrix := make([][]float64, users)
	for i := range matrix {
		matrix[i] = make([]float64, items)
	}
	return &LoanRecommender{matrix: matrix}
}

func (r *LoanRecommender) checkUser(user int) error {
	if user < 0 || user >= len(r.matrix) {
		return errors.Wrapf(models.ErrOutOfRange, "user %d not in [0, %d)", user, len(r.matrix))
	}
	return nil
}

func (r *LoanRecommender) items() int {
	if len(r.matrix) == 0 {
		return 0
	}
	return len(r.matrix[0])
}

// Train overwrites one cell per rating. Every rating is checked before any
// cell changes.
func (r *LoanRecommender) Train(ratings []Rating) error {
	for _, rt := range ratings {
		if err := r.checkUser(rt.User); err != nil {
			return err
		}
		if rt.Item < 0 || rt.Item >= r.items() {
			return errors.Wrapf(models.ErrOutOfRange, "item %d not in [0, %d)", rt.Item, r.items())
		}
	}
	for _, rt := range ratings {
		r.matrix[rt.User][rt.Item] = rt.Rating
	}
	return nil
}

// Flow returns up to TopItems item indices for user, highest rating first,
// ties by ascending index.
func (r *LoanRecommender) Flow(user int) ([]int, error) {
	if err := r.checkUser(user); err != nil {
		return nil, err
	}
	row := r.matrix[user]
	idx := make([]int, len(row))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return row[idx[a]] > row[idx[b]]
	})
	if len(idx) > TopItems {
		idx = idx[:TopItems]
	}
	return idx, nil
}

func (r *LoanRecommender) Snapshot() RecommenderState {
	return RecommenderState{Matrix: numeric.CloneMatrix(r.matrix)}
}

func (r *LoanRecommender) Restore(state RecommenderState) error {
	if len(state.Matrix) != len(r.matrix) {
		return errors.Wrapf(models.ErrDimensionMismatch, "recommender: expected %d users, got %d", len(r.matrix), len(state.Matrix))
	}
	if err := numeric.CheckRows("recommender matrix", r.items(), state.Matrix); err != nil {
		return err
	}
	r.matrix = numeric.CloneMatrix(state.Matrix)
	return nil
}
