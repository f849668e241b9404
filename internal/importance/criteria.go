package importance

import (
	"fmt"
	"strings"

	"github.com/born-ml/born-prune/internal/autodiff"
	"github.com/born-ml/born-prune/internal/tensor"
)

// Criterion names an importance scoring strategy.
type Criterion string

// Supported criteria.
const (
	Magnitude         Criterion = "magnitude"
	AvgMagnitude      Criterion = "avg_magnitude"
	CosineSimilarity  Criterion = "cosine_similarity"
	TaylorFirstOrder  Criterion = "taylor_first_order"
	TaylorSecondOrder Criterion = "taylor_second_order"
)

// Criteria returns every supported criterion.
func Criteria() []Criterion {
	return []Criterion{Magnitude, AvgMagnitude, CosineSimilarity, TaylorFirstOrder, TaylorSecondOrder}
}

// criterionFunc produces one score per unit of the scorer's group.
type criterionFunc func(s *scorer) ([]float32, error)

// plainCriteria is the exact-match dispatch table of Engine.Compute.
var plainCriteria = map[Criterion]criterionFunc{
	Magnitude:         scoreMagnitude,
	AvgMagnitude:      scoreAvgMagnitude,
	CosineSimilarity:  scoreCosineSimilarity,
	TaylorFirstOrder:  scoreTaylorFirstOrder,
	TaylorSecondOrder: scoreTaylorSecondOrder,
}

// loraRule matches a requested name in Engine.ComputeLoRA.
type loraRule struct {
	criterion Criterion
	exact     bool // Otherwise substring containment
	global    bool // Reads through the LoRA base
	fn        criterionFunc
}

// loraRules is tried in order; the first match wins. avg_magnitude is an
// exact rule placed first on purpose: with substring matching alone it would
// be captured by the "magnitude" rule and scored as plain magnitude.
var loraRules = []loraRule{
	{criterion: AvgMagnitude, exact: true, fn: scoreAvgMagnitude},
	{criterion: Magnitude, fn: scoreMagnitude},
	{criterion: CosineSimilarity, global: true, fn: scoreCosineSimilarity},
	{criterion: TaylorFirstOrder, global: true, fn: scoreTaylorFirstOrder},
	{criterion: TaylorSecondOrder, global: true, fn: scoreTaylorSecondOrder},
}

func matchLoRA(name string) (loraRule, bool) {
	for _, r := range loraRules {
		if r.exact && name == string(r.criterion) {
			return r, true
		}
		if !r.exact && strings.Contains(name, string(r.criterion)) {
			return r, true
		}
	}
	return loraRule{}, false
}

// scorer carries one criterion evaluation over one group.
type scorer struct {
	g    *Group
	n    int // Units
	src  source
	tape *autodiff.GradientTape
}

// matrix reshapes t with the i-th transform and returns its row-major data
// and row length.
func (s *scorer) matrix(i int, t *tensor.RawTensor) ([]float32, int, error) {
	m, err := s.g.Transforms[i].Apply(t, s.tape)
	if err != nil {
		return nil, 0, &GroupError{Group: s.g.ID, Param: s.g.Params[i].Name(), Err: err}
	}
	shape := m.Shape()
	if shape[0] != s.n {
		return nil, 0, &GroupError{Group: s.g.ID, Param: s.g.Params[i].Name(), Err: fmt.Errorf(
			"%w: %d rows, expected %d", ErrUnitMismatch, shape[0], s.n)}
	}
	return m.AsFloat32(), shape[1], nil
}

// detach returns the accumulated scores as a freshly allocated vector.
func detach(acc []float64) []float32 {
	out := make([]float32, len(acc))
	for i, v := range acc {
		out[i] = float32(v)
	}
	return out
}
