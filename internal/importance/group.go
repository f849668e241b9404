package importance

import (
	"fmt"

	"github.com/born-ml/born-prune/internal/nn"
	"github.com/born-ml/born-prune/internal/tensor"
)

// Group is a set of parameter tensors pruned together: removing unit u from
// one of them requires removing unit u from all of them.
//
// Groups are built once by the dependency resolver and then mutated in place
// by every scoring call. A group must not be scored concurrently.
type Group struct {
	ID             string
	Params         []*nn.Parameter
	Transforms     []Transform // One per param
	RedundantIdxes []int       // Units eligible for removal

	// ImportanceScores maps a criterion name to one score per unit. It is
	// replaced by an empty map at the start of every scoring call.
	ImportanceScores map[string][]float32
}

// NewGroup builds and validates a group. A nil redundant slice selects every unit.
func NewGroup(id string, params []*nn.Parameter, transforms []Transform, redundant []int) (*Group, error) {
	g := &Group{
		ID:               id,
		Params:           params,
		Transforms:       transforms,
		RedundantIdxes:   redundant,
		ImportanceScores: make(map[string][]float32),
	}

	if redundant == nil {
		n, err := g.rows()
		if err != nil {
			return nil, err
		}
		g.RedundantIdxes = make([]int, n)
		for i := range g.RedundantIdxes {
			g.RedundantIdxes[i] = i
		}
	}

	if _, err := g.NumUnits(); err != nil {
		return nil, err
	}
	return g, nil
}

// PNames returns the names of the group's tensors in order.
func (g *Group) PNames() []string {
	names := make([]string, len(g.Params))
	for i, p := range g.Params {
		names[i] = p.Name()
	}
	return names
}

// NumUnits validates the group and returns its number of prunable units.
// Redundant indices must be distinct and in range.
func (g *Group) NumUnits() (int, error) {
	n, err := g.rows()
	if err != nil {
		return 0, err
	}
	if n != len(g.RedundantIdxes) {
		return 0, &GroupError{Group: g.ID, Err: fmt.Errorf("%w: %d units but %d redundant indices",
			ErrUnitMismatch, n, len(g.RedundantIdxes))}
	}
	seen := make([]bool, n)
	for _, idx := range g.RedundantIdxes {
		if idx < 0 || idx >= n {
			return 0, &GroupError{Group: g.ID, Err: fmt.Errorf("%w: redundant index %d out of range [0, %d)",
				ErrUnitMismatch, idx, n)}
		}
		if seen[idx] {
			return 0, &GroupError{Group: g.ID, Err: fmt.Errorf("%w: redundant index %d repeated",
				ErrUnitMismatch, idx)}
		}
		seen[idx] = true
	}
	return n, nil
}

// rows checks that every transform yields the same row count and returns it.
func (g *Group) rows() (int, error) {
	if len(g.Params) == 0 {
		return 0, &GroupError{Group: g.ID, Err: ErrEmptyGroup}
	}
	if len(g.Params) != len(g.Transforms) {
		return 0, &GroupError{Group: g.ID, Err: fmt.Errorf("%w: %d params but %d transforms",
			ErrUnitMismatch, len(g.Params), len(g.Transforms))}
	}

	n := -1
	for i, p := range g.Params {
		if err := tensor.RequireFloat32(p.Tensor()); err != nil {
			return 0, &GroupError{Group: g.ID, Param: p.Name(), Err: err}
		}
		rows, err := g.Transforms[i].Rows(p.Tensor().Shape())
		if err != nil {
			return 0, &GroupError{Group: g.ID, Param: p.Name(), Err: err}
		}
		if n >= 0 && rows != n {
			return 0, &GroupError{Group: g.ID, Param: p.Name(), Err: fmt.Errorf("%w: %d rows, expected %d",
				ErrUnitMismatch, rows, n)}
		}
		n = rows
	}
	return n, nil
}

// Scores returns the stored score vector for a criterion.
func (g *Group) Scores(criterion string) ([]float32, bool) {
	s, ok := g.ImportanceScores[criterion]
	return s, ok
}
