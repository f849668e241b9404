// Package prune turns stored importance scores into pruning decisions:
// combine per-criterion vectors, pick the least important redundant units
// and zero them across every tensor of their group.
package prune

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/born-ml/born-prune/internal/importance"
	"github.com/born-ml/born-prune/internal/tensor"
)

// Common errors.
var (
	ErrMissingScore = errors.New("criterion has no stored score")
	ErrNoWeights    = errors.New("no criterion weights")
	ErrBadRatio     = errors.New("ratio must be in [0, 1]")
)

// Combine merges the group's score vectors into one.
//
// Each vector is divided by its largest absolute value so that criteria on
// different scales can be mixed, multiplied by its weight and summed.
// All-zero vectors are left unscaled. NaN scores do not take part in the
// scaling and stay NaN in the result.
func Combine(g *importance.Group, weights map[string]float64) ([]float64, error) {
	if len(weights) == 0 {
		return nil, ErrNoWeights
	}
	n, err := g.NumUnits()
	if err != nil {
		return nil, err
	}

	// Sorted iteration keeps the float sum independent of map order.
	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	sort.Strings(names)

	combined := make([]float64, n)
	for _, name := range names {
		scores, ok := g.Scores(name)
		if !ok {
			return nil, fmt.Errorf("group %q: %w: %s", g.ID, ErrMissingScore, name)
		}
		if len(scores) != n {
			return nil, fmt.Errorf("group %q: %w: %s has %d scores for %d units",
				g.ID, importance.ErrUnitMismatch, name, len(scores), n)
		}

		var peak float64
		for _, s := range scores {
			if !math.IsNaN(float64(s)) {
				peak = math.Max(peak, math.Abs(float64(s)))
			}
		}
		if peak == 0 {
			peak = 1
		}
		w := weights[name]
		for u, s := range scores {
			combined[u] += w * float64(s) / peak
		}
	}
	return combined, nil
}

// SelectRedundant returns the floor(ratio*len(RedundantIdxes)) redundant
// units with the lowest scores, ties broken by lower unit index, sorted
// ascending. NaN scores rank after every number, so such units are picked last.
func SelectRedundant(g *importance.Group, scores []float64, ratio float64) ([]int, error) {
	if ratio < 0 || ratio > 1 || math.IsNaN(ratio) {
		return nil, fmt.Errorf("%w: %v", ErrBadRatio, ratio)
	}
	n, err := g.NumUnits()
	if err != nil {
		return nil, err
	}
	if len(scores) != n {
		return nil, fmt.Errorf("group %q: %w: %d scores for %d units",
			g.ID, importance.ErrUnitMismatch, len(scores), n)
	}

	candidates := append([]int(nil), g.RedundantIdxes...)
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		sa, sb := scores[a], scores[b]
		if nanA, nanB := math.IsNaN(sa), math.IsNaN(sb); nanA || nanB {
			if nanA != nanB {
				return nanB
			}
			return a < b
		}
		if sa != sb {
			return sa < sb
		}
		return a < b
	})

	k := int(math.Floor(ratio * float64(len(candidates))))
	picked := candidates[:k]
	sort.Ints(picked)
	return picked, nil
}

// ZeroUnits zeroes every element of the given units in every tensor of the
// group, and in their gradients when present, so the remaining units compute
// exactly what they computed before. Nothing is modified when a tensor or
// gradient is not float32.
func ZeroUnits(g *importance.Group, units []int) error {
	if _, err := g.NumUnits(); err != nil {
		return err
	}
	for _, p := range g.Params {
		if err := tensor.RequireFloat32(p.Grad()); err != nil {
			return fmt.Errorf("group %q param %q grad: %w", g.ID, p.Name(), err)
		}
	}
	for i, p := range g.Params {
		tr := g.Transforms[i]
		for _, u := range units {
			if err := tr.ZeroUnit(p.Tensor(), u); err != nil {
				return fmt.Errorf("group %q param %q: %w", g.ID, p.Name(), err)
			}
			if grad := p.Grad(); grad != nil {
				if err := tr.ZeroUnit(grad, u); err != nil {
					return fmt.Errorf("group %q param %q grad: %w", g.ID, p.Name(), err)
				}
			}
		}
	}
	return nil
}
