// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package prune turns importance scores into pruning decisions.
//
// Example:
//
//	combined, err := prune.Combine(g, map[string]float64{"magnitude": 1, "taylor_first_order": 0.5})
//	if err != nil {
//	    return err
//	}
//	units, err := prune.SelectRedundant(g, combined, 0.25)
//	if err != nil {
//	    return err
//	}
//	err = prune.ZeroUnits(g, units)
package prune

import (
	"github.com/born-ml/born-prune/internal/importance"
	"github.com/born-ml/born-prune/internal/prune"
)

// Errors returned by this package.
var (
	ErrMissingScore = prune.ErrMissingScore
	ErrNoWeights    = prune.ErrNoWeights
	ErrBadRatio     = prune.ErrBadRatio
)

// Combine merges the group's score vectors, each normalized by its largest
// absolute value and multiplied by its weight.
func Combine(g *importance.Group, weights map[string]float64) ([]float64, error) {
	return prune.Combine(g, weights)
}

// SelectRedundant returns the floor(ratio*len(RedundantIdxes)) redundant
// units with the lowest scores, sorted ascending.
func SelectRedundant(g *importance.Group, scores []float64, ratio float64) ([]int, error) {
	return prune.SelectRedundant(g, scores, ratio)
}

// ZeroUnits zeroes the given units in every tensor of the group.
func ZeroUnits(g *importance.Group, units []int) error {
	return prune.ZeroUnits(g, units)
}
