// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package importance scores the prunable units of parameter groups.
//
// # Overview
//
// A group ties together tensors that lose the same unit at once: a conv's
// output channel, the matching norm scale and bias, and the matching input
// channel of the next conv. Each tensor gets a Transform telling which axis
// holds its units. The Engine computes one score per unit for every
// requested criterion and stores the vectors in Group.ImportanceScores.
//
// # Criteria
//
//   - magnitude: sum over tensors of the L2 norm of each unit
//   - avg_magnitude: the same, each norm divided by the unit size
//   - cosine_similarity: mean cosine between the unit and its reference snapshot
//   - taylor_first_order: |sum(w*g)| per tensor, summed over tensors
//   - taylor_second_order: |sum(-g*w + h*w*w/2)| per tensor, summed over tensors
//
// # Basic Usage
//
//	g, err := importance.NewGroup("conv1",
//	    []*nn.Parameter{conv1W, bn1W, conv2W},
//	    []importance.Transform{{Kind: importance.Basic}, {Kind: importance.Accessory}, {Kind: importance.Transpose}},
//	    nil)
//	if err != nil {
//	    return err
//	}
//	engine := importance.NewEngine(importance.WithTape(tape))
//	if err := engine.Compute([]string{"magnitude", "taylor_first_order"}, g); err != nil {
//	    return err
//	}
//	scores := g.ImportanceScores["magnitude"]
//
// # LoRA
//
// ComputeLoRA scores groups made of adapter tensors. Cosine similarity and
// the Taylor criteria see the effective weight base+delta through the
// GlobalParams binding; the magnitude criteria only see the adapters.
package importance

import (
	"log/slog"

	"github.com/born-ml/born-prune/internal/autodiff"
	"github.com/born-ml/born-prune/internal/importance"
	"github.com/born-ml/born-prune/internal/nn"
)

// Group is a set of parameter tensors pruned together.
type Group = importance.Group

// NewGroup builds and validates a group. A nil redundant slice selects every unit.
func NewGroup(id string, params []*nn.Parameter, transforms []Transform, redundant []int) (*Group, error) {
	return importance.NewGroup(id, params, transforms, redundant)
}

// Transform maps a raw tensor onto a (units, unit_size) matrix.
type Transform = importance.Transform

// TransformKind says along which axis a tensor holds its units.
type TransformKind = importance.TransformKind

// Supported layouts.
const (
	Basic     = importance.Basic
	Accessory = importance.Accessory
	Transpose = importance.Transpose
	MultiHead = importance.MultiHead
)

// ParseTransformKind parses the manifest spelling of a kind.
func ParseTransformKind(s string) (TransformKind, error) {
	return importance.ParseTransformKind(s)
}

// Criterion names an importance scoring strategy.
type Criterion = importance.Criterion

// Supported criteria.
const (
	Magnitude         = importance.Magnitude
	AvgMagnitude      = importance.AvgMagnitude
	CosineSimilarity  = importance.CosineSimilarity
	TaylorFirstOrder  = importance.TaylorFirstOrder
	TaylorSecondOrder = importance.TaylorSecondOrder
)

// Criteria returns every supported criterion.
func Criteria() []Criterion {
	return importance.Criteria()
}

// Engine dispatches criteria over groups.
type Engine = importance.Engine

// Option configures an Engine.
type Option = importance.Option

// NewEngine creates a new Engine.
//
// Example:
//
//	engine := importance.NewEngine(
//	    importance.WithTape(tape),
//	    importance.WithLogger(slog.Default()),
//	)
func NewEngine(opts ...Option) *Engine {
	return importance.NewEngine(opts...)
}

// WithTape sets the gradient tape shared with the training loop.
func WithTape(tape *autodiff.GradientTape) Option {
	return importance.WithTape(tape)
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return importance.WithLogger(logger)
}
