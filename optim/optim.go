// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim collects the gradient statistics that the Taylor importance
// criteria read.
//
// Example:
//
//	acc := optim.NewAccumulator(params, optim.AccumulatorConfig{Beta: 0.999})
//	for _, grads := range steps {
//	    if err := acc.Accumulate(grads); err != nil {
//	        return err
//	    }
//	}
//	err := engine.Compute([]string{"taylor_second_order"}, group)
package optim

import (
	"github.com/born-ml/born-prune/internal/nn"
	"github.com/born-ml/born-prune/internal/optim"
)

// Accumulator sums gradients and tracks their squared moving average.
type Accumulator = optim.Accumulator

// AccumulatorConfig holds configuration for Accumulator.
type AccumulatorConfig = optim.AccumulatorConfig

// NewAccumulator creates a new Accumulator over params.
func NewAccumulator(params []*nn.Parameter, config AccumulatorConfig) *Accumulator {
	return optim.NewAccumulator(params, config)
}
