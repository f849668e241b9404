// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the named parameters that importance criteria read.
//
// A Parameter carries its value together with the statistics collected for
// it: the accumulated gradient, a diagonal curvature estimate and a reference
// snapshot of the value.
//
// Low-rank adapters are described by GlobalParams, which maps each adapter
// parameter to the frozen weight it modifies:
//
//	global := nn.GlobalParams{
//	    "q.lora_B": {Base: qWeight, Down: qLoraA, Scale: nn.LoRAScale(16, 8)},
//	}
package nn

import "github.com/born-ml/born-prune/internal/nn"

// Parameter is a named tensor with its gradient statistics.
type Parameter = nn.Parameter

// NewParameter creates a parameter with no statistics attached.
func NewParameter(name string, t *RawTensor) *Parameter {
	return nn.NewParameter(name, t)
}

// LoRABase gives access to the frozen weight a low-rank adapter is applied to.
type LoRABase = nn.LoRABase

// GlobalParams maps an adapter parameter name to its frozen base.
type GlobalParams = nn.GlobalParams

// LoRAScale returns the adapter scaling factor alpha/rank.
func LoRAScale(alpha float64, rank int) float32 {
	return nn.LoRAScale(alpha, rank)
}
