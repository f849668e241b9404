// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides the gradient tape shared between a training loop
// and the importance engine.
//
// Scoring runs in no-grad mode: while an engine computes importance, nothing
// is recorded on the tape, and the tape's recording state is restored
// afterwards.
//
// Example:
//
//	tape := autodiff.NewGradientTape()
//	tape.StartRecording()
//	engine := importance.NewEngine(importance.WithTape(tape))
//	_ = engine.Compute([]string{"magnitude"}, group) // tape.Len() unchanged
package autodiff

import "github.com/born-ml/born-prune/internal/autodiff"

// GradientTape records operations for automatic differentiation.
type GradientTape = autodiff.GradientTape

// Operation is one recorded step on a GradientTape.
type Operation = autodiff.Operation

// NewGradientTape creates a tape that is not recording.
func NewGradientTape() *GradientTape {
	return autodiff.NewGradientTape()
}

// NoGrad runs fn with recording disabled on tape and restores the previous
// recording state when fn returns or panics. A nil tape is allowed.
func NoGrad(tape *GradientTape, fn func() error) error {
	return autodiff.NoGrad(tape, fn)
}
