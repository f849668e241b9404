// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package importance

import "github.com/born-ml/born-prune/internal/importance"

// GroupError provides detailed information about a scoring failure.
type GroupError = importance.GroupError

// Scoring errors, matched with errors.Is.
var (
	ErrNoCriteria       = importance.ErrNoCriteria
	ErrEmptyGroup       = importance.ErrEmptyGroup
	ErrUnitMismatch     = importance.ErrUnitMismatch
	ErrUnknownTransform = importance.ErrUnknownTransform
	ErrBadTransform     = importance.ErrBadTransform
	ErrMissingGradient  = importance.ErrMissingGradient
	ErrMissingCurvature = importance.ErrMissingCurvature
	ErrMissingReference = importance.ErrMissingReference
	ErrShapeMismatch    = importance.ErrShapeMismatch
	ErrUnsupportedDType = importance.ErrUnsupportedDType
)
