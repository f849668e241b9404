package importance

import (
	"errors"
	"fmt"

	"github.com/born-ml/born-prune/internal/tensor"
)

// Common errors.
var (
	ErrNoCriteria       = errors.New("no criteria requested")
	ErrEmptyGroup       = errors.New("group has no parameters")
	ErrUnitMismatch     = errors.New("unit count mismatch across group tensors")
	ErrUnknownTransform = errors.New("unknown tensor transform")
	ErrBadTransform     = errors.New("transform does not fit tensor shape")
	ErrMissingGradient  = errors.New("gradient not populated")
	ErrMissingCurvature = errors.New("curvature not populated")
	ErrMissingReference = errors.New("reference snapshot not populated")
	ErrShapeMismatch    = errors.New("statistic shape does not match parameter")
	ErrUnsupportedDType = tensor.ErrUnsupportedDType
)

// GroupError provides detailed information about a scoring failure.
type GroupError struct {
	Group     string // Group ID
	Param     string // Parameter name, empty when the failure is group-wide
	Criterion string // Criterion being computed, empty during validation
	Err       error
}

// Error implements the error interface.
func (e *GroupError) Error() string {
	prefix := fmt.Sprintf("group %q", e.Group)
	if e.Criterion != "" {
		prefix += fmt.Sprintf(" criterion %q", e.Criterion)
	}
	if e.Param != "" {
		prefix += fmt.Sprintf(" param %q", e.Param)
	}
	return prefix + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *GroupError) Unwrap() error {
	return e.Err
}
