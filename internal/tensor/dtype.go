// Package tensor provides the host-side tensor storage used by the pruning core.
package tensor

import (
	"errors"
	"fmt"
)

// ErrUnsupportedDType is returned by operations that only handle float32 data.
var ErrUnsupportedDType = errors.New("unsupported dtype")

// DataType represents runtime type information for tensors.
type DataType int

// Supported data types for tensors.
const (
	Float32 DataType = iota
	Float64
)

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float32:
		return 4
	case Float64:
		return 8
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return "unknown"
	}
}

// RequireFloat32 returns an error wrapping ErrUnsupportedDType unless every
// tensor holds float32 data. Nil tensors are skipped.
func RequireFloat32(ts ...*RawTensor) error {
	for _, t := range ts {
		if t != nil && t.DType() != Float32 {
			return fmt.Errorf("%w: %s, expected float32", ErrUnsupportedDType, t.DType())
		}
	}
	return nil
}
