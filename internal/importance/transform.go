package importance

import (
	"fmt"
	"strings"

	"github.com/born-ml/born-prune/internal/autodiff"
	"github.com/born-ml/born-prune/internal/tensor"
)

// TransformKind says along which axis a parameter tensor holds its units.
type TransformKind int

// Supported layouts.
const (
	// Basic puts units on axis 0: conv/linear output channels.
	Basic TransformKind = iota
	// Accessory is a 1-D tensor with one element per unit: bias, norm scale/shift.
	Accessory
	// Transpose puts units on axis 1: input channels of the consuming layer.
	Transpose
	// MultiHead splits axis 0 into Heads contiguous blocks, one per unit.
	MultiHead
)

// String returns the manifest spelling of the kind.
func (k TransformKind) String() string {
	switch k {
	case Basic:
		return "basic"
	case Accessory:
		return "accessory"
	case Transpose:
		return "transpose"
	case MultiHead:
		return "multihead"
	default:
		return "unknown"
	}
}

// ParseTransformKind parses the manifest spelling of a kind.
func ParseTransformKind(s string) (TransformKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "basic", "":
		return Basic, nil
	case "accessory":
		return Accessory, nil
	case "transpose":
		return Transpose, nil
	case "multihead", "multi_head":
		return MultiHead, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTransform, s)
	}
}

// Transform is the reshape descriptor of one tensor in a group: it maps the
// raw tensor onto a (units, unit_size) matrix.
type Transform struct {
	Kind  TransformKind
	Heads int // Only for MultiHead
}

// layout describes where element j of unit u lives in the flat tensor.
type layout struct {
	rows, cols int
	at         func(u, j int) int
}

func (tr Transform) layout(shape tensor.Shape) (layout, error) {
	switch tr.Kind {
	case Basic:
		if len(shape) < 1 {
			return layout{}, fmt.Errorf("%w: basic needs rank >= 1, got %v", ErrBadTransform, shape)
		}
		cols := shape.Tail(0)
		return layout{rows: shape[0], cols: cols, at: func(u, j int) int { return u*cols + j }}, nil

	case Accessory:
		if len(shape) != 1 {
			return layout{}, fmt.Errorf("%w: accessory needs rank 1, got %v", ErrBadTransform, shape)
		}
		return layout{rows: shape[0], cols: 1, at: func(u, _ int) int { return u }}, nil

	case Transpose:
		if len(shape) < 2 {
			return layout{}, fmt.Errorf("%w: transpose needs rank >= 2, got %v", ErrBadTransform, shape)
		}
		tail := shape.Tail(1)
		rowStride := shape[1] * tail
		// cols is zero whenever tail is, so at is never called with tail == 0.
		at := func(u, j int) int { return (j/tail)*rowStride + u*tail + j%tail }
		return layout{rows: shape[1], cols: shape[0] * tail, at: at}, nil

	case MultiHead:
		if len(shape) < 1 || tr.Heads <= 0 || shape[0]%tr.Heads != 0 {
			return layout{}, fmt.Errorf("%w: %d heads do not divide %v", ErrBadTransform, tr.Heads, shape)
		}
		cols := shape[0] / tr.Heads * shape.Tail(0)
		return layout{rows: tr.Heads, cols: cols, at: func(u, j int) int { return u*cols + j }}, nil

	default:
		return layout{}, fmt.Errorf("%w: %d", ErrUnknownTransform, tr.Kind)
	}
}

// Rows returns the number of units the transform yields for shape.
func (tr Transform) Rows(shape tensor.Shape) (int, error) {
	l, err := tr.layout(shape)
	if err != nil {
		return 0, err
	}
	return l.rows, nil
}

// Apply gathers t into a new (rows, cols) tensor. Only float32 tensors are
// accepted. The reshape is recorded on
// tape when it is recording.
func (tr Transform) Apply(t *tensor.RawTensor, tape *autodiff.GradientTape) (*tensor.RawTensor, error) {
	if err := tensor.RequireFloat32(t); err != nil {
		return nil, err
	}
	l, err := tr.layout(t.Shape())
	if err != nil {
		return nil, err
	}

	out, err := tensor.Zeros(tensor.Shape{l.rows, l.cols})
	if err != nil {
		return nil, err
	}
	src := t.AsFloat32()
	dst := out.AsFloat32()
	for u := 0; u < l.rows; u++ {
		row := dst[u*l.cols : (u+1)*l.cols]
		for j := range row {
			row[j] = src[l.at(u, j)]
		}
	}

	tape.Record(autodiff.NewOp("reshape", out, t))
	return out, nil
}

// ZeroUnit sets every element of unit u in t to zero.
func (tr Transform) ZeroUnit(t *tensor.RawTensor, u int) error {
	if err := tensor.RequireFloat32(t); err != nil {
		return err
	}
	l, err := tr.layout(t.Shape())
	if err != nil {
		return err
	}
	if u < 0 || u >= l.rows {
		return fmt.Errorf("unit %d out of range [0, %d)", u, l.rows)
	}
	data := t.AsFloat32()
	for j := 0; j < l.cols; j++ {
		data[l.at(u, j)] = 0
	}
	return nil
}
