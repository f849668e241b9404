package importance

import (
	"testing"

	"github.com/born-ml/born-prune/internal/autodiff"
	"github.com/born-ml/born-prune/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func arange(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i)
	}
	return out
}

func TestTransform_Basic(t *testing.T) {
	w := raw(t, arange(12), tensor.Shape{2, 3, 2})
	m, err := Transform{Kind: Basic}.Apply(w, nil)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 6}, m.Shape())
	assert.Equal(t, arange(12), m.AsFloat32())
}

func TestTransform_Transpose(t *testing.T) {
	// (out=2, in=3, k=2): unit u collects w[:, u, :].
	w := raw(t, arange(12), tensor.Shape{2, 3, 2})
	m, err := Transform{Kind: Transpose}.Apply(w, nil)
	require.NoError(t, err)
	require.Equal(t, tensor.Shape{3, 4}, m.Shape())
	assert.Equal(t, []float32{
		0, 1, 6, 7,
		2, 3, 8, 9,
		4, 5, 10, 11,
	}, m.AsFloat32())
}

func TestTransform_MultiHead(t *testing.T) {
	w := raw(t, arange(8), tensor.Shape{4, 2})
	m, err := Transform{Kind: MultiHead, Heads: 2}.Apply(w, nil)
	require.NoError(t, err)
	require.Equal(t, tensor.Shape{2, 4}, m.Shape())
	assert.Equal(t, arange(8), m.AsFloat32())

	_, err = Transform{Kind: MultiHead, Heads: 3}.Apply(w, nil)
	assert.ErrorIs(t, err, ErrBadTransform)
	_, err = Transform{Kind: MultiHead}.Rows(w.Shape())
	assert.ErrorIs(t, err, ErrBadTransform)
}

func TestTransform_Accessory(t *testing.T) {
	w := raw(t, []float32{5, 6, 7}, tensor.Shape{3})
	m, err := Transform{Kind: Accessory}.Apply(w, nil)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 1}, m.Shape())

	_, err = Transform{Kind: Accessory}.Rows(tensor.Shape{3, 1})
	assert.ErrorIs(t, err, ErrBadTransform)
}

func TestTransform_Errors(t *testing.T) {
	_, err := Transform{Kind: Transpose}.Rows(tensor.Shape{3})
	assert.ErrorIs(t, err, ErrBadTransform)

	_, err = Transform{Kind: Basic}.Rows(tensor.Shape{})
	assert.ErrorIs(t, err, ErrBadTransform)

	_, err = Transform{Kind: TransformKind(42)}.Rows(tensor.Shape{3})
	assert.ErrorIs(t, err, ErrUnknownTransform)
}

func TestTransform_RecordsWhenTapeRecording(t *testing.T) {
	tape := autodiff.NewGradientTape()
	tape.StartRecording()
	w := raw(t, arange(4), tensor.Shape{2, 2})

	_, err := Transform{Kind: Basic}.Apply(w, tape)
	require.NoError(t, err)
	require.Equal(t, 1, tape.Len())
	assert.Equal(t, "reshape", tape.Operations()[0].Kind())
	assert.Same(t, w, tape.Operations()[0].Inputs()[0])
}

func TestTransform_ZeroUnit(t *testing.T) {
	w := raw(t, arange(12), tensor.Shape{2, 3, 2})
	require.NoError(t, Transform{Kind: Transpose}.ZeroUnit(w, 1))
	assert.Equal(t, []float32{0, 1, 0, 0, 4, 5, 6, 7, 0, 0, 10, 11}, w.AsFloat32())

	assert.Error(t, Transform{Kind: Transpose}.ZeroUnit(w, 3))
}

func TestTransform_RejectsFloat64(t *testing.T) {
	w, err := tensor.NewRaw(tensor.Shape{2, 2}, tensor.Float64, tensor.CPU)
	require.NoError(t, err)

	_, err = Transform{Kind: Basic}.Apply(w, nil)
	assert.ErrorIs(t, err, ErrUnsupportedDType)
	assert.ErrorIs(t, Transform{Kind: Basic}.ZeroUnit(w, 0), ErrUnsupportedDType)
}

func TestParseTransformKind(t *testing.T) {
	tests := []struct {
		in   string
		want TransformKind
	}{
		{"basic", Basic},
		{"", Basic},
		{"Accessory", Accessory},
		{" transpose ", Transpose},
		{"multi_head", MultiHead},
	}
	for _, tt := range tests {
		got, err := ParseTransformKind(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
		if tt.in == "basic" {
			assert.Equal(t, "basic", got.String())
		}
	}

	_, err := ParseTransformKind("diagonal")
	assert.ErrorIs(t, err, ErrUnknownTransform)
}
