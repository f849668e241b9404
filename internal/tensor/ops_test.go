package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustFloat32(t *testing.T, data []float32, shape Shape) *RawTensor {
	t.Helper()
	raw, err := FromFloat32(data, shape)
	require.NoError(t, err)
	return raw
}

func TestMatMul(t *testing.T) {
	a := mustFloat32(t, []float32{1, 2, 3, 4}, Shape{2, 2})
	b := mustFloat32(t, []float32{5, 6, 7, 8}, Shape{2, 2})

	c, err := MatMul(a, b)
	require.NoError(t, err)
	assert.Equal(t, Shape{2, 2}, c.Shape())
	assert.Equal(t, []float32{19, 22, 43, 50}, c.AsFloat32())
}

func TestMatMul_ShapeMismatch(t *testing.T) {
	a := mustFloat32(t, []float32{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	b := mustFloat32(t, []float32{1, 2, 3, 4}, Shape{2, 2})

	_, err := MatMul(a, b)
	assert.Error(t, err)

	_, err = MatMul(mustFloat32(t, []float32{1}, Shape{1}), b)
	assert.Error(t, err)
}

func TestAddScaled(t *testing.T) {
	a := mustFloat32(t, []float32{1, 2}, Shape{2})
	b := mustFloat32(t, []float32{10, 20}, Shape{1, 2})

	c, err := AddScaled(a, b, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []float32{6, 12}, c.AsFloat32())
	assert.Equal(t, Shape{2}, c.Shape())
	assert.Equal(t, []float32{1, 2}, a.AsFloat32(), "inputs untouched")

	_, err = AddScaled(a, mustFloat32(t, []float32{1}, Shape{1}), 1)
	assert.Error(t, err)
}

func TestScaleAndSquare(t *testing.T) {
	a := mustFloat32(t, []float32{-1, 2, 3}, Shape{3})
	assert.Equal(t, []float32{-2, 4, 6}, Scale(a, 2).AsFloat32())
	assert.Equal(t, []float32{1, 4, 9}, Square(a).AsFloat32())
}

func TestReshape(t *testing.T) {
	a := mustFloat32(t, []float32{1, 2, 3, 4, 5, 6}, Shape{2, 3})

	r, err := Reshape(a, Shape{3, 2})
	require.NoError(t, err)
	assert.Equal(t, Shape{3, 2}, r.Shape())
	assert.Equal(t, []int{2, 1}, r.Strides())

	_, err = Reshape(a, Shape{4})
	assert.Error(t, err)
}

func TestOps_RejectFloat64(t *testing.T) {
	f32, err := FromFloat32([]float32{1, 2, 3, 4}, Shape{2, 2})
	require.NoError(t, err)
	f64, err := NewRaw(Shape{2, 2}, Float64, CPU)
	require.NoError(t, err)

	_, err = MatMul(f32, f64)
	assert.ErrorIs(t, err, ErrUnsupportedDType)

	_, err = AddScaled(f64, f32, 1)
	assert.ErrorIs(t, err, ErrUnsupportedDType)

	assert.NoError(t, RequireFloat32(f32, nil))
	assert.ErrorIs(t, RequireFloat32(f32, f64), ErrUnsupportedDType)
}
