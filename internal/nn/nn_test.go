package nn

import (
	"testing"

	"github.com/born-ml/born-prune/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raw(t *testing.T, data []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.FromFloat32(data, shape)
	require.NoError(t, err)
	return r
}

func TestParameter_Accessors(t *testing.T) {
	p := NewParameter("fc.weight", raw(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2}))
	assert.Equal(t, "fc.weight", p.Name())
	assert.Nil(t, p.Grad())
	assert.Nil(t, p.Curvature())
	assert.Nil(t, p.Reference())

	p.SetGrad(raw(t, []float32{1, 1, 1, 1}, tensor.Shape{2, 2}))
	p.SetCurvature(raw(t, []float32{2, 2, 2, 2}, tensor.Shape{2, 2}))
	require.NotNil(t, p.Grad())
	require.NotNil(t, p.Curvature())

	p.ZeroGrad()
	assert.Nil(t, p.Grad())
	assert.Nil(t, p.Curvature())
}

func TestParameter_SnapshotIsIndependent(t *testing.T) {
	p := NewParameter("w", raw(t, []float32{1, 2}, tensor.Shape{2}))
	p.Snapshot()
	p.Tensor().AsFloat32()[0] = 9

	require.NotNil(t, p.Reference())
	assert.Equal(t, []float32{1, 2}, p.Reference().AsFloat32())
}

func TestLoRAScale(t *testing.T) {
	assert.InDelta(t, 2.0, LoRAScale(16, 8), 1e-6)
	assert.Zero(t, LoRAScale(16, 0))
}

func TestGlobalParams_Lookup(t *testing.T) {
	base := NewParameter("w", raw(t, []float32{1, 2}, tensor.Shape{2}))
	g := GlobalParams{
		"w.lora": {Base: base},
		"broken": {},
	}

	b, ok := g.Lookup("w.lora")
	require.True(t, ok)
	assert.Same(t, base, b.Base)

	_, ok = g.Lookup("broken")
	assert.False(t, ok)
	_, ok = g.Lookup("missing")
	assert.False(t, ok)
}

func TestLoRABase_MergeMaterialized(t *testing.T) {
	base := NewParameter("w", raw(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2}))
	b := LoRABase{Base: base}

	w, err := b.Merge(raw(t, []float32{1, 0, 0, 1}, tensor.Shape{2, 2}))
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 2, 3, 5}, w.AsFloat32())
	assert.Equal(t, tensor.Shape{2, 2}, w.Shape())

	_, err = b.Merge(raw(t, []float32{1}, tensor.Shape{1}))
	assert.Error(t, err)
}

func TestLoRABase_MergeFactored(t *testing.T) {
	// Base 2x3, Up 2x1, Down 1x3, scale 2.
	base := NewParameter("w", raw(t, []float32{0, 0, 0, 1, 1, 1}, tensor.Shape{2, 3}))
	down := NewParameter("w.lora_A", raw(t, []float32{1, 2, 3}, tensor.Shape{1, 3}))
	b := LoRABase{Base: base, Down: down, Scale: 2}

	w, err := b.Merge(raw(t, []float32{1, 0}, tensor.Shape{2, 1}))
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 4, 6, 1, 1, 1}, w.AsFloat32())
}

func TestLoRABase_LiftGrad(t *testing.T) {
	base := NewParameter("w", raw(t, []float32{0, 0, 0, 0, 0, 0}, tensor.Shape{2, 3}))
	down := NewParameter("w.lora_A", raw(t, []float32{1, 0, 0}, tensor.Shape{1, 3}))
	b := LoRABase{Base: base, Down: down, Scale: 2}

	g, err := b.LiftGrad(raw(t, []float32{4, -2}, tensor.Shape{2, 1}))
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 0, 0, -1, 0, 0}, g.AsFloat32())

	h, err := b.LiftCurvature(raw(t, []float32{4, 8}, tensor.Shape{2, 1}))
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0, 2, 0, 0}, h.AsFloat32())
}

func TestLoRABase_LiftMaterialized(t *testing.T) {
	base := NewParameter("w", raw(t, []float32{0, 0}, tensor.Shape{2}))
	b := LoRABase{Base: base}

	g, err := b.LiftGrad(raw(t, []float32{3, 4}, tensor.Shape{2}))
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 4}, g.AsFloat32())

	_, err = b.LiftGrad(raw(t, []float32{3}, tensor.Shape{1}))
	assert.Error(t, err)
}

func TestLoRABase_BadRank(t *testing.T) {
	base := NewParameter("w", raw(t, []float32{0, 0, 0, 0}, tensor.Shape{2, 2}))
	down := NewParameter("w.lora_A", raw(t, []float32{1, 1, 1, 1}, tensor.Shape{2, 2}))
	b := LoRABase{Base: base, Down: down}

	_, err := b.Merge(raw(t, []float32{1, 2, 3}, tensor.Shape{3}))
	assert.Error(t, err)
}

func TestLoRABase_RejectsFloat64(t *testing.T) {
	base64, err := tensor.NewRaw(tensor.Shape{2, 2}, tensor.Float64, tensor.CPU)
	require.NoError(t, err)
	b := LoRABase{Base: NewParameter("w", base64)}
	delta := raw(t, []float32{1, 0, 0, 1}, tensor.Shape{2, 2})

	assert.NotPanics(t, func() {
		_, err = b.Merge(delta)
	})
	assert.ErrorIs(t, err, tensor.ErrUnsupportedDType)

	_, err = b.LiftCurvature(delta)
	assert.ErrorIs(t, err, tensor.ErrUnsupportedDType)

	b = LoRABase{Base: NewParameter("w", raw(t, make([]float32, 4), tensor.Shape{2, 2}))}
	_, err = b.LiftGrad(base64)
	assert.ErrorIs(t, err, tensor.ErrUnsupportedDType)
}
