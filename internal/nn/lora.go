package nn

import (
	"fmt"

	"github.com/born-ml/born-prune/internal/tensor"
)

// LoRABase gives access to the frozen weight a low-rank adapter is applied to.
//
// Two layouts are supported:
//   - Down == nil: the adapter tensor is a materialized delta with the same
//     number of elements as Base, W = Base + Scale*delta.
//   - Down != nil: the adapter tensor is the up projection (out x r) and Down
//     is the down projection (r x in), W = Base + Scale*(Up @ Down).
type LoRABase struct {
	Base  *Parameter
	Down  *Parameter
	Scale float32 // Zero means 1
}

// GlobalParams maps an adapter parameter name to its frozen base.
type GlobalParams map[string]LoRABase

// Lookup returns the base registered for an adapter parameter.
func (g GlobalParams) Lookup(name string) (LoRABase, bool) {
	b, ok := g[name]
	if !ok || b.Base == nil {
		return LoRABase{}, false
	}
	return b, true
}

// LoRAScale returns the adapter scaling factor alpha/rank.
func LoRAScale(alpha float64, rank int) float32 {
	if rank <= 0 {
		return 0
	}
	return float32(alpha / float64(rank))
}

func (b LoRABase) scale() float32 {
	if b.Scale == 0 {
		return 1
	}
	return b.Scale
}

// Delta returns the adapter's contribution to the base weight, shaped like Base.
func (b LoRABase) Delta(adapter *tensor.RawTensor) (*tensor.RawTensor, error) {
	if err := b.requireFloat32(adapter); err != nil {
		return nil, err
	}
	base := b.Base.Tensor()
	if b.Down == nil {
		if adapter.NumElements() != base.NumElements() {
			return nil, fmt.Errorf("lora %s: delta %v does not match base %v",
				b.Base.Name(), adapter.Shape(), base.Shape())
		}
		delta := tensor.Scale(adapter, b.scale())
		return tensor.Reshape(delta, base.Shape())
	}

	up, err := b.asMatrix(adapter)
	if err != nil {
		return nil, err
	}
	prod, err := tensor.MatMul(up, b.Down.Tensor())
	if err != nil {
		return nil, fmt.Errorf("lora %s: %w", b.Base.Name(), err)
	}
	if prod.NumElements() != base.NumElements() {
		return nil, fmt.Errorf("lora %s: up@down %v does not match base %v",
			b.Base.Name(), prod.Shape(), base.Shape())
	}
	return tensor.Reshape(tensor.Scale(prod, b.scale()), base.Shape())
}

// Merge returns the effective weight Base + delta.
func (b LoRABase) Merge(adapter *tensor.RawTensor) (*tensor.RawTensor, error) {
	delta, err := b.Delta(adapter)
	if err != nil {
		return nil, err
	}
	return tensor.AddScaled(b.Base.Tensor(), delta, 1)
}

// LiftGrad maps an adapter gradient into the space of the effective weight.
//
// For a materialized delta this is exact: dL/dW = dL/ddelta / Scale.
// For a factored adapter it returns (dL/dUp @ Down) / Scale, the part of
// dL/dW lying in the adapter's row space when Down has orthonormal rows.
func (b LoRABase) LiftGrad(grad *tensor.RawTensor) (*tensor.RawTensor, error) {
	if err := b.requireFloat32(grad); err != nil {
		return nil, err
	}
	return b.lift(grad, b.Down, 1/b.scale())
}

// LiftCurvature maps a diagonal adapter curvature into weight space, using
// the element-wise square of Down and 1/Scale² as the chain-rule factors.
func (b LoRABase) LiftCurvature(h *tensor.RawTensor) (*tensor.RawTensor, error) {
	if err := b.requireFloat32(h); err != nil {
		return nil, err
	}
	s := b.scale()
	var down *Parameter
	if b.Down != nil {
		down = NewParameter(b.Down.Name(), tensor.Square(b.Down.Tensor()))
	}
	return b.lift(h, down, 1/(s*s))
}

func (b LoRABase) lift(t *tensor.RawTensor, down *Parameter, factor float32) (*tensor.RawTensor, error) {
	base := b.Base.Tensor()
	if down == nil {
		if t.NumElements() != base.NumElements() {
			return nil, fmt.Errorf("lora %s: statistic %v does not match base %v",
				b.Base.Name(), t.Shape(), base.Shape())
		}
		return tensor.Reshape(tensor.Scale(t, factor), base.Shape())
	}

	m, err := b.asMatrix(t)
	if err != nil {
		return nil, err
	}
	prod, err := tensor.MatMul(m, down.Tensor())
	if err != nil {
		return nil, fmt.Errorf("lora %s: %w", b.Base.Name(), err)
	}
	if prod.NumElements() != base.NumElements() {
		return nil, fmt.Errorf("lora %s: lifted %v does not match base %v",
			b.Base.Name(), prod.Shape(), base.Shape())
	}
	return tensor.Reshape(tensor.Scale(prod, factor), base.Shape())
}

// requireFloat32 checks t together with the base and down tensors.
func (b LoRABase) requireFloat32(t *tensor.RawTensor) error {
	var down *tensor.RawTensor
	if b.Down != nil {
		down = b.Down.Tensor()
	}
	if err := tensor.RequireFloat32(t, b.Base.Tensor(), down); err != nil {
		return fmt.Errorf("lora %s: %w", b.Base.Name(), err)
	}
	return nil
}

// asMatrix views an up-projection tensor as (out, rank) with rank taken from Down.
func (b LoRABase) asMatrix(t *tensor.RawTensor) (*tensor.RawTensor, error) {
	downShape := b.Down.Tensor().Shape()
	if len(downShape) != 2 {
		return nil, fmt.Errorf("lora %s: down projection must be 2D, got %v", b.Base.Name(), downShape)
	}
	rank := downShape[0]
	if rank == 0 || t.NumElements()%rank != 0 {
		return nil, fmt.Errorf("lora %s: up projection %v is not compatible with rank %d",
			b.Base.Name(), t.Shape(), rank)
	}
	return tensor.Reshape(t, tensor.Shape{t.NumElements() / rank, rank})
}
