// Package nn defines the parameter tensors that the pruning core reads.
package nn

import (
	"github.com/born-ml/born-prune/internal/tensor"
)

// Parameter represents a trainable parameter in a neural network.
//
// Besides its value, a parameter carries the statistics the training loop
// maintains for importance scoring:
//   - grad: gradient accumulated since the last pruning step
//   - curvature: diagonal curvature estimate (squared-gradient accumulator)
//   - reference: a snapshot of an earlier value, e.g. at initialization
//
// Any of them may be nil; criteria that need one fail when it is missing.
//
// Example:
//
//	weight := nn.NewParameter("conv1.weight", weightTensor)
//	weight.Snapshot()      // keep the initial value for cosine similarity
//	weight.SetGrad(grad)   // done by the training loop
type Parameter struct {
	name      string            // Parameter name (e.g., "conv1.weight")
	tensor    *tensor.RawTensor // The parameter tensor
	grad      *tensor.RawTensor // Accumulated gradient
	curvature *tensor.RawTensor // Diagonal curvature estimate
	reference *tensor.RawTensor // Snapshot compared against by cosine similarity
}

// NewParameter creates a new trainable parameter.
func NewParameter(name string, t *tensor.RawTensor) *Parameter {
	return &Parameter{
		name:   name,
		tensor: t,
	}
}

// Name returns the parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter) Tensor() *tensor.RawTensor {
	return p.tensor
}

// Grad returns the gradient tensor.
//
// Returns nil if no gradient has been accumulated yet.
func (p *Parameter) Grad() *tensor.RawTensor {
	return p.grad
}

// SetGrad sets the gradient tensor.
func (p *Parameter) SetGrad(grad *tensor.RawTensor) {
	p.grad = grad
}

// ZeroGrad clears the gradient and curvature tensors.
func (p *Parameter) ZeroGrad() {
	p.grad = nil
	p.curvature = nil
}

// Curvature returns the diagonal curvature estimate, or nil.
func (p *Parameter) Curvature() *tensor.RawTensor {
	return p.curvature
}

// SetCurvature sets the diagonal curvature estimate.
func (p *Parameter) SetCurvature(h *tensor.RawTensor) {
	p.curvature = h
}

// Reference returns the reference snapshot, or nil.
func (p *Parameter) Reference() *tensor.RawTensor {
	return p.reference
}

// SetReference sets the reference snapshot.
func (p *Parameter) SetReference(ref *tensor.RawTensor) {
	p.reference = ref
}

// Snapshot stores a copy of the current value as the reference.
func (p *Parameter) Snapshot() {
	p.reference = p.tensor.Clone()
}
