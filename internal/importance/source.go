package importance

import (
	"fmt"

	"github.com/born-ml/born-prune/internal/autodiff"
	"github.com/born-ml/born-prune/internal/nn"
	"github.com/born-ml/born-prune/internal/tensor"
)

// source resolves the tensors a criterion reads for the i-th group parameter.
type source interface {
	weight(i int) (*tensor.RawTensor, error)
	reference(i int) (*tensor.RawTensor, error)
	grad(i int) (*tensor.RawTensor, error)
	curvature(i int) (*tensor.RawTensor, error)
}

// plainSource reads everything straight off the group's parameters.
type plainSource struct {
	g *Group
}

func (s plainSource) weight(i int) (*tensor.RawTensor, error) {
	return s.g.Params[i].Tensor(), nil
}

func (s plainSource) reference(i int) (*tensor.RawTensor, error) {
	return s.statistic(i, s.g.Params[i].Reference(), ErrMissingReference)
}

func (s plainSource) grad(i int) (*tensor.RawTensor, error) {
	return s.statistic(i, s.g.Params[i].Grad(), ErrMissingGradient)
}

func (s plainSource) curvature(i int) (*tensor.RawTensor, error) {
	return s.statistic(i, s.g.Params[i].Curvature(), ErrMissingCurvature)
}

func (s plainSource) statistic(i int, t *tensor.RawTensor, missing error) (*tensor.RawTensor, error) {
	p := s.g.Params[i]
	if t == nil {
		return nil, &GroupError{Group: s.g.ID, Param: p.Name(), Err: missing}
	}
	if err := tensor.RequireFloat32(t); err != nil {
		return nil, &GroupError{Group: s.g.ID, Param: p.Name(), Err: err}
	}
	if !t.Shape().Equal(p.Tensor().Shape()) {
		return nil, &GroupError{Group: s.g.ID, Param: p.Name(), Err: fmt.Errorf("%w: %v vs %v",
			ErrShapeMismatch, t.Shape(), p.Tensor().Shape())}
	}
	return t, nil
}

// loraSource redirects weight lookups through the frozen base: the effective
// weight of an adapter unit is base plus delta, and the reference for cosine
// similarity is the base itself. Parameters without a base fall back to the
// plain lookups.
type loraSource struct {
	plain  plainSource
	global nn.GlobalParams
	tape   *autodiff.GradientTape
}

func (s loraSource) weight(i int) (*tensor.RawTensor, error) {
	p := s.plain.g.Params[i]
	b, ok := s.global.Lookup(p.Name())
	if !ok {
		return s.plain.weight(i)
	}
	w, err := b.Merge(p.Tensor())
	if err != nil {
		return nil, s.wrap(p, err)
	}
	s.tape.Record(autodiff.NewOp("lora_merge", w, b.Base.Tensor(), p.Tensor()))
	return w, nil
}

func (s loraSource) reference(i int) (*tensor.RawTensor, error) {
	p := s.plain.g.Params[i]
	b, ok := s.global.Lookup(p.Name())
	if !ok {
		return s.plain.reference(i)
	}
	return b.Base.Tensor(), nil
}

func (s loraSource) grad(i int) (*tensor.RawTensor, error) {
	g, err := s.plain.grad(i)
	if err != nil {
		return nil, err
	}
	p := s.plain.g.Params[i]
	b, ok := s.global.Lookup(p.Name())
	if !ok {
		return g, nil
	}
	lifted, err := b.LiftGrad(g)
	if err != nil {
		return nil, s.wrap(p, err)
	}
	return lifted, nil
}

func (s loraSource) curvature(i int) (*tensor.RawTensor, error) {
	h, err := s.plain.curvature(i)
	if err != nil {
		return nil, err
	}
	p := s.plain.g.Params[i]
	b, ok := s.global.Lookup(p.Name())
	if !ok {
		return h, nil
	}
	lifted, err := b.LiftCurvature(h)
	if err != nil {
		return nil, s.wrap(p, err)
	}
	return lifted, nil
}

func (s loraSource) wrap(p *nn.Parameter, err error) error {
	return &GroupError{Group: s.plain.g.ID, Param: p.Name(), Err: err}
}
