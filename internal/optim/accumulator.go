// Package optim maintains the per-parameter statistics that gradient-based
// importance criteria read.
//
// A training loop feeds every step's gradients to an Accumulator. It sums
// them into Parameter.Grad (first-order Taylor) and keeps an exponential
// moving average of their squares as the diagonal curvature estimate
// (second-order Taylor), the same second moment Adam maintains.
//
// Example usage:
//
//	acc := optim.NewAccumulator(params, optim.AccumulatorConfig{})
//	for step := range steps {
//	    grads := backward(loss)
//	    if err := acc.Accumulate(grads); err != nil {
//	        return err
//	    }
//	}
//	err := engine.Compute([]string{"taylor_second_order"}, group)
//	acc.Reset()
package optim

import (
	"fmt"
	"math"

	"github.com/born-ml/born-prune/internal/nn"
	"github.com/born-ml/born-prune/internal/tensor"
)

// AccumulatorConfig holds configuration for Accumulator.
type AccumulatorConfig struct {
	Beta float32 // Decay of the squared-gradient average (default: 0.999)
}

// Accumulator collects gradient statistics between pruning steps.
type Accumulator struct {
	params map[string]*nn.Parameter
	beta   float32
	t      int                          // Steps since the last Reset, for bias correction
	v      map[string]*tensor.RawTensor // Biased second moment estimates
}

// NewAccumulator creates a new Accumulator over params.
func NewAccumulator(params []*nn.Parameter, config AccumulatorConfig) *Accumulator {
	if config.Beta == 0 {
		config.Beta = 0.999
	}
	byName := make(map[string]*nn.Parameter, len(params))
	for _, p := range params {
		byName[p.Name()] = p
	}
	return &Accumulator{
		params: byName,
		beta:   config.Beta,
		v:      make(map[string]*tensor.RawTensor),
	}
}

// Accumulate adds one step of gradients, keyed by parameter name.
//
// Parameters without a gradient in this step are left as they are.
// The curvature written to each parameter is bias-corrected:
// v_hat = v / (1 - beta^t).
func (a *Accumulator) Accumulate(grads map[string]*tensor.RawTensor) error {
	for name, g := range grads {
		p, ok := a.params[name]
		if !ok {
			return fmt.Errorf("accumulate: unknown parameter %q", name)
		}
		if !g.Shape().Equal(p.Tensor().Shape()) {
			return fmt.Errorf("accumulate: gradient %v does not match parameter %q %v",
				g.Shape(), name, p.Tensor().Shape())
		}
	}

	a.t++
	biasCorrection := float32(1.0 - math.Pow(float64(a.beta), float64(a.t)))

	for name, g := range grads {
		p := a.params[name]
		gradData := g.AsFloat32()

		sum := p.Grad()
		if sum == nil {
			sum, _ = tensor.Zeros(p.Tensor().Shape())
			p.SetGrad(sum)
		}
		sumData := sum.AsFloat32()

		v, exists := a.v[name]
		if !exists {
			v, _ = tensor.Zeros(p.Tensor().Shape())
			a.v[name] = v
		}
		vData := v.AsFloat32()

		hat, _ := tensor.Zeros(p.Tensor().Shape())
		hatData := hat.AsFloat32()

		for i, gi := range gradData {
			sumData[i] += gi
			// v_t = beta * v_{t-1} + (1-beta) * grad²
			vData[i] = a.beta*vData[i] + (1.0-a.beta)*gi*gi
			hatData[i] = vData[i] / biasCorrection
		}
		p.SetCurvature(hat)
	}
	return nil
}

// Steps returns the number of steps accumulated since the last Reset.
func (a *Accumulator) Steps() int {
	return a.t
}

// Reset clears gradients, curvature and moment estimates of every parameter.
func (a *Accumulator) Reset() {
	for _, p := range a.params {
		p.ZeroGrad()
	}
	a.v = make(map[string]*tensor.RawTensor)
	a.t = 0
}
