package importance

import "math"

// scoreTaylorFirstOrder estimates the loss change of zeroing a unit with a
// first-order expansion: |g·w| per tensor, summed over the group.
func scoreTaylorFirstOrder(s *scorer) ([]float32, error) {
	acc := make([]float64, s.n)
	for i := range s.g.Params {
		w, g, cols, err := s.weightAndGrad(i)
		if err != nil {
			return nil, err
		}
		for u := 0; u < s.n; u++ {
			var dot float64
			for j := u * cols; j < (u+1)*cols; j++ {
				dot += float64(w[j]) * float64(g[j])
			}
			acc[u] += math.Abs(dot)
		}
	}
	return detach(acc), nil
}

// scoreTaylorSecondOrder adds the diagonal curvature term to the expansion.
// Zeroing a unit moves it by -w, so per tensor the change is
// |sum(-g*w + 0.5*h*w²)|.
func scoreTaylorSecondOrder(s *scorer) ([]float32, error) {
	acc := make([]float64, s.n)
	for i := range s.g.Params {
		w, g, cols, err := s.weightAndGrad(i)
		if err != nil {
			return nil, err
		}
		ht, err := s.src.curvature(i)
		if err != nil {
			return nil, err
		}
		h, _, err := s.matrix(i, ht)
		if err != nil {
			return nil, err
		}
		for u := 0; u < s.n; u++ {
			var delta float64
			for j := u * cols; j < (u+1)*cols; j++ {
				wj := float64(w[j])
				delta += -float64(g[j])*wj + 0.5*float64(h[j])*wj*wj
			}
			acc[u] += math.Abs(delta)
		}
	}
	return detach(acc), nil
}

// weightAndGrad returns the reshaped weight and gradient of the i-th tensor.
func (s *scorer) weightAndGrad(i int) ([]float32, []float32, int, error) {
	wt, err := s.src.weight(i)
	if err != nil {
		return nil, nil, 0, err
	}
	gt, err := s.src.grad(i)
	if err != nil {
		return nil, nil, 0, err
	}
	w, cols, err := s.matrix(i, wt)
	if err != nil {
		return nil, nil, 0, err
	}
	g, _, err := s.matrix(i, gt)
	if err != nil {
		return nil, nil, 0, err
	}
	return w, g, cols, nil
}
