package importance

import "math"

// scoreMagnitude sums the L2 norm of every unit across the group's tensors.
func scoreMagnitude(s *scorer) ([]float32, error) {
	return accumulateNorms(s, false)
}

// scoreAvgMagnitude sums the L2 norm of every unit divided by its size, so
// that tensors with long rows do not dominate the group. Empty units score 0.
func scoreAvgMagnitude(s *scorer) ([]float32, error) {
	return accumulateNorms(s, true)
}

func accumulateNorms(s *scorer, average bool) ([]float32, error) {
	acc := make([]float64, s.n)
	for i := range s.g.Params {
		w, err := s.src.weight(i)
		if err != nil {
			return nil, err
		}
		data, cols, err := s.matrix(i, w)
		if err != nil {
			return nil, err
		}
		if cols == 0 {
			continue
		}
		for u := 0; u < s.n; u++ {
			norm := l2(data[u*cols : (u+1)*cols])
			if average {
				norm /= float64(cols)
			}
			acc[u] += norm
		}
	}
	return detach(acc), nil
}

func l2(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
