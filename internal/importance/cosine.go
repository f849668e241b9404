package importance

import "math"

// scoreCosineSimilarity averages, over the group's tensors, the cosine
// similarity between each unit and the same unit of its reference. Units
// with a zero norm on either side score 0 for that tensor.
func scoreCosineSimilarity(s *scorer) ([]float32, error) {
	acc := make([]float64, s.n)
	for i := range s.g.Params {
		w, err := s.src.weight(i)
		if err != nil {
			return nil, err
		}
		ref, err := s.src.reference(i)
		if err != nil {
			return nil, err
		}
		cur, cols, err := s.matrix(i, w)
		if err != nil {
			return nil, err
		}
		prev, _, err := s.matrix(i, ref)
		if err != nil {
			return nil, err
		}
		for u := 0; u < s.n; u++ {
			acc[u] += cosine(cur[u*cols:(u+1)*cols], prev[u*cols:(u+1)*cols])
		}
	}

	for u := range acc {
		acc[u] /= float64(len(s.g.Params))
	}
	return detach(acc), nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for j := range a {
		x, y := float64(a[j]), float64(b[j])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
