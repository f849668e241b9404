package tensor

import "fmt"

// MatMul performs float32 matrix multiplication.
// (M, K) @ (K, N) -> (M, N). Uses a naive O(n³) loop; the matrices involved
// are low-rank adapter factors, so K is small.
func MatMul(a, b *RawTensor) (*RawTensor, error) {
	aShape := a.Shape()
	bShape := b.Shape()

	if len(aShape) != 2 || len(bShape) != 2 {
		return nil, fmt.Errorf("matmul: only 2D tensors supported, got %dD and %dD", len(aShape), len(bShape))
	}

	if err := RequireFloat32(a, b); err != nil {
		return nil, fmt.Errorf("matmul: %w", err)
	}

	m, k := aShape[0], aShape[1]
	kAlt, n := bShape[0], bShape[1]
	if k != kAlt {
		return nil, fmt.Errorf("matmul: shape mismatch [%d,%d] @ [%d,%d]", m, k, kAlt, n)
	}

	result, err := NewRaw(Shape{m, n}, Float32, a.Device())
	if err != nil {
		return nil, fmt.Errorf("matmul: failed to create result tensor: %w", err)
	}
	matmulFloat32(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), m, k, n)
	return result, nil
}

// matmulFloat32 computes C[i,j] = sum_k A[i,k] * B[k,j].
func matmulFloat32(c, a, b []float32, m, k, n int) {
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var sum float32
			for kIdx := 0; kIdx < k; kIdx++ {
				sum += a[i*k+kIdx] * b[kIdx*n+j]
			}
			c[i*n+j] = sum
		}
	}
}

// AddScaled returns a + alpha*b. Both tensors must hold the same number of
// elements; the result takes a's shape.
func AddScaled(a, b *RawTensor, alpha float32) (*RawTensor, error) {
	if a.NumElements() != b.NumElements() {
		return nil, fmt.Errorf("add: element count mismatch %v vs %v", a.Shape(), b.Shape())
	}
	if err := RequireFloat32(a, b); err != nil {
		return nil, fmt.Errorf("add: %w", err)
	}
	result := a.Clone()
	dst := result.AsFloat32()
	for i, v := range b.AsFloat32() {
		dst[i] += alpha * v
	}
	return result, nil
}

// Scale returns alpha*a. Panics if a is not float32.
func Scale(a *RawTensor, alpha float32) *RawTensor {
	result := a.Clone()
	dst := result.AsFloat32()
	for i := range dst {
		dst[i] *= alpha
	}
	return result
}

// Square returns a with every element squared. Panics if a is not float32.
func Square(a *RawTensor) *RawTensor {
	result := a.Clone()
	dst := result.AsFloat32()
	for i, v := range dst {
		dst[i] = v * v
	}
	return result
}

// Reshape returns a copy of a with a new shape holding the same number of elements.
func Reshape(a *RawTensor, shape Shape) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("reshape: %w", err)
	}
	if shape.NumElements() != a.NumElements() {
		return nil, fmt.Errorf("reshape: cannot reshape %v into %v", a.Shape(), shape)
	}
	result := a.Clone()
	result.shape = shape.Clone()
	result.stride = shape.ComputeStrides()
	return result, nil
}
