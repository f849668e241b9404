// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package importance_test

import (
	"fmt"
	"testing"

	"github.com/born-ml/born-prune/autodiff"
	"github.com/born-ml/born-prune/importance"
	"github.com/born-ml/born-prune/nn"
	"github.com/born-ml/born-prune/optim"
	"github.com/born-ml/born-prune/prune"
	"github.com/born-ml/born-prune/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func param(t *testing.T, name string, data []float32, shape tensor.Shape) *nn.Parameter {
	t.Helper()
	r, err := tensor.FromFloat32(data, shape)
	require.NoError(t, err)
	return nn.NewParameter(name, r)
}

func TestPublicAPI_ScoreAndPrune(t *testing.T) {
	w := param(t, "fc.weight", []float32{1, 1, 0.1, 0.1, 2, 2}, tensor.Shape{3, 2})
	b := param(t, "fc.bias", []float32{0, 0, 0}, tensor.Shape{3})
	g, err := importance.NewGroup("fc", []*nn.Parameter{w, b},
		[]importance.Transform{{Kind: importance.Basic}, {Kind: importance.Accessory}}, nil)
	require.NoError(t, err)

	acc := optim.NewAccumulator([]*nn.Parameter{w, b}, optim.AccumulatorConfig{})
	gw, err := tensor.FromFloat32([]float32{1, 1, 1, 1, 1, 1}, tensor.Shape{3, 2})
	require.NoError(t, err)
	gb, err := tensor.Zeros(tensor.Shape{3})
	require.NoError(t, err)
	require.NoError(t, acc.Accumulate(map[string]*tensor.RawTensor{"fc.weight": gw, "fc.bias": gb}))

	tape := autodiff.NewGradientTape()
	tape.StartRecording()
	engine := importance.NewEngine(importance.WithTape(tape))
	require.NoError(t, engine.Compute([]string{string(importance.Magnitude), string(importance.TaylorFirstOrder)}, g))
	assert.True(t, tape.IsRecording())
	assert.Zero(t, tape.Len())

	combined, err := prune.Combine(g, map[string]float64{"magnitude": 1, "taylor_first_order": 1})
	require.NoError(t, err)
	units, err := prune.SelectRedundant(g, combined, 0.34)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, units)

	require.NoError(t, prune.ZeroUnits(g, units))
	assert.Equal(t, []float32{1, 1, 0, 0, 2, 2}, w.Tensor().AsFloat32())
}

func TestPublicAPI_Errors(t *testing.T) {
	w := param(t, "fc.weight", []float32{1, 2}, tensor.Shape{2, 1})
	g, err := importance.NewGroup("fc", []*nn.Parameter{w}, []importance.Transform{{Kind: importance.Basic}}, nil)
	require.NoError(t, err)

	err = importance.NewEngine().Compute([]string{"cosine_similarity"}, g)
	assert.ErrorIs(t, err, importance.ErrMissingReference)

	var ge *importance.GroupError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "cosine_similarity", ge.Criterion)
	assert.Empty(t, g.ImportanceScores)
}

func TestPublicAPI_Float64Weights(t *testing.T) {
	w, err := tensor.NewRaw(tensor.Shape{2, 2}, tensor.Float64, tensor.CPU)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		_, err = importance.NewGroup("fc", []*nn.Parameter{nn.NewParameter("fc.weight", w)},
			[]importance.Transform{{Kind: importance.Basic}}, nil)
	})
	assert.ErrorIs(t, err, importance.ErrUnsupportedDType)
}

func ExampleEngine_Compute() {
	w, _ := tensor.FromFloat32([]float32{3, 4, 0, 1}, tensor.Shape{2, 2})
	g, _ := importance.NewGroup("fc", []*nn.Parameter{nn.NewParameter("fc.weight", w)},
		[]importance.Transform{{Kind: importance.Basic}}, nil)

	if err := importance.NewEngine().Compute([]string{"magnitude"}, g); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(g.ImportanceScores["magnitude"])
	// Output: [5 1]
}
