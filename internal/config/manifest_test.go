package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/born-ml/born-prune/internal/importance"
	"github.com/born-ml/born-prune/internal/nn"
	"github.com/born-ml/born-prune/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
criteria: [magnitude, taylor_first_order]
weights: {magnitude: 2.0, taylor_first_order: 1.0}
ratio: 0.5
lora: true
groups:
  - id: fc1
    params:
      - {name: fc1.weight, transform: basic}
      - {name: fc1.bias, transform: accessory}
      - {name: fc2.weight, transform: transpose}
    redundant: [0, 1]
lora_params:
  - {adapter: q.lora_B, base: q.weight, down: q.lora_A, alpha: 16, rank: 8}
  - {adapter: v.delta, base: v.weight}
`

func param(t *testing.T, name string, shape tensor.Shape) *nn.Parameter {
	t.Helper()
	r, err := tensor.Zeros(shape)
	require.NoError(t, err)
	return nn.NewParameter(name, r)
}

func weights(t *testing.T) map[string]*nn.Parameter {
	t.Helper()
	params := map[string]*nn.Parameter{}
	for name, shape := range map[string]tensor.Shape{
		"fc1.weight": {2, 3},
		"fc1.bias":   {2},
		"fc2.weight": {4, 2},
		"q.weight":   {4, 4},
		"q.lora_A":   {2, 4},
		"q.lora_B":   {4, 2},
		"v.weight":   {4, 4},
		"v.delta":    {4, 4},
	} {
		params[name] = param(t, name, shape)
	}
	return params
}

func TestParse(t *testing.T) {
	m, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, []string{"magnitude", "taylor_first_order"}, m.Criteria)
	assert.Equal(t, 0.5, m.Ratio)
	assert.True(t, m.LoRA)
	require.Len(t, m.Groups, 1)
	assert.Equal(t, "fc1", m.Groups[0].ID)
	assert.Equal(t, []int{0, 1}, m.Groups[0].Redundant)
	assert.Equal(t, ParamSpec{Name: "fc2.weight", Transform: "transpose"}, m.Groups[0].Params[2])
	assert.Equal(t, map[string]float64{"magnitude": 2, "taylor_first_order": 1}, m.CombineWeights([]string{"magnitude"}))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"no criteria", "ratio: 0.5\ngroups: [{id: a, params: [{name: w}]}]", importance.ErrNoCriteria},
		{"bad ratio", "criteria: [magnitude]\nratio: 1.5\ngroups: [{id: a, params: [{name: w}]}]", ErrBadRatio},
		{"no groups", "criteria: [magnitude]", ErrNoGroups},
		{"duplicate group", "criteria: [magnitude]\ngroups: [{id: a, params: [{name: w}]}, {id: a, params: [{name: w}]}]", ErrDuplicateGroup},
		{"empty group", "criteria: [magnitude]\ngroups: [{id: a, params: []}]", importance.ErrEmptyGroup},
		{"unknown transform", "criteria: [magnitude]\ngroups: [{id: a, params: [{name: w, transform: diagonal}]}]", importance.ErrUnknownTransform},
		{"bad lora", "criteria: [magnitude]\ngroups: [{id: a, params: [{name: w}]}]\nlora_params: [{adapter: x}]", ErrBadLoRA},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("criteria: [magnitude]\nratoi: 0.5\ngroups: [{id: a, params: [{name: w}]}]"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, m.LoRAParams, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCombineWeights_Default(t *testing.T) {
	m := &Manifest{Criteria: []string{"magnitude", "taylor_first_order_custom"}}
	assert.Equal(t, map[string]float64{"magnitude": 1, "taylor_first_order": 1},
		m.CombineWeights([]string{"magnitude", "taylor_first_order"}))
}

func TestBuildGroups(t *testing.T) {
	m, err := Parse([]byte(sample))
	require.NoError(t, err)

	groups, err := m.BuildGroups(weights(t))
	require.NoError(t, err)
	require.Len(t, groups, 1)

	g := groups[0]
	assert.Equal(t, []string{"fc1.weight", "fc1.bias", "fc2.weight"}, g.PNames())
	assert.Equal(t, importance.Transpose, g.Transforms[2].Kind)
	assert.Equal(t, []int{0, 1}, g.RedundantIdxes)
}

func TestBuildGroups_Errors(t *testing.T) {
	m, err := Parse([]byte(sample))
	require.NoError(t, err)

	params := weights(t)
	delete(params, "fc1.bias")
	_, err = m.BuildGroups(params)
	assert.ErrorIs(t, err, ErrUnknownParam)

	params = weights(t)
	params["fc2.weight"] = param(t, "fc2.weight", tensor.Shape{4, 3})
	_, err = m.BuildGroups(params)
	assert.ErrorIs(t, err, importance.ErrUnitMismatch)
}

func TestBuildGlobal(t *testing.T) {
	m, err := Parse([]byte(sample))
	require.NoError(t, err)
	params := weights(t)

	global, err := m.BuildGlobal(params)
	require.NoError(t, err)

	q, ok := global.Lookup("q.lora_B")
	require.True(t, ok)
	assert.Same(t, params["q.weight"], q.Base)
	assert.Same(t, params["q.lora_A"], q.Down)
	assert.Equal(t, float32(2), q.Scale)

	v, ok := global.Lookup("v.delta")
	require.True(t, ok)
	assert.Nil(t, v.Down)

	delete(params, "q.lora_A")
	_, err = m.BuildGlobal(params)
	assert.ErrorIs(t, err, ErrUnknownParam)
}
