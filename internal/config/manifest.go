// Package config loads pruning manifests.
//
// A manifest names the criteria to compute, how to weigh them into one
// ranking, how many units to remove, and the groups of coupled tensors
// produced by dependency analysis:
//
//	criteria: [magnitude, taylor_first_order]
//	weights: {magnitude: 1.0, taylor_first_order: 1.0}
//	ratio: 0.5
//	groups:
//	  - id: conv1
//	    params:
//	      - {name: conv1.weight, transform: basic}
//	      - {name: bn1.weight, transform: accessory}
//	      - {name: conv2.weight, transform: transpose}
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/born-ml/born-prune/internal/importance"
	"github.com/born-ml/born-prune/internal/nn"
	"gopkg.in/yaml.v3"
)

// Common errors.
var (
	ErrNoGroups       = errors.New("manifest has no groups")
	ErrDuplicateGroup = errors.New("duplicate group id")
	ErrBadRatio       = errors.New("ratio must be within [0, 1]")
	ErrUnknownParam   = errors.New("parameter not found in weights")
	ErrBadLoRA        = errors.New("invalid lora binding")
)

// Manifest is the root of a pruning manifest.
type Manifest struct {
	Criteria   []string           `yaml:"criteria" json:"criteria"`
	Weights    map[string]float64 `yaml:"weights,omitempty" json:"weights,omitempty"`
	Ratio      float64            `yaml:"ratio" json:"ratio"`
	LoRA       bool               `yaml:"lora,omitempty" json:"lora,omitempty"`
	Groups     []GroupSpec        `yaml:"groups" json:"groups"`
	LoRAParams []LoRASpec         `yaml:"lora_params,omitempty" json:"lora_params,omitempty"`
}

// GroupSpec describes one group of coupled tensors.
type GroupSpec struct {
	ID        string      `yaml:"id" json:"id"`
	Params    []ParamSpec `yaml:"params" json:"params"`
	Redundant []int       `yaml:"redundant,omitempty" json:"redundant,omitempty"`
}

// ParamSpec binds a tensor name to the transform exposing its units.
type ParamSpec struct {
	Name      string `yaml:"name" json:"name"`
	Transform string `yaml:"transform,omitempty" json:"transform,omitempty"`
	Heads     int    `yaml:"heads,omitempty" json:"heads,omitempty"` // multi_head only
}

// LoRASpec binds an adapter tensor to the frozen weight it modifies.
// Down is empty when the adapter holds a materialized delta.
type LoRASpec struct {
	Adapter string  `yaml:"adapter" json:"adapter"`
	Base    string  `yaml:"base" json:"base"`
	Down    string  `yaml:"down,omitempty" json:"down,omitempty"`
	Alpha   float64 `yaml:"alpha,omitempty" json:"alpha,omitempty"`
	Rank    int     `yaml:"rank,omitempty" json:"rank,omitempty"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	//nolint:gosec // G304: manifest path is chosen by the user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes and validates a manifest. Unknown keys are rejected.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the manifest for structural errors that do not depend on
// the weights.
func (m *Manifest) Validate() error {
	if len(m.Criteria) == 0 {
		return importance.ErrNoCriteria
	}
	if m.Ratio < 0 || m.Ratio > 1 {
		return fmt.Errorf("%w: %v", ErrBadRatio, m.Ratio)
	}
	if len(m.Groups) == 0 {
		return ErrNoGroups
	}

	seen := make(map[string]bool, len(m.Groups))
	for i, g := range m.Groups {
		if g.ID == "" {
			return fmt.Errorf("group %d: empty id", i)
		}
		if seen[g.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateGroup, g.ID)
		}
		seen[g.ID] = true
		if len(g.Params) == 0 {
			return fmt.Errorf("group %s: %w", g.ID, importance.ErrEmptyGroup)
		}
		for _, p := range g.Params {
			if _, err := p.transform(); err != nil {
				return fmt.Errorf("group %s param %s: %w", g.ID, p.Name, err)
			}
		}
	}

	for _, l := range m.LoRAParams {
		if l.Adapter == "" || l.Base == "" {
			return fmt.Errorf("%w: adapter and base are required", ErrBadLoRA)
		}
		if l.Rank < 0 {
			return fmt.Errorf("%w: %s: negative rank %d", ErrBadLoRA, l.Adapter, l.Rank)
		}
	}
	return nil
}

// CombineWeights returns the criterion weights. Without explicit weights
// every scored criterion counts once.
func (m *Manifest) CombineWeights(scored []string) map[string]float64 {
	if len(m.Weights) > 0 {
		return m.Weights
	}
	w := make(map[string]float64, len(scored))
	for _, c := range scored {
		w[c] = 1
	}
	return w
}

func (p ParamSpec) transform() (importance.Transform, error) {
	kind, err := importance.ParseTransformKind(p.Transform)
	if err != nil {
		return importance.Transform{}, err
	}
	return importance.Transform{Kind: kind, Heads: p.Heads}, nil
}

// BuildGroups resolves every group against the loaded parameters.
func (m *Manifest) BuildGroups(params map[string]*nn.Parameter) ([]*importance.Group, error) {
	groups := make([]*importance.Group, 0, len(m.Groups))
	for _, spec := range m.Groups {
		ps := make([]*nn.Parameter, len(spec.Params))
		ts := make([]importance.Transform, len(spec.Params))
		for i, p := range spec.Params {
			param, ok := params[p.Name]
			if !ok {
				return nil, fmt.Errorf("group %s: %w: %s", spec.ID, ErrUnknownParam, p.Name)
			}
			t, err := p.transform()
			if err != nil {
				return nil, fmt.Errorf("group %s param %s: %w", spec.ID, p.Name, err)
			}
			ps[i], ts[i] = param, t
		}

		g, err := importance.NewGroup(spec.ID, ps, ts, spec.Redundant)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", spec.ID, err)
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// BuildGlobal resolves the LoRA bindings against the loaded parameters.
func (m *Manifest) BuildGlobal(params map[string]*nn.Parameter) (nn.GlobalParams, error) {
	global := make(nn.GlobalParams, len(m.LoRAParams))
	for _, l := range m.LoRAParams {
		base, ok := params[l.Base]
		if !ok {
			return nil, fmt.Errorf("lora %s: %w: %s", l.Adapter, ErrUnknownParam, l.Base)
		}
		binding := nn.LoRABase{Base: base, Scale: nn.LoRAScale(l.Alpha, l.Rank)}
		if l.Down != "" {
			down, ok := params[l.Down]
			if !ok {
				return nil, fmt.Errorf("lora %s: %w: %s", l.Adapter, ErrUnknownParam, l.Down)
			}
			binding.Down = down
		}
		global[l.Adapter] = binding
	}
	return global, nil
}
