package serialization

import (
	"fmt"
	"sort"
	"strings"

	"github.com/born-ml/born-prune/internal/nn"
	"github.com/born-ml/born-prune/internal/tensor"
)

// Suffixes of the statistics stored next to a parameter value.
const (
	GradSuffix      = ".grad"
	CurvatureSuffix = ".curvature"
	RefSuffix       = ".ref"
)

var statSuffixes = []string{GradSuffix, CurvatureSuffix, RefSuffix}

// Parameters builds one Parameter per value tensor in a state dict.
//
// "<name>.grad", "<name>.curvature" and "<name>.ref" entries attach to the
// parameter "<name>". A statistic whose parameter is absent is an error.
func Parameters(state map[string]*tensor.RawTensor) (map[string]*nn.Parameter, error) {
	params := make(map[string]*nn.Parameter, len(state))
	for name, t := range state {
		if _, stat := splitStat(name); stat == "" {
			params[name] = nn.NewParameter(name, t)
		}
	}

	for name, t := range state {
		base, stat := splitStat(name)
		if stat == "" {
			continue
		}
		p, ok := params[base]
		if !ok {
			return nil, fmt.Errorf("%w: %s has no parameter %q", ErrTensorNotFound, name, base)
		}
		switch stat {
		case GradSuffix:
			p.SetGrad(t)
		case CurvatureSuffix:
			p.SetCurvature(t)
		case RefSuffix:
			p.SetReference(t)
		}
	}
	return params, nil
}

// StateDict flattens parameters back into a state dict, statistics included.
func StateDict(params map[string]*nn.Parameter) map[string]*tensor.RawTensor {
	state := make(map[string]*tensor.RawTensor, len(params))
	for name, p := range params {
		state[name] = p.Tensor()
		if g := p.Grad(); g != nil {
			state[name+GradSuffix] = g
		}
		if h := p.Curvature(); h != nil {
			state[name+CurvatureSuffix] = h
		}
		if ref := p.Reference(); ref != nil {
			state[name+RefSuffix] = ref
		}
	}
	return state
}

// ParameterNames returns the sorted names of params.
func ParameterNames(params map[string]*nn.Parameter) []string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func splitStat(name string) (string, string) {
	for _, suffix := range statSuffixes {
		if base, ok := strings.CutSuffix(name, suffix); ok && base != "" {
			return base, suffix
		}
	}
	return name, ""
}
