package main

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/born-ml/born-prune/internal/config"
	"github.com/born-ml/born-prune/internal/importance"
	"github.com/born-ml/born-prune/internal/nn"
	"github.com/born-ml/born-prune/internal/parallel"
	"github.com/born-ml/born-prune/internal/prune"
	"github.com/born-ml/born-prune/internal/serialization"
)

// job is one manifest resolved against one state dict.
type job struct {
	manifest *config.Manifest
	params   map[string]*nn.Parameter
	groups   []*importance.Group
	global   nn.GlobalParams
}

// report is the score/prune command output.
type report struct {
	Criteria []string      `json:"criteria" yaml:"criteria"`
	Ratio    float64       `json:"ratio" yaml:"ratio"`
	Groups   []groupReport `json:"groups" yaml:"groups"`
}

type groupReport struct {
	ID       string               `json:"id" yaml:"id"`
	Params   []string             `json:"params" yaml:"params"`
	Units    int                  `json:"units" yaml:"units"`
	Scores   map[string][]float32 `json:"scores" yaml:"scores"`
	Combined []float64            `json:"combined" yaml:"combined"`
	Pruned   []int                `json:"pruned" yaml:"pruned"`
}

func load(manifestPath, weightsPath string) (*job, error) {
	m, err := config.Load(manifestPath)
	if err != nil {
		return nil, err
	}
	state, _, err := serialization.ReadFile(weightsPath)
	if err != nil {
		return nil, fmt.Errorf("loading weights %s: %w", weightsPath, err)
	}
	params, err := serialization.Parameters(state)
	if err != nil {
		return nil, fmt.Errorf("loading weights %s: %w", weightsPath, err)
	}

	groups, err := m.BuildGroups(params)
	if err != nil {
		return nil, err
	}
	j := &job{manifest: m, params: params, groups: groups}
	if m.LoRA {
		if j.global, err = m.BuildGlobal(params); err != nil {
			return nil, err
		}
	}
	slog.Debug("loaded job", "groups", len(groups), "params", len(params), "lora", m.LoRA)
	return j, nil
}

// score computes every group's importance and picks the units to prune.
// Groups are independent and scored concurrently, one engine per group.
func (j *job) score(ctx context.Context, cfg parallel.Config) (*report, error) {
	rep := &report{
		Criteria: j.manifest.Criteria,
		Ratio:    j.manifest.Ratio,
		Groups:   make([]groupReport, len(j.groups)),
	}

	err := parallel.ForEach(ctx, len(j.groups), cfg, func(_ context.Context, i int) error {
		g := j.groups[i]
		engine := importance.NewEngine()

		var err error
		if j.manifest.LoRA {
			err = engine.ComputeLoRA(j.manifest.Criteria, g, j.global)
		} else {
			err = engine.Compute(j.manifest.Criteria, g)
		}
		if err != nil {
			return err
		}

		scored := make([]string, 0, len(g.ImportanceScores))
		for name := range g.ImportanceScores {
			scored = append(scored, name)
		}
		sort.Strings(scored)

		combined, err := prune.Combine(g, j.manifest.CombineWeights(scored))
		if err != nil {
			return fmt.Errorf("group %s: %w", g.ID, err)
		}
		picked, err := prune.SelectRedundant(g, combined, j.manifest.Ratio)
		if err != nil {
			return err
		}

		rep.Groups[i] = groupReport{
			ID:       g.ID,
			Params:   g.PNames(),
			Units:    len(combined),
			Scores:   g.ImportanceScores,
			Combined: combined,
			Pruned:   picked,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// apply zeroes the selected units and writes the state dict to out.
// Groups may share tensors, so zeroing runs sequentially.
func (j *job) apply(rep *report, out string) error {
	var total int
	for i, g := range j.groups {
		units := rep.Groups[i].Pruned
		if err := prune.ZeroUnits(g, units); err != nil {
			return err
		}
		total += len(units)
		slog.Debug("pruned group", "group", g.ID, "units", len(units))
	}

	metadata := map[string]string{
		"pruned_by":    "born-prune",
		"ratio":        strconv.FormatFloat(j.manifest.Ratio, 'g', -1, 64),
		"pruned_units": strconv.Itoa(total),
	}
	if err := serialization.WriteFile(out, serialization.StateDict(j.params), metadata); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	slog.Info("wrote pruned weights", "path", out, "units", total)
	return nil
}
