// Package importance scores the prunable units of parameter groups.
//
// A group ties together tensors that must lose the same unit at once, e.g.
// a conv output channel, the matching batch-norm scale and bias, and the
// matching input channel of the next conv. The Engine computes one score per
// unit for every requested criterion and stores the vectors in the group.
//
// Example:
//
//	g, _ := importance.NewGroup("conv1", params, transforms, nil)
//	engine := importance.NewEngine(importance.WithTape(tape))
//	if err := engine.Compute([]string{"magnitude", "taylor_first_order"}, g); err != nil {
//	    return err
//	}
//	scores := g.ImportanceScores["magnitude"]
package importance

import (
	"errors"
	"log/slog"
	"time"

	"github.com/born-ml/born-prune/internal/autodiff"
	"github.com/born-ml/born-prune/internal/nn"
)

// Engine dispatches criteria over groups.
//
// Scoring never records on the gradient tape: every call runs inside
// autodiff.NoGrad, so a training loop sharing the tape sees no extra
// operations and gets its recording state back even when a criterion fails.
type Engine struct {
	tape   *autodiff.GradientTape
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTape sets the gradient tape shared with the training loop.
func WithTape(tape *autodiff.GradientTape) Option {
	return func(e *Engine) {
		e.tape = tape
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates a new Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compute resets g.ImportanceScores and fills it with one vector per
// requested criterion, keyed by the criterion name.
//
// Names are matched exactly and unknown names are skipped without error.
// On error no scores are left in the group.
func (e *Engine) Compute(criteria []string, g *Group) error {
	return e.run(criteria, g, func(name string, s *scorer) (string, criterionFunc, bool) {
		fn, ok := plainCriteria[Criterion(name)]
		if !ok {
			return "", nil, false
		}
		s.src = plainSource{g: g}
		return name, fn, true
	})
}

// ComputeLoRA is Compute for groups made of low-rank adapter tensors.
//
// Names are matched by substring containment, so "taylor_first_order_custom"
// selects the first-order Taylor criterion, and the score is stored under the
// canonical criterion name. Cosine similarity and the Taylor criteria read
// the effective weight base+delta through global; the magnitude criteria only
// look at the adapter tensors.
func (e *Engine) ComputeLoRA(criteria []string, g *Group, global nn.GlobalParams) error {
	return e.run(criteria, g, func(name string, s *scorer) (string, criterionFunc, bool) {
		rule, ok := matchLoRA(name)
		if !ok {
			return "", nil, false
		}
		plain := plainSource{g: g}
		if rule.global {
			s.src = loraSource{plain: plain, global: global, tape: e.tape}
		} else {
			s.src = plain
		}
		return string(rule.criterion), rule.fn, true
	})
}

// resolver picks the criterion for a requested name and prepares the scorer.
type resolver func(name string, s *scorer) (key string, fn criterionFunc, ok bool)

func (e *Engine) run(criteria []string, g *Group, resolve resolver) error {
	if len(criteria) == 0 {
		return ErrNoCriteria
	}
	g.ImportanceScores = make(map[string][]float32)

	n, err := g.NumUnits()
	if err != nil {
		return err
	}

	start := time.Now()
	err = autodiff.NoGrad(e.tape, func() error {
		for _, name := range criteria {
			s := &scorer{g: g, n: n, tape: e.tape}
			key, fn, ok := resolve(name, s)
			if !ok {
				e.logger.Debug("skipping unknown criterion", "group", g.ID, "criterion", name)
				continue
			}
			scores, err := fn(s)
			if err != nil {
				return withCriterion(err, key)
			}
			g.ImportanceScores[key] = scores
		}
		return nil
	})
	if err != nil {
		g.ImportanceScores = make(map[string][]float32)
		return err
	}

	e.logger.Debug("scored group", "group", g.ID, "units", n,
		"criteria", len(g.ImportanceScores), "elapsed", time.Since(start))
	return nil
}

// withCriterion tags a GroupError with the criterion that produced it.
func withCriterion(err error, criterion string) error {
	var ge *GroupError
	if errors.As(err, &ge) && ge.Criterion == "" {
		tagged := *ge
		tagged.Criterion = criterion
		return &tagged
	}
	return err
}
