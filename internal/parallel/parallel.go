// Package parallel runs independent jobs with bounded concurrency.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled    bool // Whether parallel execution is enabled.
	NumWorkers int  // Maximum number of concurrent jobs.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:    n > 1,
		NumWorkers: n,
	}
}

// WithWorkers returns cfg limited to n workers. n <= 0 keeps cfg unchanged
// and n == 1 disables parallelism.
func (cfg Config) WithWorkers(n int) Config {
	if n <= 0 {
		return cfg
	}
	cfg.NumWorkers = n
	cfg.Enabled = n > 1
	return cfg
}

// ForEach executes f(ctx, i) for i in [0, n).
//
// The first error cancels the context passed to the remaining jobs and is
// returned once every started job has finished. Jobs not yet started when
// the context is cancelled are skipped.
func ForEach(ctx context.Context, n int, cfg Config, f func(ctx context.Context, i int) error) error {
	if !cfg.Enabled || cfg.NumWorkers <= 1 || n <= 1 {
		// Sequential fallback.
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := f(ctx, i); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.NumWorkers)
	for i := 0; i < n; i++ {
		i := i
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return f(gctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
