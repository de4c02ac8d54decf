package sim

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"resistsim/internal/config"
)

// RunBatch executes one fully independent run per seed, at most workers at
// a time, and returns the results in seed order. Each worker owns its own
// population; no state is shared across runs, so the batch output is the
// same as running the seeds sequentially.
func RunBatch(ctx context.Context, cfg *config.Config, seeds []int64, workers int, log *zap.Logger) ([]*Result, error) {
	if len(seeds) == 0 {
		return nil, fmt.Errorf("no seeds given")
	}
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}

	results := make([]*Result, len(seeds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, seed := range seeds {
		g.Go(func() error {
			runCfg := *cfg
			runCfg.Run.Seed = seed

			eng, err := New(&runCfg, log.With(zap.Int64("seed", seed)))
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			res, err := eng.Run(gctx)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
