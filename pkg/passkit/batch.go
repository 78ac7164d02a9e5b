package passkit

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Job is one pass to sign in a batch.
type Job struct {
	Pass    *Pass
	Options SignOptions
}

// SignAll signs jobs concurrently with at most limit in flight (unbounded
// when limit <= 0). Each job gets its own bundle directory. The first
// failure cancels the jobs not yet started and is returned.
func (pl *Pipeline) SignAll(ctx context.Context, jobs []Job, limit int) error {
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			if err := pl.Sign(ctx, job.Pass, job.Options); err != nil {
				return fmt.Errorf("job %d (%s): %w", i, job.Options.OutputPath, err)
			}
			return nil
		})
	}
	return g.Wait()
}
