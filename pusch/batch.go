package pusch

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/observe-l/ulsch/harq"
)

// Job pairs a request with the process it runs on. Jobs of one batch must use distinct
// processes.
type Job struct {
	Process *harq.Process
	Request Request
}

// EncodeBatch encodes independent jobs with at most limit running at once (limit <= 0
// means no limit). Results are returned in job order. The first error cancels the jobs
// that have not started yet.
func (e *Encoder) EncodeBatch(ctx context.Context, jobs []Job, limit int) ([]*Result, error) {
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	out := make([]*Result, len(jobs))
	for i := range jobs {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := e.Encode(jobs[i].Process, jobs[i].Request)
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
