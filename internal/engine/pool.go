package engine

import (
	"context"
	"sync"

	"bordero/internal/claims/models"
	"bordero/internal/normalizer"
)

// BatchResult carries the outcome of one submission in a batch, tagged with
// its position so callers can correlate results with inputs.
type BatchResult struct {
	Index   int
	Verdict models.Verdict
	Err     error
}

// pool fans batch submissions out to a fixed set of workers. Each job is an
// independent Process call; ordering across jobs is not preserved.
type pool struct {
	svc       *Service
	workers   int
	jobs      chan batchJob
	results   chan BatchResult
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type batchJob struct {
	index int
	sub   normalizer.Submission
}

func newPool(svc *Service, workers int) *pool {
	if workers <= 0 {
		workers = 1
	}
	return &pool{
		svc:     svc,
		workers: workers,
		jobs:    make(chan batchJob, workers*2),
		results: make(chan BatchResult, workers*2),
	}
}

func (p *pool) start(ctx context.Context) {
	for range p.workers {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

func (p *pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			v, err := p.svc.Process(ctx, job.sub)
			select {
			case p.results <- BatchResult{Index: job.index, Verdict: v, Err: err}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (p *pool) submit(ctx context.Context, job batchJob) {
	select {
	case <-ctx.Done():
	case p.jobs <- job:
	}
}

// wait collects results until the workers drain. The dispatcher must have
// closed the job queue before results can be exhausted.
func (p *pool) wait() []BatchResult {
	go func() {
		p.wg.Wait()
		p.closeResults()
	}()

	var out []BatchResult
	for r := range p.results {
		out = append(out, r)
	}
	return out
}

func (p *pool) closeResults() {
	p.closeOnce.Do(func() { close(p.results) })
}

// ProcessBatch runs the submissions concurrently across the given number of
// workers and returns the per-submission results indexed by input position.
// A cancelled context stops dispatch; already-dispatched claims finish.
func (s *Service) ProcessBatch(ctx context.Context, subs []normalizer.Submission, workers int) []BatchResult {
	if len(subs) == 0 {
		return nil
	}
	if workers > len(subs) {
		workers = len(subs)
	}

	p := newPool(s, workers)
	p.start(ctx)

	go func() {
		defer close(p.jobs)
		for i, sub := range subs {
			p.submit(ctx, batchJob{index: i, sub: sub})
		}
	}()

	collected := p.wait()

	out := make([]BatchResult, len(subs))
	seen := make([]bool, len(subs))
	for _, r := range collected {
		out[r.Index] = r
		seen[r.Index] = true
	}
	for i := range out {
		if !seen[i] {
			out[i] = BatchResult{Index: i, Err: ctx.Err()}
		}
	}
	return out
}
