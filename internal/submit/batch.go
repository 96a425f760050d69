package submit

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/solana-relay/internal/txbuilder"
)

// Job - одна независимая отправка в пакете.
type Job struct {
	Builder txbuilder.Builder
	Config  ExecutionConfig
}

// BatchResult - результат Job с тем же индексом.
type BatchResult struct {
	Result *Result
	Err    error
}

// SubmitAll runs independent submissions in parallel, at most limit at a time
// (limit <= 0 means unbounded). A failed job does not cancel the others.
func (o *Orchestrator) SubmitAll(ctx context.Context, jobs []Job, limit int) []BatchResult {
	results := make([]BatchResult, len(jobs))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, job := range jobs {
		g.Go(func() error {
			res, err := o.Submit(ctx, job.Builder, job.Config)
			results[i] = BatchResult{Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	o.logger.Info("Batch finished", zap.Int("jobs", len(jobs)), zap.Int("failed", failed))
	return results
}
