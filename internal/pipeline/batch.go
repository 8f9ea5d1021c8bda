package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency crawls seeds one after another.
const DefaultBatchConcurrency = 1

// BatchProcessor handles processing of multiple seeds.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline because:
//  1. It keeps the Pipeline focused on single-seed execution
//  2. It provides cleaner separation of concerns
//
// Every seed runs its own crawl with its own frontier and visited set, so
// concurrent seeds never share crawl state.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each seed.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of concurrent crawls.
	concurrency int

	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent crawls.
// Values below 1 are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called for each seed to create a fresh
// pipeline instance, so pipeline state never leaks between seeds.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultBatchConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch crawls the seeds and returns one job per seed, in seed
// order. Jobs of seeds that never started because ctx was cancelled carry
// ctx.Err() and no report.
//
// Failures of single seeds are recorded in their jobs; the returned error
// is only the context error.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, seeds []string) ([]*Job, error) {
	jobs := make([]*Job, len(seeds))
	err := bp.ProcessBatchWithCallback(ctx, seeds, func(job *Job) {
		jobs[job.Index] = job
	})
	return jobs, err
}

// ProcessBatchWithCallback crawls the seeds and calls callback with each
// finished job. The callback runs on the goroutine that finished the job
// and must be safe for concurrent use when concurrency is above 1.
func (bp *BatchProcessor) ProcessBatchWithCallback(ctx context.Context, seeds []string, callback func(job *Job)) error {
	bp.logger.Info("starting batch processing",
		"total_seeds", len(seeds),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// The group context is only cancelled by the parent; goroutines never
	// return errors, so one failing seed does not stop the others.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			job := NewJob(seed, i)

			if err := gctx.Err(); err != nil {
				job.Err = err
				callback(job)
				return nil
			}

			p := bp.pipelineFactory()
			bp.logger.Info("crawling seed",
				"seed", seed,
				"index", i+1,
				"total", len(seeds),
				"steps", p.StepNames(),
			)

			if err := p.Execute(gctx, job); err != nil {
				if job.Err == nil {
					job.Err = err
				}
				bp.logger.Warn("seed failed",
					"seed", seed,
					"error", err,
				)
			} else {
				bp.logger.Info("seed completed",
					"seed", seed,
				)
			}

			callback(job)
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // goroutines never return errors

	bp.logger.Info("batch processing complete",
		"total_seeds", len(seeds),
		"elapsed", time.Since(startTime),
	)

	return ctx.Err()
}
