package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitepack/internal/model"
)

// Factory builds the pipeline and the initial run state for one seed.
// It is called once per seed so that no pipeline state leaks between
// sites, and so each seed can carry its own site settings.
type Factory func(seed string) (*Pipeline, *Run)

// BatchProcessor handles concurrent processing of multiple seed URLs.
// It uses errgroup to manage goroutines and respect concurrency limits.
type BatchProcessor struct {
	factory Factory

	// concurrency is the maximum number of sites processed at once.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores run summaries in seed order.
	// Access is synchronized via mutex.
	results []*model.RunSummary
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of sites processed at once.
// Default is 2 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(factory Factory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		factory:     factory,
		concurrency: 2,
		results:     make([]*model.RunSummary, 0),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch runs the pipeline for every seed concurrently.
// A failed run does not stop the others; its summary records the error.
//
// Returns a summary per seed in seed order. Seeds that never started
// because the batch was cancelled have a nil summary, and the error is
// the cancellation cause.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, seeds []string) ([]*model.RunSummary, error) {
	bp.logger.Info("starting batch processing",
		"total_sites", len(seeds),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	bp.results = make([]*model.RunSummary, len(seeds))

	err := bp.ProcessBatchWithCallback(ctx, seeds, func(run *Run, index int) {
		bp.mu.Lock()
		bp.results[index] = run.Summary
		bp.mu.Unlock()
	})

	bp.logger.Info("batch processing complete",
		"total_sites", len(seeds),
		"elapsed", time.Since(startTime),
	)

	return bp.results, err
}

// ProcessBatchWithCallback runs the pipeline for every seed and calls
// callback for each finished run. This is useful for streaming results.
//
// The callback receives the run and the index of its seed. It is called
// from the goroutine that ran the pipeline, so it must be safe for
// concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	seeds []string,
	callback func(run *Run, index int),
) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("processing site",
				"seed", seed,
				"index", i+1,
				"total", len(seeds),
			)

			p, run := bp.factory(seed)
			if err := p.Execute(ctx, run); err != nil {
				// The error is recorded in the run summary; other sites continue.
				bp.logger.Warn("site failed",
					"seed", seed,
					"run_id", run.ID,
					"error", err,
				)
			} else {
				bp.logger.Info("site completed",
					"seed", seed,
					"run_id", run.ID,
					"status", run.Summary.Status,
				)
			}

			callback(run, i)
			return nil
		})
	}

	return g.Wait()
}
