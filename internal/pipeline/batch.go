package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/franciscod/campus-fetch/internal/model"
)

// DefaultConcurrency is the number of courses synchronized at once when
// WithConcurrency is not given.
const DefaultConcurrency = 2

// BatchProcessor synchronizes several roots concurrently, one pipeline per root.
// Roots write to distinct directories, so they share nothing but the client.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each root.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of concurrent roots.
	concurrency int

	// logger is used for batch-level logging.
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

// WithConcurrency sets the maximum number of concurrent roots.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
// pipelineFactory is called once per root so that no state leaks between roots.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch synchronizes roots concurrently and returns their reports in
// the order of roots. A failed root does not stop the others; its error is
// in its report. The error return is set only when ctx was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, roots []model.SyncRoot) ([]*model.SyncReport, error) {
	results := make([]*model.SyncReport, len(roots))
	err := bp.ProcessBatchWithCallback(ctx, roots, func(report *model.SyncReport, index int) {
		// each index is written by exactly one goroutine
		results[index] = report
	})
	return results, err
}

// ProcessBatchWithCallback synchronizes roots and calls callback for each
// finished root, from the goroutine that ran it. The callback must be safe
// for concurrent use.
//
// Roots not started before ctx is cancelled get a report carrying the
// cancellation error, so callback is called exactly once per root.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	roots []model.SyncRoot,
	callback func(report *model.SyncReport, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_courses", len(roots),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	// Not errgroup.WithContext: one root failing must not cancel the others.
	var g errgroup.Group
	g.SetLimit(bp.concurrency)

	for i, root := range roots {
		g.Go(func() error {
			report := model.NewSyncReport(root)

			if err := ctx.Err(); err != nil {
				report.SetError(err)
				report.FinishedAt = report.StartedAt
				callback(report, i)
				return nil
			}

			bp.logger.Info("synchronizing course",
				"course", root.Name,
				"id", root.ID,
				"index", i+1,
				"total", len(roots),
			)

			if err := bp.pipelineFactory().Execute(ctx, report); err != nil {
				bp.logger.Warn("course failed",
					"course", root.Name,
					"error", err,
				)
			}

			callback(report, i)
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // goroutines never return errors

	bp.logger.Info("batch processing complete",
		"total_courses", len(roots),
		"elapsed", time.Since(startTime),
	)

	return ctx.Err()
}
