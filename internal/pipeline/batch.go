package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of seeds crawled at once when
// WithConcurrency is not given.
const DefaultConcurrency = 2

// Factory builds the pipeline for one seed. Each seed gets its own
// pipeline so steps that own resources, like the crawl step's renderer,
// are never shared.
type Factory func(seed string) (*Pipeline, error)

// BatchProcessor crawls multiple seeds concurrently.
// It uses errgroup to manage goroutines and respect the concurrency limit.
type BatchProcessor struct {
	// factory creates the pipeline for each seed.
	factory Factory

	// concurrency is the maximum number of concurrent crawls.
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

// WithConcurrency sets the maximum number of concurrent crawls.
// Non-positive values are ignored.
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
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch crawls every seed and returns one Scan per seed, in the
// order of seeds. A failed seed does not stop the others; its error is
// recorded in its Scan. Seeds not started before ctx is cancelled keep
// an empty Scan with Err set to the context error.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, seeds []string) []*Scan {
	scans := make([]*Scan, len(seeds))
	bp.run(ctx, seeds, scans, nil)
	return scans
}

// ProcessBatchWithCallback crawls every seed and calls callback for each
// finished scan with the seed's index. The callback is called from the
// goroutine that ran the scan, so it must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	seeds []string,
	callback func(scan *Scan, index int),
) {
	bp.run(ctx, seeds, make([]*Scan, len(seeds)), callback)
}

func (bp *BatchProcessor) run(ctx context.Context, seeds []string, scans []*Scan, callback func(*Scan, int)) {
	bp.logger.Info("starting batch processing",
		"total_seeds", len(seeds),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	for i, seed := range seeds {
		scans[i] = NewScan(seed)
	}

	var g errgroup.Group
	g.SetLimit(bp.concurrency)

	for i, scan := range scans {
		g.Go(func() error {
			bp.process(ctx, scan, i, len(scans))
			if callback != nil {
				callback(scan, i)
			}
			// Errors stay in the scan so the other seeds keep running.
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // goroutines never return errors

	bp.logger.Info("batch processing complete",
		"total_seeds", len(seeds),
		"elapsed", time.Since(startTime),
	)
}

func (bp *BatchProcessor) process(ctx context.Context, scan *Scan, index, total int) {
	if err := ctx.Err(); err != nil {
		scan.Err = err
		return
	}

	bp.logger.Info("crawling seed",
		"seed", scan.Seed,
		"index", index+1,
		"total", total,
	)

	p, err := bp.factory(scan.Seed)
	if err != nil {
		bp.logger.Warn("failed to build pipeline", "seed", scan.Seed, "error", err)
		scan.Err = err
		return
	}

	if err := p.Execute(ctx, scan); err != nil {
		if scan.Err == nil {
			scan.Err = err
		}
		bp.logger.Warn("scan failed", "seed", scan.Seed, "error", err)
		return
	}

	bp.logger.Info("scan completed", "seed", scan.Seed)
}
