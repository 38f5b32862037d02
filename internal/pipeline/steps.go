package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/linkscan/internal/crawler"
	"github.com/nao1215/linkscan/internal/model"
	"github.com/nao1215/linkscan/internal/renderer"
)

// CrawlStep crawls the scan's seed and builds its report.
//
// The step owns its renderer and closes it when the crawl is over, so a
// CrawlStep runs once. Build a new pipeline for every seed.
type CrawlStep struct {
	// renderer loads pages for the crawler.
	renderer renderer.Renderer

	// opts configure the crawler.
	opts []crawler.Option

	// onPage is called for every fetched page. May be nil.
	onPage func(*model.WebPage)

	// logger for structured logging.
	logger *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlerOptions passes options to the crawler.
func WithCrawlerOptions(opts ...crawler.Option) CrawlStepOption {
	return func(s *CrawlStep) {
		s.opts = append(s.opts, opts...)
	}
}

// WithPageCallback sets the function called for every fetched page.
// It runs on crawler worker goroutines.
func WithPageCallback(onPage func(*model.WebPage)) CrawlStepOption {
	return func(s *CrawlStep) {
		s.onPage = onPage
	}
}

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewCrawlStep creates a crawl step that loads pages with r.
func NewCrawlStep(r renderer.Renderer, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		renderer: r,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl step.
//
// A cancelled crawl is not an error here: the partial report is kept and
// the cancellation is reported by the pipeline before the next step.
// When the renderer becomes unavailable the partial report is kept as
// well and the error is returned.
func (s *CrawlStep) Do(ctx context.Context, scan *Scan) error {
	defer func() {
		if err := s.renderer.Close(); err != nil {
			s.logger.Debug("failed to close renderer", "seed", scan.Seed, "error", err)
		}
	}()

	opts := append([]crawler.Option{crawler.WithLogger(s.logger)}, s.opts...)
	c := crawler.New(s.renderer, opts...)

	result, err := c.Crawl(ctx, scan.Seed, s.onPage)
	if result != nil {
		scan.Result = result
		scan.Report = result.Report(scan.ID)

		stats := result.Stats()
		s.logger.Info("crawl completed",
			"seed", scan.Seed,
			"pages", stats.Pages,
			"dead_links", stats.DeadLinks,
			"cancelled", result.Cancelled(),
			"duration", stats.Duration,
		)
	}
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	return nil
}

// ReportSaver stores finished reports.
type ReportSaver interface {
	SaveReport(ctx context.Context, report *model.Report) (int64, error)
}

// ArchiveStep stores the scan's report so later crawls of the same seed
// can be compared with it.
type ArchiveStep struct {
	saver  ReportSaver
	logger *slog.Logger
}

// ArchiveStepOption configures an ArchiveStep.
type ArchiveStepOption func(*ArchiveStep)

// WithArchiveLogger sets a custom logger for the archive step.
func WithArchiveLogger(logger *slog.Logger) ArchiveStepOption {
	return func(s *ArchiveStep) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewArchiveStep creates an archive step that stores reports with saver.
func NewArchiveStep(saver ReportSaver, opts ...ArchiveStepOption) *ArchiveStep {
	s := &ArchiveStep{
		saver:  saver,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *ArchiveStep) Name() string {
	return "archive"
}

// Do executes the archive step.
func (s *ArchiveStep) Do(ctx context.Context, scan *Scan) error {
	if scan.Report == nil {
		return ErrNoReport
	}

	id, err := s.saver.SaveReport(ctx, scan.Report)
	if err != nil {
		return fmt.Errorf("failed to archive report: %w", err)
	}
	scan.ArchiveID = id

	s.logger.Debug("report archived",
		"seed", scan.Seed,
		"crawl_id", scan.ID,
		"archive_id", id,
	)

	return nil
}
