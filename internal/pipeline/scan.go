package pipeline

import (
	"github.com/google/uuid"
	"github.com/nao1215/linkscan/internal/crawler"
	"github.com/nao1215/linkscan/internal/model"
)

// Scan is the state of one seed as it moves through a pipeline.
type Scan struct {
	// Seed is the URL as given by the user.
	Seed string

	// ID is the crawl's UUID. It is assigned when the scan is created and
	// identifies the report in the archive.
	ID string

	// Result is the crawl result, set by CrawlStep.
	Result *crawler.Result

	// Report is the serializable report, set by CrawlStep.
	Report *model.Report

	// ArchiveID is the report's archive identifier, set by ArchiveStep.
	ArchiveID int64

	// Err is the first step error.
	Err error

	// PerformedSteps lists the steps that ran, in order.
	PerformedSteps []string
}

// NewScan creates a Scan for seed with a fresh crawl ID.
func NewScan(seed string) *Scan {
	return &Scan{
		Seed: seed,
		ID:   uuid.NewString(),
	}
}

// HasDeadLinks reports whether the scan's report lists dead links.
func (s *Scan) HasDeadLinks() bool {
	return s.Report != nil && s.Report.HasDeadLinks()
}
