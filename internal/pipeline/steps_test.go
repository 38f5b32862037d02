package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/nao1215/linkscan/internal/crawler"
	"github.com/nao1215/linkscan/internal/model"
	"github.com/nao1215/linkscan/internal/renderer"
)

// TestCrawlStep tests that the crawl step fills in the scan.
func TestCrawlStep(t *testing.T) {
	t.Parallel()

	t.Run("builds report and closes renderer", func(t *testing.T) {
		t.Parallel()

		r := newFakeRenderer(deadSite())
		var pages atomic.Int32
		step := NewCrawlStep(r,
			WithCrawlerOptions(crawler.WithWorkers(2)),
			WithPageCallback(func(*model.WebPage) { pages.Add(1) }),
		)

		if step.Name() != "crawl" {
			t.Errorf("got name %q, expected %q", step.Name(), "crawl")
		}

		scan := NewScan("http://site/")
		if err := step.Do(context.Background(), scan); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if scan.Result == nil || scan.Report == nil {
			t.Fatal("expected result and report")
		}
		if scan.Report.ID != scan.ID {
			t.Errorf("got report ID %q, expected %q", scan.Report.ID, scan.ID)
		}
		if scan.Report.Summary.TotalPages != 3 {
			t.Errorf("got %d pages, expected 3", scan.Report.Summary.TotalPages)
		}
		if scan.Report.Summary.DeadLinks != 1 {
			t.Errorf("got %d dead links, expected 1", scan.Report.Summary.DeadLinks)
		}
		if !scan.HasDeadLinks() {
			t.Error("expected HasDeadLinks")
		}
		if got := pages.Load(); got != 3 {
			t.Errorf("callback saw %d pages, expected 3", got)
		}
		if !r.isClosed() {
			t.Error("renderer must be closed after the crawl")
		}
	})

	t.Run("invalid seed leaves no report", func(t *testing.T) {
		t.Parallel()

		r := newFakeRenderer(nil)
		scan := NewScan("not a url")
		err := NewCrawlStep(r).Do(context.Background(), scan)

		if !errors.Is(err, crawler.ErrInvalidSeed) {
			t.Errorf("got %v, expected ErrInvalidSeed", err)
		}
		if scan.Report != nil {
			t.Error("expected no report")
		}
		if !r.isClosed() {
			t.Error("renderer must be closed on failure")
		}
	})

	t.Run("unavailable renderer keeps the partial report", func(t *testing.T) {
		t.Parallel()

		r := newFakeRenderer(deadSite())
		r.unavailable = map[model.URL]bool{"http://site/about": true}

		scan := NewScan("http://site/")
		err := NewCrawlStep(r, WithCrawlerOptions(crawler.WithWorkers(1))).Do(context.Background(), scan)

		if !errors.Is(err, renderer.ErrUnavailable) {
			t.Errorf("got %v, expected ErrUnavailable", err)
		}
		if scan.Report == nil || scan.Report.ErrorMessage == "" {
			t.Errorf("expected partial report with error message, got %+v", scan.Report)
		}
	})
}

// TestArchiveStep tests storing reports.
func TestArchiveStep(t *testing.T) {
	t.Parallel()

	t.Run("saves the report", func(t *testing.T) {
		t.Parallel()

		saver := &fakeSaver{}
		step := NewArchiveStep(saver)
		if step.Name() != "archive" {
			t.Errorf("got name %q, expected %q", step.Name(), "archive")
		}

		scan := NewScan("http://site/")
		scan.Report = &model.Report{ID: scan.ID, Seed: "http://site/"}

		if err := step.Do(context.Background(), scan); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if scan.ArchiveID != 1 {
			t.Errorf("got archive ID %d, expected 1", scan.ArchiveID)
		}
		if got := saver.saved(); len(got) != 1 || got[0] != scan.Report {
			t.Errorf("unexpected saved reports: %v", got)
		}
	})

	t.Run("requires a report", func(t *testing.T) {
		t.Parallel()

		err := NewArchiveStep(&fakeSaver{}).Do(context.Background(), NewScan("http://site/"))
		if !errors.Is(err, ErrNoReport) {
			t.Errorf("got %v, expected ErrNoReport", err)
		}
	})

	t.Run("wraps saver errors", func(t *testing.T) {
		t.Parallel()

		errDisk := errors.New("disk full")
		scan := NewScan("http://site/")
		scan.Report = &model.Report{ID: scan.ID}

		err := NewArchiveStep(&fakeSaver{err: errDisk}).Do(context.Background(), scan)
		if !errors.Is(err, errDisk) {
			t.Errorf("got %v, expected %v", err, errDisk)
		}
		if scan.ArchiveID != 0 {
			t.Error("archive ID must stay unset")
		}
	})
}

// TestCrawlAndArchivePipeline tests the two steps together.
func TestCrawlAndArchivePipeline(t *testing.T) {
	t.Parallel()

	saver := &fakeSaver{}
	p := New()
	p.AddSteps(NewCrawlStep(newFakeRenderer(deadSite())), NewArchiveStep(saver))

	scan := NewScan("http://site/")
	if err := p.Execute(context.Background(), scan); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(saver.saved()) != 1 {
		t.Fatalf("expected one archived report, got %d", len(saver.saved()))
	}
	if scan.ArchiveID == 0 {
		t.Error("expected archive ID")
	}
}
