package model

import (
	"slices"
	"time"
)

// Report is the serializable summary of one finished crawl.
// It is what the report writers render and what the archive stores,
// so it carries no HTML, only per-page statuses and dead links.
type Report struct {
	// ID identifies the crawl. It is a UUID assigned when the crawl starts.
	ID string `json:"id"`

	// Seed is the normalized seed URL.
	Seed URL `json:"seed"`

	// StartedAt is when the crawl started.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the crawl reached its final state.
	FinishedAt time.Time `json:"finished_at"`

	// State is the final crawl state (normally "done").
	State string `json:"state"`

	// Cancelled is true if the crawl was stopped before the frontier drained.
	// The report then only covers the pages fetched so far.
	Cancelled bool `json:"cancelled"`

	// ErrorMessage is set when the renderer failed and the crawl was aborted.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional

	// Pages lists every fetched page ordered by URL.
	Pages []PageStatus `json:"pages"`

	// DeadLinks groups dead links by the page that contains them.
	// Only pages with at least one dead link appear; ordered by page URL.
	DeadLinks []PageDeadLinks `json:"dead_links,omitempty"`

	// Summary holds the aggregate counts.
	Summary Summary `json:"summary"`
}

// PageStatus is the per-page line of a report.
type PageStatus struct {
	URL        URL       `json:"url"`
	Status     NetStatus `json:"status"`
	External   bool      `json:"external,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	Hash       string    `json:"hash,omitempty"`
}

// PageDeadLinks is the set of dead links found on one page.
type PageDeadLinks struct {
	Page      URL        `json:"page"`
	DeadLinks []DeadLink `json:"dead_links"`
}

// Summary contains aggregate counts for a report.
type Summary struct {
	// TotalPages is the number of fetched pages (same-site and external).
	TotalPages int `json:"total_pages"`

	// OKPages is the number of pages that loaded successfully.
	OKPages int `json:"ok_pages"`

	// FailedPages is TotalPages minus OKPages.
	FailedPages int `json:"failed_pages"`

	// PagesWithDeadLinks is the number of pages linking to at least one dead target.
	PagesWithDeadLinks int `json:"pages_with_dead_links"`

	// DeadLinks is the total number of (page, dead link) pairs.
	DeadLinks int `json:"dead_links"`

	// StatusCounts maps a status name to the number of pages with that status.
	StatusCounts map[string]int `json:"status_counts"`
}

// NewReport builds a report from crawl output.
// pages may be in any order; deadLinks maps a page URL to its dead links.
// The seed decides which pages are flagged as external.
func NewReport(id string, seed URL, pages []*WebPage, deadLinks map[URL][]DeadLink, sameSite func(a, b URL) bool) *Report {
	r := &Report{
		ID:    id,
		Seed:  seed,
		Pages: make([]PageStatus, 0, len(pages)),
		Summary: Summary{
			StatusCounts: make(map[string]int),
		},
	}

	for _, p := range pages {
		r.Pages = append(r.Pages, PageStatus{
			URL:        p.URL(),
			Status:     p.Status(),
			External:   sameSite != nil && !sameSite(seed, p.URL()),
			DurationMS: p.Duration().Milliseconds(),
			Hash:       p.Hash(),
		})
		r.Summary.StatusCounts[p.Status().String()]++
		if p.OK() {
			r.Summary.OKPages++
		}
	}
	slices.SortFunc(r.Pages, func(a, b PageStatus) int {
		switch {
		case a.URL < b.URL:
			return -1
		case a.URL > b.URL:
			return 1
		}
		return 0
	})
	r.Summary.TotalPages = len(r.Pages)
	r.Summary.FailedPages = r.Summary.TotalPages - r.Summary.OKPages

	for page, links := range deadLinks {
		if len(links) == 0 {
			continue
		}
		sorted := slices.Clone(links)
		slices.SortFunc(sorted, CompareDeadLinks)
		r.DeadLinks = append(r.DeadLinks, PageDeadLinks{Page: page, DeadLinks: sorted})
		r.Summary.DeadLinks += len(sorted)
	}
	slices.SortFunc(r.DeadLinks, func(a, b PageDeadLinks) int {
		switch {
		case a.Page < b.Page:
			return -1
		case a.Page > b.Page:
			return 1
		}
		return 0
	})
	r.Summary.PagesWithDeadLinks = len(r.DeadLinks)

	return r
}

// HasDeadLinks reports whether any page links to a dead target.
func (r *Report) HasDeadLinks() bool {
	return r.Summary.DeadLinks > 0
}

// DeadLinkSet flattens the report's dead links into a set keyed by
// (page, dead link). It is used to compare two crawls of the same seed.
func (r *Report) DeadLinkSet() map[PageDeadLink]struct{} {
	set := make(map[PageDeadLink]struct{}, r.Summary.DeadLinks)
	for _, group := range r.DeadLinks {
		for _, dl := range group.DeadLinks {
			set[PageDeadLink{Page: group.Page, DeadLink: dl}] = struct{}{}
		}
	}
	return set
}

// PageDeadLink is a dead link together with the page that references it.
// It is the flat row used by tabular output and crawl comparison.
type PageDeadLink struct {
	Page URL `json:"page"`
	DeadLink
}

// FlatDeadLinks returns all dead links as (page, link) rows in report order.
func (r *Report) FlatDeadLinks() []PageDeadLink {
	out := make([]PageDeadLink, 0, r.Summary.DeadLinks)
	for _, group := range r.DeadLinks {
		for _, dl := range group.DeadLinks {
			out = append(out, PageDeadLink{Page: group.Page, DeadLink: dl})
		}
	}
	return out
}

// Duration returns the wall-clock length of the crawl.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
