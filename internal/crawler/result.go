package crawler

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/nao1215/linkscan/internal/model"
	"github.com/nao1215/linkscan/internal/urlnorm"
)

// State is the lifecycle stage of a crawl.
type State int

const (
	// StateSeeded means the seed is queued but no worker has started.
	StateSeeded State = iota
	// StateRunning means workers are fetching pages.
	StateRunning
	// StateDraining means the frontier is exhausted or stopped and dead
	// links are being resolved.
	StateDraining
	// StateDone means the result is complete and will not change.
	StateDone
)

// String returns the lower-case name of the state.
func (s State) String() string {
	switch s {
	case StateSeeded:
		return "seeded"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Result holds the pages and dead links of one crawl.
// It is safe for concurrent use; once Crawl returns it no longer changes.
type Result struct {
	seed model.URL

	mu         sync.RWMutex
	pages      map[model.URL]*model.WebPage
	deadLinks  map[model.URL][]model.DeadLink
	state      State
	cancelled  bool
	err        error
	startedAt  time.Time
	finishedAt time.Time
}

// Stats summarizes a Result.
type Stats struct {
	// Pages is the number of fetched URLs, external ones included.
	Pages int
	// OKPages is the number of pages that loaded.
	OKPages int
	// ExternalPages is the number of fetched URLs on other sites.
	ExternalPages int
	// PagesWithDeadLinks is the number of pages linking to a dead target.
	PagesWithDeadLinks int
	// DeadLinks is the number of (page, dead link) pairs.
	DeadLinks int
	// Duration is the wall time of the crawl.
	Duration time.Duration
}

func newResult(seed model.URL) *Result {
	return &Result{
		seed:      seed,
		pages:     make(map[model.URL]*model.WebPage),
		deadLinks: make(map[model.URL][]model.DeadLink),
		state:     StateSeeded,
		startedAt: time.Now(),
	}
}

func (r *Result) store(page *model.WebPage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages[page.URL()] = page
}

func (r *Result) setState(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = s
}

func (r *Result) setCancelled(cancelled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = cancelled
}

func (r *Result) setDeadLinks(deadLinks map[model.URL][]model.DeadLink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deadLinks = deadLinks
}

func (r *Result) finish(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
	r.state = StateDone
	r.finishedAt = time.Now()
}

// Seed returns the normalized seed URL.
func (r *Result) Seed() model.URL {
	return r.seed
}

// State returns the current crawl state.
func (r *Result) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Cancelled reports whether the context ended the crawl before the frontier
// drained. The result then covers only the pages fetched until then. A
// context that ends after the last page was handled does not count.
func (r *Result) Cancelled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cancelled
}

// Err returns the error that aborted the crawl, if any.
func (r *Result) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// Pages returns every fetched page ordered by URL.
func (r *Result) Pages() []*model.WebPage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pages := make([]*model.WebPage, 0, len(r.pages))
	for _, url := range slices.Sorted(maps.Keys(r.pages)) {
		pages = append(pages, r.pages[url])
	}
	return pages
}

// Page returns the page stored for url. url must be normalized.
func (r *Result) Page(url model.URL) (*model.WebPage, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.pages[url]
	return p, ok
}

// DeadLinksOf returns the dead links found on page, ordered by URL then status.
// Only same-site pages are classified: pages of other sites are fetched for
// their status but their links are not followed, so they have none.
func (r *Result) DeadLinksOf(page model.URL) []model.DeadLink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.deadLinks[page])
}

// PagesWithDeadLinks returns the URLs of pages with at least one dead link, ordered.
func (r *Result) PagesWithDeadLinks() []model.URL {
	r.mu.RLock()
	defer r.mu.RUnlock()

	urls := make([]model.URL, 0, len(r.deadLinks))
	for url, links := range r.deadLinks {
		if len(links) > 0 {
			urls = append(urls, url)
		}
	}
	slices.Sort(urls)
	return urls
}

// Stats returns aggregate counts.
func (r *Result) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Stats{Pages: len(r.pages)}
	for url, p := range r.pages {
		if p.OK() {
			s.OKPages++
		}
		if !urlnorm.SameSite(r.seed, url) {
			s.ExternalPages++
		}
	}
	for _, links := range r.deadLinks {
		if len(links) > 0 {
			s.PagesWithDeadLinks++
			s.DeadLinks += len(links)
		}
	}

	end := r.finishedAt
	if end.IsZero() {
		end = time.Now()
	}
	s.Duration = end.Sub(r.startedAt)
	return s
}

// Report converts the result into a serializable report with the given ID.
func (r *Result) Report(id string) *model.Report {
	pages := r.Pages()

	r.mu.RLock()
	defer r.mu.RUnlock()

	report := model.NewReport(id, r.seed, pages, r.deadLinks, urlnorm.SameSite)
	report.StartedAt = r.startedAt
	report.FinishedAt = r.finishedAt
	report.State = r.state.String()
	report.Cancelled = r.cancelled
	if r.err != nil {
		report.ErrorMessage = r.err.Error()
	}
	return report
}
