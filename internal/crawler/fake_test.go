package crawler

import (
	"context"
	"sync"

	"github.com/nao1215/linkscan/internal/model"
	"github.com/nao1215/linkscan/internal/renderer"
)

// fakeSite is an in-memory website for the crawler tests.
// URLs without an entry load with HTTP_NOT_FOUND.
type fakeSite struct {
	mu      sync.Mutex
	pages   map[model.URL]fakePage
	fetches map[model.URL]int

	// hold, if set, makes Fetch wait for release to be closed before
	// answering URLs in it. The wait ignores ctx like a page load in progress.
	hold    map[model.URL]bool
	release chan struct{}
	// unavailable, if set, makes Fetch fail with ErrUnavailable.
	unavailable map[model.URL]bool
	// started receives each URL as its fetch starts, when not nil.
	started chan model.URL
}

type fakePage struct {
	status model.NetStatus
	hrefs  []string
}

func newFakeSite(pages map[model.URL]fakePage) *fakeSite {
	return &fakeSite{
		pages:   pages,
		fetches: make(map[model.URL]int),
	}
}

func (s *fakeSite) Fetch(_ context.Context, url model.URL) (*renderer.Page, error) {
	s.mu.Lock()
	s.fetches[url]++
	p, ok := s.pages[url]
	held := s.hold[url]
	unavailable := s.unavailable[url]
	s.mu.Unlock()

	if s.started != nil {
		s.started <- url
	}
	if unavailable {
		return nil, renderer.ErrUnavailable
	}
	if held {
		<-s.release
	}
	if !ok {
		return &renderer.Page{Status: model.StatusHTTPNotFound}, nil
	}
	if !p.status.OK() {
		return &renderer.Page{Status: p.status}, nil
	}
	return &renderer.Page{
		Status:      model.StatusOK,
		HTML:        "<html></html>",
		AnchorHrefs: p.hrefs,
	}, nil
}

func (s *fakeSite) Close() error { return nil }

func (s *fakeSite) fetchCount(url model.URL) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches[url]
}

func (s *fakeSite) fetchedURLs() []model.URL {
	s.mu.Lock()
	defer s.mu.Unlock()
	urls := make([]model.URL, 0, len(s.fetches))
	for u := range s.fetches {
		urls = append(urls, u)
	}
	return urls
}

func okPage(hrefs ...string) fakePage {
	return fakePage{status: model.StatusOK, hrefs: hrefs}
}

func failedPage(status model.NetStatus) fakePage {
	return fakePage{status: status}
}

func pageURLs(r *Result) []model.URL {
	pages := r.Pages()
	urls := make([]model.URL, 0, len(pages))
	for _, p := range pages {
		urls = append(urls, p.URL())
	}
	return urls
}
