package pipeline

import (
	"context"
	"sync"

	"github.com/nao1215/linkscan/internal/model"
	"github.com/nao1215/linkscan/internal/renderer"
)

// fakeRenderer serves pages from a map. Unknown URLs load with
// HTTP_NOT_FOUND; URLs in unavailable fail with renderer.ErrUnavailable.
type fakeRenderer struct {
	mu          sync.Mutex
	links       map[model.URL][]string
	unavailable map[model.URL]bool
	closed      bool
}

func newFakeRenderer(links map[model.URL][]string) *fakeRenderer {
	return &fakeRenderer{links: links}
}

func (r *fakeRenderer) Fetch(ctx context.Context, url model.URL) (*renderer.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.unavailable[url] {
		return nil, renderer.ErrUnavailable
	}
	hrefs, ok := r.links[url]
	if !ok {
		return &renderer.Page{Status: model.StatusHTTPNotFound}, nil
	}
	return &renderer.Page{
		Status:      model.StatusOK,
		HTML:        "<html></html>",
		AnchorHrefs: hrefs,
	}, nil
}

func (r *fakeRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeRenderer) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// fakeSaver records saved reports.
type fakeSaver struct {
	mu      sync.Mutex
	reports []*model.Report
	err     error
}

func (s *fakeSaver) SaveReport(_ context.Context, report *model.Report) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	s.reports = append(s.reports, report)
	return int64(len(s.reports)), nil
}

func (s *fakeSaver) saved() []*model.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.Report(nil), s.reports...)
}

// deadSite is a three-page site with one dead link on the index.
func deadSite() map[model.URL][]string {
	return map[model.URL][]string{
		"http://site/":      {"/about", "/missing"},
		"http://site/about": {"/"},
	}
}
