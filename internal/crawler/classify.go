package crawler

import (
	"slices"
	"sync"

	"github.com/nao1215/linkscan/internal/model"
	"github.com/nao1215/linkscan/internal/urlnorm"
	"golang.org/x/sync/errgroup"
)

// classify resolves the dead links of every stored same-site OK page.
//
// A link is dead when its normalized target was fetched and did not load.
// Targets that were never fetched (filtered, beyond the depth or page
// limits, or dropped by cancellation) are skipped. Pages of other sites
// are not classified since their links were not followed.
func (c *Crawler) classify(res *Result) map[model.URL][]model.DeadLink {
	pages := res.Pages()
	seed := res.Seed()

	var (
		mu  sync.Mutex
		out = make(map[model.URL][]model.DeadLink)
	)

	var eg errgroup.Group
	eg.SetLimit(c.workers)
	for _, page := range pages {
		if !page.OK() || !urlnorm.SameSite(seed, page.URL()) {
			continue
		}
		eg.Go(func() error {
			dead := deadLinksOf(res, page)
			if len(dead) == 0 {
				return nil
			}
			mu.Lock()
			out[page.URL()] = dead
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait() //nolint:errcheck // workers never fail

	return out
}

// deadLinksOf returns the sorted, unique dead links of one page.
func deadLinksOf(res *Result, page *model.WebPage) []model.DeadLink {
	set := make(map[model.DeadLink]struct{})
	for _, target := range resolveTargets(page, nil) {
		fetched, ok := res.Page(target)
		if !ok || fetched.OK() {
			continue
		}
		set[model.NewDeadLink(target, fetched.Status())] = struct{}{}
	}
	if len(set) == 0 {
		return nil
	}

	dead := make([]model.DeadLink, 0, len(set))
	for d := range set {
		dead = append(dead, d)
	}
	slices.SortFunc(dead, model.CompareDeadLinks)
	return dead
}
