package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/linkscan/internal/model"
	"github.com/nao1215/linkscan/internal/renderer"
	"github.com/nao1215/linkscan/internal/urlnorm"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the number of concurrent fetches when WithWorkers is not given.
const DefaultWorkers = 4

// Crawler walks a site starting from a seed URL and reports the dead links
// found on its pages.
//
// A Crawler only holds configuration; every Crawl call has its own state,
// so one Crawler may run several crawls at once.
type Crawler struct {
	// renderer loads pages. It must be safe for concurrent use.
	renderer renderer.Renderer

	// workers is the number of pages fetched concurrently.
	workers int

	// maxDepth limits how many links away from the seed pages are fetched.
	// 0 means unlimited.
	maxDepth int

	// maxPages limits how many distinct URLs are fetched, external ones
	// included. 0 means unlimited.
	maxPages int

	// filter skips same-site URLs by path.
	filter pathFilter

	// logger receives progress and debug output.
	logger *slog.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithWorkers sets the number of concurrent fetches. Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithMaxDepth sets how many links away from the seed pages are fetched.
// 0 = unlimited, 1 = the seed and the pages it links to, etc.
func WithMaxDepth(depth int) Option {
	return func(c *Crawler) {
		c.maxDepth = depth
	}
}

// WithMaxPages sets the maximum number of URLs fetched. 0 = unlimited.
func WithMaxPages(maxPages int) Option {
	return func(c *Crawler) {
		c.maxPages = maxPages
	}
}

// WithIgnorePatterns sets URL path patterns to skip during crawling.
// Patterns use glob syntax (e.g., "/admin/*", "*.pdf", "/logout*").
// Skipped URLs are neither fetched nor reported.
func WithIgnorePatterns(patterns []string) Option {
	return func(c *Crawler) {
		c.filter.ignore = patterns
	}
}

// WithFollowPatterns restricts crawling to same-site URLs whose path
// matches at least one pattern. Empty means all paths are allowed.
func WithFollowPatterns(patterns []string) Option {
	return func(c *Crawler) {
		c.filter.follow = patterns
	}
}

// WithLogger sets the logger. nil keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Crawler that loads pages with r.
func New(r renderer.Renderer, opts ...Option) *Crawler {
	c := &Crawler{
		renderer: r,
		workers:  DefaultWorkers,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Crawl fetches the seed and, transitively, every same-site page it links
// to. Links to other sites are fetched once to learn their status but are
// not followed. When the frontier is exhausted the dead links of every
// same-site page are resolved.
//
// onPage, if not nil, is called from a worker goroutine for every stored
// page and must not block.
//
// Crawl returns ErrInvalidSeed (and no result) when seed cannot be
// normalized. When ctx is cancelled it stops taking new URLs, lets the
// page loads already started finish and returns the partial result with a
// nil error; Result.Cancelled reports true unless the crawl had already
// run out of URLs. Fetches still waiting to start (rate limit, navigation
// delay) are dropped and leave no page. When the renderer becomes unavailable
// the crawl is aborted and the partial result is returned together with
// an error wrapping renderer.ErrUnavailable.
func (c *Crawler) Crawl(ctx context.Context, seed string, onPage func(*model.WebPage)) (*Result, error) {
	seedURL, err := urlnorm.Normalize(seed, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidSeed, seed, err)
	}

	res := newResult(seedURL)
	f := newFrontier(c.maxPages)
	f.offer(seedURL, 0)

	stopOnCancel := context.AfterFunc(ctx, f.stop)
	defer stopOnCancel()

	res.setState(StateRunning)
	c.logger.Debug("crawl started", "seed", string(seedURL), "workers", c.workers)

	eg, egCtx := errgroup.WithContext(ctx)
	for range c.workers {
		eg.Go(func() error {
			return c.work(egCtx, f, res, onPage)
		})
	}
	crawlErr := eg.Wait()
	if ctx.Err() != nil {
		// Workers may see ctx done before the AfterFunc has run.
		f.stop()
	}

	res.setState(StateDraining)
	res.setCancelled(ctx.Err() != nil && f.wasInterrupted())
	res.setDeadLinks(c.classify(res))
	res.finish(crawlErr)

	c.logger.Debug("crawl finished",
		"seed", string(seedURL),
		"pages", f.size(),
		"cancelled", res.Cancelled(),
	)
	return res, crawlErr
}

// work takes URLs until the frontier is exhausted or stopped.
func (c *Crawler) work(ctx context.Context, f *frontier, res *Result, onPage func(*model.WebPage)) error {
	for {
		it, ok := f.take(ctx)
		if !ok {
			return nil
		}
		err := c.visit(ctx, f, res, it, onPage)
		f.done()
		if err != nil {
			return err
		}
	}
}

// visit fetches one URL, stores the page and offers its links.
func (c *Crawler) visit(ctx context.Context, f *frontier, res *Result, it item, onPage func(*model.WebPage)) error {
	start := time.Now()
	fetched, err := c.renderer.Fetch(renderer.Detach(ctx), it.url)
	elapsed := time.Since(start)

	if err != nil {
		switch {
		case errors.Is(err, renderer.ErrUnavailable):
			f.stop()
			page := model.NewFailedWebPage(it.url, model.StatusFailed).WithTiming(start, elapsed)
			res.store(page)
			if onPage != nil {
				onPage(page)
			}
			return fmt.Errorf("crawl aborted at %s: %w", it.url, err)
		case ctx.Err() != nil:
			// The crawl ended while the fetch waited to start; the URL has no result.
			f.forget(it.url)
			return nil
		default:
			c.logger.Debug("unexpected renderer error", "url", string(it.url), "error", err)
			fetched = &renderer.Page{Status: model.StatusFailed}
		}
	}

	var page *model.WebPage
	if fetched.Status.OK() {
		page = model.NewWebPage(it.url, fetched.HTML, fetched.AnchorHrefs)
	} else {
		page = model.NewFailedWebPage(it.url, fetched.Status)
	}
	page = page.WithTiming(start, elapsed)
	res.store(page)

	c.logger.Debug("page fetched",
		"url", string(it.url),
		"status", page.Status().String(),
		"depth", it.depth,
		"latency_ms", elapsed.Milliseconds(),
	)
	if onPage != nil {
		onPage(page)
	}

	if !c.shouldExpand(res.Seed(), page, it.depth) {
		return nil
	}
	for _, target := range c.targets(page) {
		if urlnorm.SameSite(res.Seed(), target) && !c.filter.allows(target) {
			continue
		}
		f.offer(target, it.depth+1)
	}
	return nil
}

// shouldExpand reports whether the links of page are followed.
func (c *Crawler) shouldExpand(seed model.URL, page *model.WebPage, depth int) bool {
	if !page.OK() || !urlnorm.SameSite(seed, page.URL()) {
		return false
	}
	return c.maxDepth == 0 || depth < c.maxDepth
}

// targets normalizes the anchors of page and logs the ones that are skipped.
func (c *Crawler) targets(page *model.WebPage) []model.URL {
	return resolveTargets(page, func(href string, err error) {
		c.logger.Debug("skipping link", "page", string(page.URL()), "href", href, "reason", err)
	})
}

// resolveTargets normalizes the anchors of page, dropping duplicates and
// the ones that cannot be crawled (mailto:, javascript:, malformed hrefs).
// skip, if not nil, is called for every dropped href.
func resolveTargets(page *model.WebPage, skip func(href string, err error)) []model.URL {
	anchors := page.Anchors()
	seen := make(map[model.URL]struct{}, len(anchors))
	out := make([]model.URL, 0, len(anchors))
	for _, href := range anchors {
		target, err := urlnorm.Normalize(href, page.URL())
		if err != nil {
			if skip != nil {
				skip(href, err)
			}
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}
