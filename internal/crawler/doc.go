// Package crawler walks a website and finds its dead links.
//
// # Architecture
//
// A crawl runs in two passes. The first pass fetches pages with a pool of
// workers sharing a frontier: a visited registry and a FIFO queue behind a
// single mutex. Every URL is normalized before it is offered, so each page
// is fetched at most once. Links on same-site pages are followed; links to
// other sites are fetched once for their status but never expanded.
//
// The second pass starts when the frontier is exhausted. It looks up every
// link of every same-site page in the fetched results and records the
// links whose target did not load.
//
// # Usage
//
//	r, _ := renderer.New(renderer.Config{Engine: renderer.EngineHTTP})
//	defer r.Close()
//
//	c := crawler.New(r, crawler.WithWorkers(8), crawler.WithMaxDepth(3))
//	result, err := c.Crawl(ctx, "https://example.com", nil)
//	for _, page := range result.PagesWithDeadLinks() {
//	    fmt.Println(page, result.DeadLinksOf(page))
//	}
//
// # Cancellation
//
// Cancelling the context stops the crawl. Page loads already started run
// to completion and are kept; URLs still waiting to start are dropped, and
// dead links are resolved over what was fetched.
package crawler
