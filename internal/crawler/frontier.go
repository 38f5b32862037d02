package crawler

import (
	"context"
	"sync"

	"github.com/nao1215/linkscan/internal/model"
)

// item is a queued URL with its link distance from the seed.
type item struct {
	url   model.URL
	depth int
}

// frontier is the visited registry and the work queue behind one mutex.
//
// A URL is registered exactly once and, once registered, is either queued,
// being fetched, or stored in the result. When the frontier is stopped the
// queued URLs are dropped from the registry too, so every registered URL
// still ends up with a result.
type frontier struct {
	mu   sync.Mutex
	cond *sync.Cond

	registry map[model.URL]struct{}
	queue    []item

	// outstanding counts items taken but not yet marked done.
	outstanding int
	stopped     bool

	// interrupted is set when stop found work left, queued or in flight,
	// or when a taken URL was forgotten.
	interrupted bool

	// maxPages caps the registry size. 0 means unlimited.
	maxPages int
}

func newFrontier(maxPages int) *frontier {
	f := &frontier{
		registry: make(map[model.URL]struct{}),
		maxPages: maxPages,
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// offer registers url and queues it. It reports false when the URL was
// already registered, the page cap is reached, or the frontier is stopped.
func (f *frontier) offer(url model.URL, depth int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stopped {
		return false
	}
	if _, ok := f.registry[url]; ok {
		return false
	}
	if f.maxPages > 0 && len(f.registry) >= f.maxPages {
		return false
	}

	f.registry[url] = struct{}{}
	f.queue = append(f.queue, item{url: url, depth: depth})
	f.cond.Signal()
	return true
}

// take blocks until an item is available. It returns false once the queue
// is empty with nothing in flight, or when the frontier is stopped or ctx
// is done. The caller must call done after processing a taken item.
//
// ctx only ends the wait if something broadcasts; Crawl arranges that with
// context.AfterFunc(ctx, f.stop).
func (f *frontier) take(ctx context.Context) (item, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for len(f.queue) == 0 && f.outstanding > 0 && !f.stopped && ctx.Err() == nil {
		f.cond.Wait()
	}
	if f.stopped || ctx.Err() != nil || len(f.queue) == 0 {
		return item{}, false
	}

	it := f.queue[0]
	f.queue[0] = item{}
	f.queue = f.queue[1:]
	f.outstanding++
	return it, true
}

// done marks a taken item as processed, after its links were offered.
func (f *frontier) done() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.outstanding--
	if f.outstanding == 0 || f.stopped {
		f.cond.Broadcast()
	}
}

// forget removes a taken URL from the registry. It is used when the crawl
// ended before the fetch started and the URL will never get a result.
func (f *frontier) forget(url model.URL) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.registry, url)
	f.interrupted = true
}

// stop drops everything still queued and wakes all waiting workers.
// Stopping a drained frontier only prevents further offers.
func (f *frontier) stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stopped {
		return
	}
	f.stopped = true
	f.interrupted = f.interrupted || len(f.queue) > 0 || f.outstanding > 0
	for _, it := range f.queue {
		delete(f.registry, it.url)
	}
	f.queue = nil
	f.cond.Broadcast()
}

// wasInterrupted reports whether stop cut the crawl short.
func (f *frontier) wasInterrupted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.interrupted
}

// size returns the number of registered URLs.
func (f *frontier) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.registry)
}
