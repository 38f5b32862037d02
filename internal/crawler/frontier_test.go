package crawler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/linkscan/internal/model"
)

func TestFrontierOffer(t *testing.T) {
	t.Parallel()

	t.Run("duplicates are rejected", func(t *testing.T) {
		t.Parallel()

		f := newFrontier(0)
		if !f.offer("http://site/a", 0) {
			t.Fatal("first offer must succeed")
		}
		if f.offer("http://site/a", 3) {
			t.Error("second offer must be rejected")
		}
		if f.size() != 1 {
			t.Errorf("got size %d, expected 1", f.size())
		}
	})

	t.Run("page cap", func(t *testing.T) {
		t.Parallel()

		f := newFrontier(2)
		f.offer("http://site/a", 0)
		f.offer("http://site/b", 0)
		if f.offer("http://site/c", 0) {
			t.Error("offer beyond the cap must be rejected")
		}
	})

	t.Run("concurrent offers register once", func(t *testing.T) {
		t.Parallel()

		f := newFrontier(0)
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			accepted int
		)
		for range 32 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if f.offer("http://site/same", 1) {
					mu.Lock()
					accepted++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		if accepted != 1 {
			t.Errorf("got %d accepted offers, expected 1", accepted)
		}
	})
}

func TestFrontierTake(t *testing.T) {
	t.Parallel()

	t.Run("FIFO order and exhaustion", func(t *testing.T) {
		t.Parallel()

		f := newFrontier(0)
		f.offer("http://site/1", 0)
		f.offer("http://site/2", 1)

		ctx := context.Background()
		for _, want := range []model.URL{"http://site/1", "http://site/2"} {
			it, ok := f.take(ctx)
			if !ok || it.url != want {
				t.Fatalf("got %v %v, expected %s", it, ok, want)
			}
			f.done()
		}
		if _, ok := f.take(ctx); ok {
			t.Error("empty frontier with nothing in flight must be exhausted")
		}
	})

	t.Run("waits for in-flight items", func(t *testing.T) {
		t.Parallel()

		f := newFrontier(0)
		f.offer("http://site/1", 0)
		ctx := context.Background()

		if _, ok := f.take(ctx); !ok {
			t.Fatal("expected an item")
		}

		got := make(chan model.URL, 1)
		go func() {
			it, ok := f.take(ctx)
			if ok {
				got <- it.url
				f.done()
			}
			close(got)
		}()

		select {
		case <-got:
			t.Fatal("take must block while an item is in flight")
		case <-time.After(50 * time.Millisecond):
		}

		f.offer("http://site/2", 1)
		f.done()

		if u := <-got; u != "http://site/2" {
			t.Errorf("got %q, expected http://site/2", u)
		}
	})

	t.Run("stop wakes waiters and drops queued URLs", func(t *testing.T) {
		t.Parallel()

		f := newFrontier(0)
		f.offer("http://site/1", 0)
		ctx := context.Background()
		if _, ok := f.take(ctx); !ok {
			t.Fatal("expected an item")
		}

		woke := make(chan bool, 1)
		go func() {
			_, ok := f.take(ctx)
			woke <- ok
		}()

		f.offer("http://site/queued", 1)
		f.stop()

		select {
		case ok := <-woke:
			if ok {
				// The waiter may have taken the queued item before stop.
				f.done()
			}
		case <-time.After(time.Second):
			t.Fatal("stop did not wake the waiter")
		}

		if f.offer("http://site/late", 1) {
			t.Error("offer after stop must be rejected")
		}
		if _, ok := f.take(ctx); ok {
			t.Error("take after stop must fail")
		}
	})

	t.Run("forget removes from registry", func(t *testing.T) {
		t.Parallel()

		f := newFrontier(0)
		f.offer("http://site/1", 0)
		f.forget("http://site/1")
		if f.size() != 0 {
			t.Errorf("got size %d, expected 0", f.size())
		}
		if !f.wasInterrupted() {
			t.Error("a forgotten URL interrupts the crawl")
		}
	})
}

func TestFrontierStopInterrupted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("stop after draining is not an interruption", func(t *testing.T) {
		t.Parallel()

		f := newFrontier(0)
		f.offer("http://site/", 0)
		if _, ok := f.take(ctx); !ok {
			t.Fatal("expected the seed")
		}
		f.done()
		if _, ok := f.take(ctx); ok {
			t.Fatal("expected the frontier to be drained")
		}

		f.stop()
		if f.wasInterrupted() {
			t.Error("a drained frontier must not count as interrupted")
		}
		if f.offer("http://site/late", 1) {
			t.Error("offer after stop must be rejected")
		}
	})

	t.Run("stop with an item in flight", func(t *testing.T) {
		t.Parallel()

		f := newFrontier(0)
		f.offer("http://site/", 0)
		if _, ok := f.take(ctx); !ok {
			t.Fatal("expected the seed")
		}
		f.stop()
		f.done()
		if !f.wasInterrupted() {
			t.Error("expected interrupted")
		}
	})

	t.Run("stop with queued items", func(t *testing.T) {
		t.Parallel()

		f := newFrontier(0)
		f.offer("http://site/", 0)
		f.stop()
		if !f.wasInterrupted() {
			t.Error("expected interrupted")
		}
	})
}
