package renderer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nao1215/linkscan/internal/model"
)

func TestLimited(t *testing.T) {
	t.Parallel()

	const url = model.URL("https://example.com/")

	t.Run("spaces out navigations beyond the burst", func(t *testing.T) {
		t.Parallel()

		stub := &scriptedRenderer{results: []scriptedResult{{page: &Page{Status: model.StatusOK}}}}
		l := NewLimited(stub, 20) // burst 20, then one every 50ms

		start := time.Now()
		for range 22 {
			if _, err := l.Fetch(context.Background(), url); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
			t.Errorf("got %v, expected at least 80ms", elapsed)
		}
		if got := stub.callCount(); got != 22 {
			t.Errorf("got %d calls, expected 22", got)
		}
	})

	t.Run("cancelled context returns the context error", func(t *testing.T) {
		t.Parallel()

		stub := &scriptedRenderer{results: []scriptedResult{{page: &Page{Status: model.StatusOK}}}}
		l := NewLimited(stub, 1)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := l.Fetch(ctx, url); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("deadline shorter than the wait ends with the context error", func(t *testing.T) {
		t.Parallel()

		stub := &scriptedRenderer{results: []scriptedResult{{page: &Page{Status: model.StatusOK}}}}
		l := NewLimited(stub, 0.5) // one token every two seconds

		if _, err := l.Fetch(context.Background(), url); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		page, err := l.Fetch(ctx, url)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected context.DeadlineExceeded, got page=%v err=%v", page, err)
		}
		if ctx.Err() == nil {
			t.Error("Fetch returned before the deadline passed")
		}
		if got := stub.callCount(); got != 1 {
			t.Errorf("got %d calls, expected 1", got)
		}
	})

	t.Run("detached fetch still stops waiting when the crawl is cancelled", func(t *testing.T) {
		t.Parallel()

		stub := &scriptedRenderer{results: []scriptedResult{{page: &Page{Status: model.StatusOK}}}}
		l := NewLimited(stub, 0.5)
		if _, err := l.Fetch(context.Background(), url); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(20*time.Millisecond, cancel)

		if _, err := l.Fetch(Detach(ctx), url); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if got := stub.callCount(); got != 1 {
			t.Errorf("got %d calls, expected 1", got)
		}
	})

	t.Run("burst is at least one", func(t *testing.T) {
		t.Parallel()

		l := NewLimited(&scriptedRenderer{}, 0.1)
		if got := l.limiter.Burst(); got != 1 {
			t.Errorf("got burst %d, expected 1", got)
		}
	})
}
