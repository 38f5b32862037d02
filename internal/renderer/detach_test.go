package renderer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nao1215/linkscan/internal/model"
)

// ctxRecorder reports whether the context it was called with is still live
// after the caller's context was cancelled.
type ctxRecorder struct {
	cancel func()
	errs   chan error
}

func (r *ctxRecorder) Fetch(ctx context.Context, _ model.URL) (*Page, error) {
	r.cancel()
	r.errs <- ctx.Err()
	return &Page{Status: model.StatusOK}, nil
}

func (r *ctxRecorder) Close() error { return nil }

func TestDetach(t *testing.T) {
	t.Parallel()

	t.Run("navigation is not cancelled with the caller", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		rec := &ctxRecorder{cancel: cancel, errs: make(chan error, 1)}

		page, err := NewLimited(rec, 100).Fetch(Detach(ctx), "https://example.com/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.Status != model.StatusOK {
			t.Errorf("got %v, expected OK", page.Status)
		}
		if err := <-rec.errs; err != nil {
			t.Errorf("navigation context was cancelled: %v", err)
		}
	})

	t.Run("start context of a plain context is itself", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if !errors.Is(startContext(ctx).Err(), context.Canceled) {
			t.Error("expected the cancelled context back")
		}
	})

	t.Run("detaching twice keeps the original start context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
		defer cancel()
		<-ctx.Done()

		d := Detach(Detach(ctx))
		if d.Err() != nil {
			t.Errorf("detached context is done: %v", d.Err())
		}
		if !errors.Is(startContext(d).Err(), context.DeadlineExceeded) {
			t.Errorf("got %v, expected the original deadline", startContext(d).Err())
		}
	})
}
