package renderer

import (
	"errors"
	"maps"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("unknown engine", func(t *testing.T) {
		t.Parallel()

		_, err := New(Config{Engine: "lynx"})
		if !errors.Is(err, ErrUnknownEngine) {
			t.Errorf("expected ErrUnknownEngine, got %v", err)
		}
	})

	t.Run("default engine is plain HTTP", func(t *testing.T) {
		t.Parallel()

		r, err := New(Config{Timeout: time.Second})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer r.Close()

		if _, ok := r.(*HTTPRenderer); !ok {
			t.Errorf("got %T, expected *HTTPRenderer", r)
		}
	})

	t.Run("engine name is case-insensitive", func(t *testing.T) {
		t.Parallel()

		r, err := New(Config{Engine: "HTTP"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer r.Close()
	})

	t.Run("decorators wrap the engine", func(t *testing.T) {
		t.Parallel()

		r, err := New(Config{Engine: EngineHTTP, Attempts: 3, Rate: 5})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer r.Close()

		retrying, ok := r.(*Retrying)
		if !ok {
			t.Fatalf("got %T, expected *Retrying", r)
		}
		if _, ok := retrying.next.(*Limited); !ok {
			t.Errorf("got %T, expected *Limited inside *Retrying", retrying.next)
		}
	})
}

func TestBrowserHeaders(t *testing.T) {
	t.Parallel()

	if got := browserHeaders("", nil); got != nil {
		t.Errorf("expected nil, got %v", got)
	}

	headers := map[string]string{"X-Test": "1"}
	got := browserHeaders("session=abc", headers)
	want := map[string]string{"X-Test": "1", "Cookie": "session=abc"}
	if !maps.Equal(got, want) {
		t.Errorf("got %v, expected %v", got, want)
	}
	if _, ok := headers["Cookie"]; ok {
		t.Error("input headers must not be modified")
	}
}

func TestEngines(t *testing.T) {
	t.Parallel()

	if got := len(Engines()); got != 3 {
		t.Errorf("got %d engines, expected 3", got)
	}
}
