package renderer

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/linkscan/internal/model"
	"github.com/nao1215/linkscan/internal/transport"
)

func newTestHTTPRenderer(t *testing.T, opts ...HTTPOption) *HTTPRenderer {
	t.Helper()

	client, err := transport.NewClient(transport.WithTimeout(5 * time.Second))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	r := NewHTTPRenderer(client, opts...)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func newSiteServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body>
			<a href="/about">About</a>
			<a href=" /about ">About again</a>
			<a href="contact">Contact</a>
			<a href="">empty</a>
			<a>no href</a>
			<a href="mailto:me@example.com">Mail</a>
		</body></html>`))
	})
	mux.HandleFunc("/error", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/forbidden", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("/image.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	})
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs/new/", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/docs/new/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<a href="page">Page</a><a href="https://other.example/x">Ext</a>`))
	})
	mux.HandleFunc("/based", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><base href="/assets/"></head><body><a href="logo">Logo</a></body></html>`))
	})
	mux.HandleFunc("/latin1", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write([]byte("<p>caf\xe9</p><a href=\"/menu\">Menu</a>"))
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusOK)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// TestHTTPRendererFetch tests status mapping and anchor extraction.
func TestHTTPRendererFetch(t *testing.T) {
	t.Parallel()

	server := newSiteServer(t)
	r := newTestHTTPRenderer(t)
	ctx := context.Background()

	t.Run("OK page returns html and deduplicated anchors", func(t *testing.T) {
		t.Parallel()

		page, err := r.Fetch(ctx, model.URL(server.URL+"/"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.Status != model.StatusOK {
			t.Fatalf("got status %v", page.Status)
		}
		want := []string{"/about", "contact", "mailto:me@example.com"}
		if !slices.Equal(page.AnchorHrefs, want) {
			t.Errorf("got anchors %v, expected %v", page.AnchorHrefs, want)
		}
		if page.HTML == "" {
			t.Error("expected HTML")
		}
	})

	statusTests := []struct {
		name     string
		path     string
		expected model.NetStatus
	}{
		{"not found", "/missing", model.StatusHTTPNotFound},
		{"server error", "/error", model.StatusHTTPServerError},
		{"client error", "/forbidden", model.StatusHTTPClientError},
	}
	for _, tt := range statusTests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			page, err := r.Fetch(ctx, model.URL(server.URL+tt.path))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if page.Status != tt.expected {
				t.Errorf("got %v, expected %v", page.Status, tt.expected)
			}
			if page.HTML != "" || len(page.AnchorHrefs) != 0 {
				t.Error("failed page must not carry content")
			}
		})
	}

	t.Run("non-HTML resource is OK without anchors", func(t *testing.T) {
		t.Parallel()

		page, err := r.Fetch(ctx, model.URL(server.URL+"/image.png"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.Status != model.StatusOK || len(page.AnchorHrefs) != 0 || page.HTML != "" {
			t.Errorf("unexpected page: %+v", page)
		}
	})

	t.Run("relative anchors follow the redirect target", func(t *testing.T) {
		t.Parallel()

		page, err := r.Fetch(ctx, model.URL(server.URL+"/old"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.FinalURL != server.URL+"/docs/new/" {
			t.Errorf("FinalURL = %q", page.FinalURL)
		}
		want := []string{server.URL + "/docs/new/page", "https://other.example/x"}
		if !slices.Equal(page.AnchorHrefs, want) {
			t.Errorf("got %v, expected %v", page.AnchorHrefs, want)
		}
	})

	t.Run("base element is honored", func(t *testing.T) {
		t.Parallel()

		page, err := r.Fetch(ctx, model.URL(server.URL+"/based"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{server.URL + "/assets/logo"}
		if !slices.Equal(page.AnchorHrefs, want) {
			t.Errorf("got %v, expected %v", page.AnchorHrefs, want)
		}
	})

	t.Run("declared charset is decoded", func(t *testing.T) {
		t.Parallel()

		page, err := r.Fetch(ctx, model.URL(server.URL+"/latin1"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if want := "café"; !strings.Contains(page.HTML, want) {
			t.Errorf("HTML %q does not contain %q", page.HTML, want)
		}
	})
}

// TestHTTPRendererNetworkFailures tests failures that never reach HTTP.
func TestHTTPRendererNetworkFailures(t *testing.T) {
	t.Parallel()

	t.Run("timeout yields CONNECTION_TIMED_OUT", func(t *testing.T) {
		t.Parallel()

		server := newSiteServer(t)
		r := newTestHTTPRenderer(t, WithHTTPTimeout(100*time.Millisecond))

		page, err := r.Fetch(context.Background(), model.URL(server.URL+"/slow"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.Status != model.StatusTimedOut {
			t.Errorf("got %v, expected CONNECTION_TIMED_OUT", page.Status)
		}
	})

	t.Run("closed port yields CONNECTION_REFUSED", func(t *testing.T) {
		t.Parallel()

		listener, err := net.Listen("tcp", "127.0.0.1:0") //nolint:noctx // test code
		if err != nil {
			t.Fatalf("listen: %v", err)
		}
		addr := listener.Addr().String()
		listener.Close()

		r := newTestHTTPRenderer(t)
		page, err := r.Fetch(context.Background(), model.URL("http://"+addr+"/"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.Status != model.StatusConnectionRefused {
			t.Errorf("got %v, expected CONNECTION_REFUSED", page.Status)
		}
	})

	t.Run("untrusted certificate yields CERT_INVALID", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		r := newTestHTTPRenderer(t)
		page, err := r.Fetch(context.Background(), model.URL(server.URL+"/"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.Status != model.StatusCertInvalid {
			t.Errorf("got %v, expected CERT_INVALID", page.Status)
		}
	})

	t.Run("cancelled context returns the context error", func(t *testing.T) {
		t.Parallel()

		server := newSiteServer(t)
		r := newTestHTTPRenderer(t)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		page, err := r.Fetch(ctx, model.URL(server.URL+"/"))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got page=%v err=%v", page, err)
		}
		if errors.Is(err, ErrUnavailable) {
			t.Error("cancellation must not look like an unavailable renderer")
		}
	})
}
