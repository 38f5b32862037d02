package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func sameHost(a, b URL) bool {
	host := func(u URL) string {
		s := strings.TrimPrefix(strings.TrimPrefix(string(u), "https://"), "http://")
		if i := strings.IndexByte(s, '/'); i >= 0 {
			s = s[:i]
		}
		return s
	}
	return host(a) == host(b)
}

func sampleReport() *Report {
	pages := []*WebPage{
		NewWebPage("https://example.com/b", "b", nil),
		NewWebPage("https://example.com/", "root", []string{"/a", "/b", "/c"}),
		NewFailedWebPage("https://example.com/a", StatusHTTPNotFound),
		NewFailedWebPage("https://other.example/c", StatusNameNotResolved),
	}
	deadLinks := map[URL][]DeadLink{
		"https://example.com/": {
			NewDeadLink("https://other.example/c", StatusNameNotResolved),
			NewDeadLink("https://example.com/a", StatusHTTPNotFound),
		},
		"https://example.com/b": nil,
	}
	return NewReport("id-1", "https://example.com/", pages, deadLinks, sameHost)
}

// TestNewReport tests building a report from crawl output.
func TestNewReport(t *testing.T) {
	t.Parallel()

	r := sampleReport()

	t.Run("pages are sorted by URL", func(t *testing.T) {
		t.Parallel()

		want := []URL{
			"https://example.com/",
			"https://example.com/a",
			"https://example.com/b",
			"https://other.example/c",
		}
		if len(r.Pages) != len(want) {
			t.Fatalf("got %d pages, expected %d", len(r.Pages), len(want))
		}
		for i, u := range want {
			if r.Pages[i].URL != u {
				t.Errorf("page %d: got %s, expected %s", i, r.Pages[i].URL, u)
			}
		}
	})

	t.Run("external pages are flagged", func(t *testing.T) {
		t.Parallel()

		for _, p := range r.Pages {
			external := p.URL == "https://other.example/c"
			if p.External != external {
				t.Errorf("%s: External = %v", p.URL, p.External)
			}
		}
	})

	t.Run("summary counts", func(t *testing.T) {
		t.Parallel()

		s := r.Summary
		if s.TotalPages != 4 || s.OKPages != 2 || s.FailedPages != 2 {
			t.Errorf("unexpected page counts: %+v", s)
		}
		if s.DeadLinks != 2 || s.PagesWithDeadLinks != 1 {
			t.Errorf("unexpected dead link counts: %+v", s)
		}
		if s.StatusCounts["OK"] != 2 || s.StatusCounts["HTTP_NOT_FOUND"] != 1 || s.StatusCounts["NAME_NOT_RESOLVED"] != 1 {
			t.Errorf("unexpected status counts: %v", s.StatusCounts)
		}
	})

	t.Run("empty dead link groups are omitted and links are sorted", func(t *testing.T) {
		t.Parallel()

		if len(r.DeadLinks) != 1 {
			t.Fatalf("got %d groups, expected 1", len(r.DeadLinks))
		}
		group := r.DeadLinks[0]
		if group.Page != "https://example.com/" {
			t.Errorf("got page %s", group.Page)
		}
		if group.DeadLinks[0].URL != "https://example.com/a" {
			t.Errorf("dead links not sorted: %v", group.DeadLinks)
		}
	})
}

// TestReportDeadLinkSet tests flattening dead links for comparison.
func TestReportDeadLinkSet(t *testing.T) {
	t.Parallel()

	r := sampleReport()
	set := r.DeadLinkSet()
	if len(set) != 2 {
		t.Fatalf("got %d entries, expected 2", len(set))
	}
	key := PageDeadLink{
		Page:     "https://example.com/",
		DeadLink: NewDeadLink("https://example.com/a", StatusHTTPNotFound),
	}
	if _, ok := set[key]; !ok {
		t.Errorf("missing %v", key)
	}

	flat := r.FlatDeadLinks()
	if len(flat) != 2 || flat[0].URL != "https://example.com/a" {
		t.Errorf("unexpected flat rows: %v", flat)
	}
	if !r.HasDeadLinks() {
		t.Error("expected HasDeadLinks")
	}
}

// TestReportDuration tests the duration helper.
func TestReportDuration(t *testing.T) {
	t.Parallel()

	r := &Report{}
	if r.Duration() != 0 {
		t.Error("expected zero duration for unset times")
	}

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r.StartedAt = start
	r.FinishedAt = start.Add(3 * time.Second)
	if r.Duration() != 3*time.Second {
		t.Errorf("got %v", r.Duration())
	}
}

// TestReportJSON tests that a report round-trips through JSON.
func TestReportJSON(t *testing.T) {
	t.Parallel()

	r := sampleReport()
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"status":"HTTP_NOT_FOUND"`) {
		t.Errorf("status not serialized by name: %s", data)
	}

	var decoded Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded.DeadLinkSet()) != 2 {
		t.Error("dead links lost in round trip")
	}
}
