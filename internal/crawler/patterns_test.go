package crawler

import (
	"testing"

	"github.com/nao1215/linkscan/internal/model"
)

func TestMatchPattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern string
		path    string
		want    bool
	}{
		// Prefix patterns with /*
		{"admin prefix match", "/admin/*", "/admin/dashboard", true},
		{"admin prefix exact", "/admin/*", "/admin", true},
		{"admin prefix no match", "/admin/*", "/user/profile", false},
		{"admin prefix partial no match", "/admin/*", "/administrator", false},
		{"nested admin", "/admin/*", "/admin/users/edit", true},

		// Extension patterns with *.
		{"pdf extension", "*.pdf", "/docs/file.pdf", true},
		{"pdf extension nested", "*.pdf", "/a/b/c/report.pdf", true},
		{"pdf extension no match", "*.pdf", "/docs/file.txt", false},

		// Exact match patterns
		{"exact match", "/logout", "/logout", true},
		{"exact no match", "/logout", "/login", false},

		// Wildcards
		{"single char", "/api/v?/users", "/api/v1/users", true},
		{"single char no match", "/api/v?/users", "/api/v10/users", false},
		{"trailing star", "/logout*", "/logout-all", true},
		{"segment glob", "draft-*", "/blog/draft-1", true},

		// Root path
		{"root path", "/", "/", true},
		{"root no match prefix", "/admin/*", "/", false},

		// Invalid pattern never matches
		{"bad pattern", "/[", "/[", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := matchPattern(tt.pattern, tt.path)
			if got != tt.want {
				t.Errorf("matchPattern(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
			}
		})
	}
}

func TestPathFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		filter pathFilter
		url    model.URL
		want   bool
	}{
		{"no patterns allows all", pathFilter{}, "http://site/anything", true},
		{"ignored", pathFilter{ignore: []string{"/private/*"}}, "http://site/private/x", false},
		{"not ignored", pathFilter{ignore: []string{"/private/*"}}, "http://site/public", true},
		{"followed", pathFilter{follow: []string{"/docs/*"}}, "http://site/docs/intro", true},
		{"not followed", pathFilter{follow: []string{"/docs/*"}}, "http://site/blog", false},
		{"ignore wins over follow", pathFilter{ignore: []string{"*.pdf"}, follow: []string{"/docs/*"}}, "http://site/docs/a.pdf", false},
		{"query is not part of the path", pathFilter{ignore: []string{"/search"}}, "http://site/search?q=x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.filter.allows(tt.url); got != tt.want {
				t.Errorf("allows(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}
