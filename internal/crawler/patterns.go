package crawler

import (
	"path"
	"strings"

	"github.com/nao1215/linkscan/internal/model"
	"github.com/nao1215/linkscan/internal/urlnorm"
)

// pathFilter decides which same-site URLs are fetched, by glob patterns
// over the URL path.
//
// A path matching any ignore pattern is skipped. When follow patterns are
// set, a path must also match at least one of them. The seed is never
// filtered.
type pathFilter struct {
	ignore []string
	follow []string
}

// allows reports whether url passes the filter.
func (f pathFilter) allows(url model.URL) bool {
	p := urlnorm.Path(url)

	for _, pattern := range f.ignore {
		if matchPattern(pattern, p) {
			return false
		}
	}
	if len(f.follow) == 0 {
		return true
	}
	for _, pattern := range f.follow {
		if matchPattern(pattern, p) {
			return true
		}
	}
	return false
}

// matchPattern checks if a path matches a glob pattern.
// Patterns can use:
//   - * to match any sequence of non-separator characters
//   - ? to match any single character
//   - a trailing /* to match the directory and everything below it
//   - a leading *. to match a file extension at any depth
//
// Examples:
//   - "/admin/*" matches "/admin", "/admin/users/edit"
//   - "*.pdf" matches "/docs/file.pdf"
//   - "/api/v?" matches "/api/v1", "/api/v2"
func matchPattern(pattern, p string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}

	if ext, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(ext, ".") && !strings.ContainsAny(ext, "*?[/") {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}

	// URL paths always use '/', so path.Match rather than filepath.Match.
	if matched, err := path.Match(pattern, p); err == nil && matched {
		return true
	}

	// Patterns without a slash also match the last path segment.
	if strings.ContainsAny(pattern, "*?[") && !strings.Contains(pattern, "/") {
		if matched, err := path.Match(pattern, path.Base(p)); err == nil && matched {
			return true
		}
	}

	return false
}
