package model

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"time"
)

// URL is a normalized absolute URL.
// Two URLs refer to the same crawl target exactly when their strings are equal,
// so URL is used as the deduplication key everywhere.
type URL string

// String returns the URL as a plain string.
func (u URL) String() string {
	return string(u)
}

// WebPage is the immutable record of one fetch.
//
// A page is either successful (status OK, HTML and anchors populated) or
// failed (a non-OK status, empty HTML, no anchors). All fields are private
// and accessors return copies, so a WebPage can be shared between the
// crawl workers, the per-page callback and the result set without locking.
type WebPage struct {
	url       URL
	status    NetStatus
	html      string
	anchors   []string
	hash      string
	fetchedAt time.Time
	duration  time.Duration
}

// NewWebPage creates a successful page with the given HTML and raw anchor
// hrefs (as found in the document, before normalization).
func NewWebPage(url URL, html string, anchors []string) *WebPage {
	p := &WebPage{
		url:       url,
		status:    StatusOK,
		html:      html,
		anchors:   slices.Clone(anchors),
		fetchedAt: time.Now(),
	}
	p.hash = computeHash(html)
	return p
}

// NewFailedWebPage creates a page for a URL that could not be loaded.
// The status must describe the failure; passing StatusOK is treated as
// StatusFailed since an OK page always carries a document.
func NewFailedWebPage(url URL, status NetStatus) *WebPage {
	if status == StatusOK {
		status = StatusFailed
	}
	return &WebPage{
		url:       url,
		status:    status,
		fetchedAt: time.Now(),
	}
}

// WithTiming returns a copy of the page carrying fetch timing information.
// It is used by the scheduler right after the renderer returns, before the
// page is published anywhere.
func (p *WebPage) WithTiming(fetchedAt time.Time, duration time.Duration) *WebPage {
	c := *p
	c.anchors = slices.Clone(p.anchors)
	c.fetchedAt = fetchedAt
	c.duration = duration
	return &c
}

// URL returns the normalized URL of the page.
func (p *WebPage) URL() URL {
	return p.url
}

// Status returns the terminal fetch status.
func (p *WebPage) Status() NetStatus {
	return p.status
}

// OK reports whether the page was loaded successfully.
func (p *WebPage) OK() bool {
	return p.status == StatusOK
}

// HTML returns the rendered document. Empty for failed pages.
func (p *WebPage) HTML() string {
	return p.html
}

// Anchors returns a copy of the raw anchor hrefs found on the page.
func (p *WebPage) Anchors() []string {
	return slices.Clone(p.anchors)
}

// Hash returns the hex SHA-256 of the HTML, or "" when there is none.
func (p *WebPage) Hash() string {
	return p.hash
}

// FetchedAt returns when the fetch completed.
func (p *WebPage) FetchedAt() time.Time {
	return p.fetchedAt
}

// Duration returns how long the fetch took.
func (p *WebPage) Duration() time.Duration {
	return p.duration
}

// computeHash returns the SHA-256 of the content as lowercase hex.
func computeHash(content string) string {
	if content == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// DeadLink is an anchor target whose page could not be loaded.
// It is a comparable value: two dead links are equal when both the URL
// and the error are equal.
type DeadLink struct {
	// URL is the normalized URL of the dead target.
	URL URL `json:"url"`

	// NetError is the terminal status of the target page.
	NetError NetStatus `json:"net_error"`
}

// NewDeadLink creates a DeadLink.
func NewDeadLink(url URL, netError NetStatus) DeadLink {
	return DeadLink{URL: url, NetError: netError}
}

// String formats the dead link as "url STATUS".
func (d DeadLink) String() string {
	return string(d.URL) + " " + d.NetError.String()
}

// CompareDeadLinks orders dead links by URL, then by status.
func CompareDeadLinks(a, b DeadLink) int {
	switch {
	case a.URL < b.URL:
		return -1
	case a.URL > b.URL:
		return 1
	default:
		return int(a.NetError) - int(b.NetError)
	}
}
