package renderer

import (
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// extractAnchors returns the unique, non-empty href attributes of all <a>
// elements in document order, plus the href of the first <base> element.
// Links inside iframes are not part of the document and are not returned.
func extractAnchors(r io.Reader) ([]string, string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, "", err
	}

	base, _ := doc.Find("base[href]").First().Attr("href")

	seen := make(map[string]struct{})
	var hrefs []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		if _, ok := seen[href]; ok {
			return
		}
		seen[href] = struct{}{}
		hrefs = append(hrefs, href)
	})

	return hrefs, strings.TrimSpace(base), nil
}

// dedupeHrefs trims and deduplicates hrefs, keeping the first occurrence.
func dedupeHrefs(hrefs []string) []string {
	seen := make(map[string]struct{}, len(hrefs))
	out := make([]string, 0, len(hrefs))
	for _, h := range hrefs {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

// documentBase computes the URL relative hrefs resolve against: the final
// URL after redirects, adjusted by a <base href> if the page has one.
func documentBase(finalURL, baseHref string) string {
	if baseHref == "" {
		return finalURL
	}
	f, err := url.Parse(finalURL)
	if err != nil {
		return finalURL
	}
	b, err := url.Parse(baseHref)
	if err != nil {
		return finalURL
	}
	return f.ResolveReference(b).String()
}

// rebase resolves relative hrefs against docBase when docBase is not the
// requested URL. Absolute hrefs and hrefs that fail to parse are kept as is.
func rebase(hrefs []string, requested, docBase string) []string {
	if docBase == "" || docBase == requested {
		return hrefs
	}
	b, err := url.Parse(docBase)
	if err != nil {
		return hrefs
	}

	out := make([]string, len(hrefs))
	for i, h := range hrefs {
		ref, err := url.Parse(h)
		if err != nil || ref.IsAbs() {
			out[i] = h
			continue
		}
		out[i] = b.ResolveReference(ref).String()
	}
	return out
}
