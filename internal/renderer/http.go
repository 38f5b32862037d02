package renderer

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/nao1215/linkscan/internal/model"
	"github.com/nao1215/linkscan/internal/transport"
	"golang.org/x/net/html/charset"
)

// HTTPRenderer fetches pages with a plain HTTP client. It is fast and needs
// no browser, but it sees only server-rendered markup.
type HTTPRenderer struct {
	client      *http.Client
	timeout     time.Duration
	maxBodySize int64
}

// HTTPOption configures an HTTPRenderer.
type HTTPOption func(*HTTPRenderer)

// WithHTTPTimeout bounds each fetch including reading the body.
// Zero keeps the client's own timeout.
func WithHTTPTimeout(d time.Duration) HTTPOption {
	return func(r *HTTPRenderer) {
		r.timeout = d
	}
}

// WithMaxBodySize limits how much of a response body is read.
func WithMaxBodySize(n int64) HTTPOption {
	return func(r *HTTPRenderer) {
		r.maxBodySize = n
	}
}

// NewHTTPRenderer creates a renderer that issues requests through client.
func NewHTTPRenderer(client *transport.Client, opts ...HTTPOption) *HTTPRenderer {
	r := &HTTPRenderer{
		client:      client.HTTPClient(),
		timeout:     client.Timeout(),
		maxBodySize: 10 * 1024 * 1024, // 10MB
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fetch implements Renderer.
func (r *HTTPRenderer) Fetch(ctx context.Context, url model.URL) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fetchCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, string(url), nil)
	if err != nil {
		return failedPage(model.StatusFailed), nil
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return failedPage(StatusFromError(err)), nil
	}
	defer resp.Body.Close()

	finalURL := resp.Request.URL.String()
	status := model.NetStatusFromHTTP(resp.StatusCode)
	if !status.OK() {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		return &Page{Status: status, FinalURL: finalURL}, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBodySize))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return failedPage(StatusFromError(err)), nil
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTML(contentType, body) {
		// Images, PDFs and similar resources are alive but have no links.
		return &Page{Status: model.StatusOK, FinalURL: finalURL}, nil
	}

	decoded, err := decodeBody(body, contentType)
	if err != nil {
		decoded = string(body)
	}

	hrefs, baseHref, err := extractAnchors(strings.NewReader(decoded))
	if err != nil {
		hrefs = nil
	}

	return &Page{
		Status:      model.StatusOK,
		HTML:        decoded,
		AnchorHrefs: rebase(hrefs, string(url), documentBase(finalURL, baseHref)),
		FinalURL:    finalURL,
	}, nil
}

// Close implements Renderer.
func (r *HTTPRenderer) Close() error {
	r.client.CloseIdleConnections()
	return nil
}

// isHTML decides from the Content-Type header, or by sniffing the body
// when the header is missing.
func isHTML(contentType string, body []byte) bool {
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "html")
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// decodeBody converts the body to UTF-8 using the declared or sniffed charset.
func decodeBody(body []byte, contentType string) (string, error) {
	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return "", err
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
