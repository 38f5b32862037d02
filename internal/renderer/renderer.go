package renderer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nao1215/linkscan/internal/model"
	"github.com/nao1215/linkscan/internal/transport"
)

// Engine names accepted by New.
const (
	EngineHTTP       = "http"
	EngineChrome     = "chrome"
	EnginePlaywright = "playwright"
)

// Engines lists the supported engine names.
func Engines() []string {
	return []string{EngineHTTP, EngineChrome, EnginePlaywright}
}

// Renderer loads pages. Implementations must be safe for concurrent use;
// the crawler calls Fetch from several workers at once.
type Renderer interface {
	// Fetch loads url and blocks until the page has loaded or failed.
	// Load failures are reported in Page.Status. The returned error is
	// non-nil only when ctx is done or the renderer is unavailable.
	Fetch(ctx context.Context, url model.URL) (*Page, error)

	// Close releases browsers, connections and other resources.
	Close() error
}

// Page is the result of one Fetch.
type Page struct {
	// Status is the terminal load status. Only OK pages carry HTML and anchors.
	Status model.NetStatus

	// HTML is the document source (or the rendered DOM for browser engines).
	HTML string

	// AnchorHrefs are the href attributes of the document's <a> elements,
	// deduplicated in document order. When the document base differs from
	// the requested URL (after a redirect or because of a <base> element),
	// relative hrefs are resolved against that base so that they stay
	// meaningful relative to the requested URL.
	AnchorHrefs []string

	// FinalURL is the URL the document was served from after redirects.
	FinalURL string
}

// failedPage returns a page carrying only a failure status.
func failedPage(status model.NetStatus) *Page {
	return &Page{Status: status}
}

// Config selects and configures a renderer for New.
type Config struct {
	// Engine is one of EngineHTTP, EngineChrome, EnginePlaywright.
	// Empty means EngineHTTP.
	Engine string

	// Timeout bounds each navigation. Exceeding it yields CONNECTION_TIMED_OUT.
	Timeout time.Duration

	// Attempts is the number of navigations tried when a server aborts
	// the request. Values below 1 mean a single attempt.
	Attempts int

	// NavigationDelay is waited before each navigation, multiplied by the
	// attempt number.
	NavigationDelay time.Duration

	// Rate limits navigations per second across all workers. 0 disables limiting.
	Rate float64

	// Client provides dialing, proxy and header injection for EngineHTTP.
	// When nil a direct client is created.
	Client *transport.Client

	// MaxBodySize limits the bytes EngineHTTP reads per response. 0 keeps the default.
	MaxBodySize int64

	// ProxyAddress is a SOCKS5 proxy for the browser engines.
	ProxyAddress string

	// UserAgent overrides the browser engines' User-Agent.
	UserAgent string

	// Cookie and Headers are sent by the browser engines with every request.
	Cookie  string
	Headers map[string]string

	// InsecureTLS makes browser engines ignore certificate errors.
	InsecureTLS bool

	// ShowBrowser runs browser engines with a visible window.
	ShowBrowser bool

	// Logger receives debug output. nil means slog.Default().
	Logger *slog.Logger
}

// New builds the configured engine and wraps it with the retry and rate
// limiting decorators.
func New(cfg Config) (Renderer, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		base Renderer
		err  error
	)
	switch strings.ToLower(cfg.Engine) {
	case "", EngineHTTP:
		client := cfg.Client
		if client == nil {
			client, err = transport.NewClient(transport.WithTimeout(cfg.Timeout))
			if err != nil {
				return nil, fmt.Errorf("failed to create HTTP client: %w", err)
			}
		}
		httpOpts := []HTTPOption{WithHTTPTimeout(cfg.Timeout)}
		if cfg.MaxBodySize > 0 {
			httpOpts = append(httpOpts, WithMaxBodySize(cfg.MaxBodySize))
		}
		base = NewHTTPRenderer(client, httpOpts...)
	case EngineChrome:
		base, err = NewChromeRenderer(ChromeOptions{
			Timeout:      cfg.Timeout,
			ProxyAddress: cfg.ProxyAddress,
			UserAgent:    cfg.UserAgent,
			Headers:      browserHeaders(cfg.Cookie, cfg.Headers),
			InsecureTLS:  cfg.InsecureTLS,
			Headless:     !cfg.ShowBrowser,
			Logger:       logger,
		})
	case EnginePlaywright:
		base, err = NewPlaywrightRenderer(PlaywrightOptions{
			Timeout:      cfg.Timeout,
			ProxyAddress: cfg.ProxyAddress,
			UserAgent:    cfg.UserAgent,
			Headers:      browserHeaders(cfg.Cookie, cfg.Headers),
			InsecureTLS:  cfg.InsecureTLS,
			Headless:     !cfg.ShowBrowser,
			Logger:       logger,
		})
	default:
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownEngine, cfg.Engine, strings.Join(Engines(), ", "))
	}
	if err != nil {
		return nil, err
	}

	var r Renderer = base
	if cfg.Rate > 0 {
		r = NewLimited(r, cfg.Rate)
	}
	if cfg.Attempts > 1 || cfg.NavigationDelay > 0 {
		r = NewRetrying(r, cfg.Attempts, cfg.NavigationDelay, logger)
	}
	return r, nil
}

// browserHeaders merges the cookie into the extra header set.
func browserHeaders(cookie string, headers map[string]string) map[string]string {
	if cookie == "" && len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		out[k] = v
	}
	if cookie != "" {
		out["Cookie"] = cookie
	}
	return out
}
