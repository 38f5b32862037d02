package renderer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/linkscan/internal/model"
	"github.com/playwright-community/playwright-go"
)

// PlaywrightOptions configures a PlaywrightRenderer.
type PlaywrightOptions struct {
	// Timeout bounds each navigation. Defaults to 45 seconds.
	Timeout time.Duration

	// ProxyAddress routes browser traffic through a SOCKS5 proxy ("host:port").
	ProxyAddress string

	// UserAgent overrides the browser's User-Agent.
	UserAgent string

	// Headers are added to every request (including Cookie).
	Headers map[string]string

	// InsecureTLS ignores certificate errors.
	InsecureTLS bool

	// Headless runs Chromium without a window.
	Headless bool

	// Logger receives debug output.
	Logger *slog.Logger
}

// PlaywrightRenderer loads pages in Chromium driven by Playwright.
// Each Fetch runs in a fresh browser context so cookies and storage
// do not leak between pages.
type PlaywrightRenderer struct {
	opts    PlaywrightOptions
	pw      *playwright.Playwright
	browser playwright.Browser
	logger  *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// NewPlaywrightRenderer starts the Playwright driver and launches Chromium.
// Browsers must already be installed (see "playwright install chromium");
// otherwise it fails with ErrUnavailable.
func NewPlaywrightRenderer(opts PlaywrightOptions) (*PlaywrightRenderer, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 45 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pw, err := playwright.Run(&playwright.RunOptions{
		SkipInstallBrowsers: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to start playwright: %w", ErrUnavailable, err)
	}

	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	}
	if opts.ProxyAddress != "" {
		launch.Proxy = &playwright.Proxy{Server: "socks5://" + opts.ProxyAddress}
	}

	browser, err := pw.Chromium.Launch(launch)
	if err != nil {
		_ = pw.Stop() //nolint:errcheck // best effort cleanup
		return nil, fmt.Errorf("%w: failed to launch chromium: %w", ErrUnavailable, err)
	}

	return &PlaywrightRenderer{
		opts:    opts,
		pw:      pw,
		browser: browser,
		logger:  logger,
	}, nil
}

// Fetch implements Renderer.
func (r *PlaywrightRenderer) Fetch(ctx context.Context, url model.URL) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctxOpts := playwright.BrowserNewContextOptions{
		IgnoreHttpsErrors: playwright.Bool(r.opts.InsecureTLS),
	}
	if r.opts.UserAgent != "" {
		ctxOpts.UserAgent = playwright.String(r.opts.UserAgent)
	}
	if len(r.opts.Headers) > 0 {
		ctxOpts.ExtraHttpHeaders = r.opts.Headers
	}

	bctx, err := r.browser.NewContext(ctxOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create browser context: %w", ErrUnavailable, err)
	}
	defer bctx.Close()

	// Playwright calls are not context-aware; closing the browser context
	// aborts an in-flight navigation when the caller gives up.
	stop := context.AfterFunc(ctx, func() { _ = bctx.Close() })
	defer stop()

	bctx.SetDefaultNavigationTimeout(float64(r.opts.Timeout.Milliseconds()))

	page, err := bctx.NewPage()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: failed to open page: %w", ErrUnavailable, err)
	}

	resp, err := page.Goto(string(url))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return r.navigationFailure(url, err)
	}

	status := model.StatusOK
	if resp != nil {
		status = model.NetStatusFromHTTP(resp.Status())
	}
	if !status.OK() {
		return failedPage(status), nil
	}

	html, err := page.Content()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return r.navigationFailure(url, err)
	}

	links, err := page.Locator("a[href]").All()
	if err != nil {
		return r.navigationFailure(url, err)
	}
	hrefs := make([]string, 0, len(links))
	for _, link := range links {
		href, err := link.GetAttribute("href")
		if err != nil {
			// The element may have been removed by a script meanwhile.
			continue
		}
		hrefs = append(hrefs, href)
	}

	finalURL := page.URL()
	baseURI := finalURL
	if v, err := page.Evaluate(`() => document.baseURI`); err == nil {
		if s, ok := v.(string); ok && s != "" {
			baseURI = s
		}
	}

	return &Page{
		Status:      model.StatusOK,
		HTML:        html,
		AnchorHrefs: rebase(dedupeHrefs(hrefs), string(url), baseURI),
		FinalURL:    finalURL,
	}, nil
}

// navigationFailure maps a Playwright error to a Page or an error.
func (r *PlaywrightRenderer) navigationFailure(url model.URL, err error) (*Page, error) {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "net::ERR_"):
		status := model.NetStatusFromChromeError(msg)
		r.logger.Debug("playwright navigation failed", "url", string(url), "status", status.String())
		return failedPage(status), nil
	case errors.Is(err, playwright.ErrTimeout):
		return failedPage(model.StatusTimedOut), nil
	case !r.browser.IsConnected():
		return nil, fmt.Errorf("%w: browser disconnected: %w", ErrUnavailable, err)
	default:
		return failedPage(model.StatusFailed), nil
	}
}

// Close shuts down the browser and the Playwright driver.
func (r *PlaywrightRenderer) Close() error {
	r.closeOnce.Do(func() {
		if err := r.browser.Close(); err != nil {
			r.closeErr = err
		}
		if err := r.pw.Stop(); err != nil && r.closeErr == nil {
			r.closeErr = err
		}
	})
	return r.closeErr
}
