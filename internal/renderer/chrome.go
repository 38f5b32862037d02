package renderer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/nao1215/linkscan/internal/model"
)

// anchorsScript collects the raw href attributes of the main document's anchors.
const anchorsScript = `Array.from(document.querySelectorAll('a[href]'), a => a.getAttribute('href'))`

// ChromeOptions configures a ChromeRenderer.
type ChromeOptions struct {
	// Timeout bounds each navigation. Defaults to 45 seconds.
	Timeout time.Duration

	// ProxyAddress routes browser traffic through a SOCKS5 proxy ("host:port").
	ProxyAddress string

	// UserAgent overrides Chrome's User-Agent.
	UserAgent string

	// Headers are added to every request (including Cookie).
	Headers map[string]string

	// InsecureTLS ignores certificate errors.
	InsecureTLS bool

	// Headless runs Chrome without a window.
	Headless bool

	// Logger receives debug output.
	Logger *slog.Logger
}

// ChromeRenderer loads pages in headless Chrome so that JavaScript-built
// navigation is seen. One browser is shared; every Fetch opens its own tab.
type ChromeRenderer struct {
	opts          ChromeOptions
	allocCancel   context.CancelFunc
	browserCtx    context.Context //nolint:containedctx // browser lifetime is the renderer's lifetime
	browserCancel context.CancelFunc
	logger        *slog.Logger
}

// NewChromeRenderer launches Chrome. It fails with ErrUnavailable when no
// Chrome binary can be started.
func NewChromeRenderer(opts ChromeOptions) (*ChromeRenderer, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 45 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	execOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	execOpts = append(execOpts,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
	)
	if opts.UserAgent != "" {
		execOpts = append(execOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ProxyAddress != "" {
		execOpts = append(execOpts, chromedp.ProxyServer("socks5://"+opts.ProxyAddress))
	}
	if opts.InsecureTLS {
		execOpts = append(execOpts, chromedp.Flag("ignore-certificate-errors", true))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), execOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Running with no actions starts the browser.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("%w: failed to start chrome: %w", ErrUnavailable, err)
	}

	return &ChromeRenderer{
		opts:          opts,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		logger:        logger,
	}, nil
}

// Fetch implements Renderer.
func (r *ChromeRenderer) Fetch(ctx context.Context, url model.URL) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.browserCtx.Err(); err != nil {
		return nil, fmt.Errorf("%w: browser closed: %w", ErrUnavailable, err)
	}

	tab, tabCancel := chromedp.NewContext(r.browserCtx)
	defer tabCancel()

	// Open the tab on its own context; a timeout on the first Run would
	// close the tab as soon as it expires.
	if err := chromedp.Run(tab); err != nil {
		return r.navigationFailure(ctx, tab, url, err)
	}

	// Tie the navigation to the caller's context and the timeout.
	tabCtx, timeoutCancel := context.WithTimeout(tab, r.opts.Timeout)
	defer timeoutCancel()
	stop := context.AfterFunc(ctx, timeoutCancel)
	defer stop()

	var (
		mu         sync.Mutex
		httpStatus int64
	)
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		e, ok := ev.(*network.EventResponseReceived)
		if !ok || e.Type != network.ResourceTypeDocument || e.Response == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		// The first document response belongs to the main frame;
		// later ones come from iframes.
		if httpStatus == 0 {
			httpStatus = e.Response.Status
		}
	})

	actions := []chromedp.Action{network.Enable()}
	if len(r.opts.Headers) > 0 {
		headers := make(network.Headers, len(r.opts.Headers))
		for k, v := range r.opts.Headers {
			headers[k] = v
		}
		actions = append(actions, network.SetExtraHTTPHeaders(headers))
	}
	actions = append(actions, chromedp.Navigate(string(url)), waitForDocumentReady())

	start := time.Now()
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		return r.navigationFailure(ctx, tabCtx, url, err)
	}

	mu.Lock()
	code := httpStatus
	mu.Unlock()

	status := model.StatusOK
	if code > 0 {
		status = model.NetStatusFromHTTP(int(code))
	}
	if !status.OK() {
		return failedPage(status), nil
	}

	var (
		html     string
		finalURL string
		hrefs    []string
	)
	if err := chromedp.Run(tabCtx,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&finalURL),
		chromedp.Evaluate(anchorsScript, &hrefs),
	); err != nil {
		return r.navigationFailure(ctx, tabCtx, url, err)
	}

	r.logger.Debug("chrome render complete",
		"url", string(url),
		"final_url", finalURL,
		"latency_ms", time.Since(start).Milliseconds(),
		"anchors", len(hrefs),
	)

	// The DOM resolves relative hrefs against document.baseURI, which
	// already accounts for redirects and <base>.
	var baseURI string
	_ = chromedp.Run(tabCtx, chromedp.Evaluate(`document.baseURI`, &baseURI)) //nolint:errcheck // fall back to finalURL

	if baseURI == "" {
		baseURI = finalURL
	}

	return &Page{
		Status:      model.StatusOK,
		HTML:        html,
		AnchorHrefs: rebase(dedupeHrefs(hrefs), string(url), baseURI),
		FinalURL:    finalURL,
	}, nil
}

// navigationFailure turns a chromedp error into a Page or an error.
func (r *ChromeRenderer) navigationFailure(ctx, tabCtx context.Context, url model.URL, err error) (*Page, error) {
	switch {
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case strings.Contains(err.Error(), "net::ERR_"):
		status := model.NetStatusFromChromeError(err.Error())
		r.logger.Debug("chrome navigation failed", "url", string(url), "status", status.String())
		return failedPage(status), nil
	case errors.Is(err, context.DeadlineExceeded), errors.Is(tabCtx.Err(), context.DeadlineExceeded):
		return failedPage(model.StatusTimedOut), nil
	case r.browserCtx.Err() != nil:
		return nil, fmt.Errorf("%w: browser closed: %w", ErrUnavailable, err)
	default:
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
}

// Close shuts down the browser.
func (r *ChromeRenderer) Close() error {
	r.browserCancel()
	r.allocCancel()
	return nil
}

// waitForDocumentReady polls document.readyState until the page has loaded.
func waitForDocumentReady() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			var readyState string
			if err := chromedp.Evaluate(`document.readyState`, &readyState).Do(ctx); err != nil {
				return err
			}
			if readyState == "complete" {
				return nil
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
}
