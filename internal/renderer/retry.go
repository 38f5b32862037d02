package renderer

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/linkscan/internal/model"
)

// Retrying wraps a Renderer with a politeness delay and retries.
//
// Some servers abort bursts of requests to protect themselves. Before
// attempt n (1-based) Retrying waits delay*n, and it retries while the
// navigation ends with ABORTED, up to the configured number of attempts.
// Callers still get exactly one Page per Fetch: the last attempt's.
// When ctx ends during a delay, the last attempt's page is returned, or
// the context error if no attempt was made.
type Retrying struct {
	next     Renderer
	attempts int
	delay    time.Duration
	logger   *slog.Logger
}

// NewRetrying wraps next. attempts below 1 are treated as 1.
func NewRetrying(next Renderer, attempts int, delay time.Duration, logger *slog.Logger) *Retrying {
	if attempts < 1 {
		attempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrying{
		next:     next,
		attempts: attempts,
		delay:    delay,
		logger:   logger,
	}
}

// Fetch implements Renderer.
func (r *Retrying) Fetch(ctx context.Context, url model.URL) (*Page, error) {
	start := startContext(ctx)

	var page *Page
	for attempt := 1; attempt <= r.attempts; attempt++ {
		if err := sleep(start, r.delay*time.Duration(attempt)); err != nil {
			if page != nil {
				// An earlier attempt did load; its result stands.
				return page, nil
			}
			return nil, err
		}

		var err error
		page, err = r.next.Fetch(ctx, url)
		if err != nil {
			return nil, err
		}
		if page.Status != model.StatusAborted {
			return page, nil
		}
		r.logger.Debug("navigation aborted by server",
			"url", string(url),
			"attempt", attempt,
			"max_attempts", r.attempts,
		)
	}
	return page, nil
}

// Close implements Renderer.
func (r *Retrying) Close() error {
	return r.next.Close()
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
