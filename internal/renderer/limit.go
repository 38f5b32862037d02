package renderer

import (
	"context"
	"math"

	"github.com/nao1215/linkscan/internal/model"
	"golang.org/x/time/rate"
)

// Limited caps how often the wrapped Renderer starts a navigation.
// The limit is shared by every caller, so it bounds the whole crawl
// no matter how many workers run.
type Limited struct {
	next    Renderer
	limiter *rate.Limiter
}

// NewLimited allows perSecond navigations per second with a burst of
// one per started second (at least 1).
func NewLimited(next Renderer, perSecond float64) *Limited {
	burst := int(math.Ceil(perSecond))
	if burst < 1 {
		burst = 1
	}
	return &Limited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Fetch implements Renderer. It waits for its turn before calling the
// wrapped Renderer and returns the context error if the wait is cut short.
func (l *Limited) Fetch(ctx context.Context, url model.URL) (*Page, error) {
	if err := l.wait(startContext(ctx)); err != nil {
		return nil, err
	}
	return l.next.Fetch(ctx, url)
}

// wait blocks until a navigation may start or ctx is done.
// rate.Limiter.Wait fails as soon as the token would arrive after the
// deadline, before ctx is done; a reservation waits out the deadline.
func (l *Limited) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r := l.limiter.Reserve()
	if err := sleep(ctx, r.Delay()); err != nil {
		r.Cancel()
		return err
	}
	return nil
}

// Close implements Renderer.
func (l *Limited) Close() error {
	return l.next.Close()
}
