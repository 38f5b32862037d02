package renderer

import "context"

type startKey struct{}

// Detach returns a context for one Fetch that is not cancelled with ctx,
// so a page load that has started runs to completion. Waiting for the
// load to start (the rate limit, the navigation delay) still ends when
// ctx is done, and Fetch then returns ctx's error.
func Detach(ctx context.Context) context.Context {
	return context.WithValue(context.WithoutCancel(ctx), startKey{}, startContext(ctx))
}

// startContext returns the context that bounds waiting for a navigation
// to start: the one given to Detach, or ctx itself.
func startContext(ctx context.Context) context.Context {
	if start, ok := ctx.Value(startKey{}).(context.Context); ok {
		return start
	}
	return ctx
}
