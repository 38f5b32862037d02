// Package renderer loads a page and reports what the crawler needs from it:
// a terminal status, the document HTML and the hrefs of its anchors.
//
// Three engines are available:
//   - HTTPRenderer fetches with net/http and parses the response with goquery.
//     It does not run JavaScript.
//   - ChromeRenderer drives headless Chrome through the DevTools protocol (chromedp).
//   - PlaywrightRenderer drives Chromium through playwright-go.
//
// Ordinary load failures (DNS errors, timeouts, TLS problems, HTTP error
// codes) are data: they come back as Page.Status with a nil error. A
// non-nil error means the renderer itself is broken, for example the
// browser could not be started, and always wraps ErrUnavailable. The one
// exception is cancellation of the caller's context, which is returned
// as the context's error. A context from Detach lets a started load finish
// and only cuts short the waits before it.
//
// Retrying and Limited decorate any Renderer with retry-on-abort and
// client-side rate limiting. New assembles an engine and its decorators
// from a Config.
package renderer
