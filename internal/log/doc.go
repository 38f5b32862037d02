// Package log provides secure logging built on top of the standard slog package.
//
// The SecureHandler masks sensitive information before it reaches the
// output:
//   - HTTP credential headers (Authorization, Cookie, X-Api-Key)
//   - Values that look like secrets (JWTs, bearer and basic credentials)
//   - Passwords and credential query parameters embedded in URLs
//
// Crawls are configured with site cookies and custom headers, and the
// pages they visit may carry tokens in their links, so masking stays on
// even in verbose mode.
//
// # Usage
//
//	logger, err := log.NewLogger(os.Stderr, verbose, log.FormatJSON)
//	if err != nil {
//	    return err
//	}
//	logger.Debug("page fetched",
//	    "url", "https://example.com/reset?token=abc", // token masked
//	    "cookie", "session=abc123",                    // masked
//	)
//	slog.SetDefault(logger)
package log
