package pipeline

import "errors"

// ErrNoReport is returned by steps that need a report when no earlier
// step produced one.
var ErrNoReport = errors.New("no report to process")
