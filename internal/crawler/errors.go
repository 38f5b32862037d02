package crawler

import "errors"

// ErrInvalidSeed is returned by Crawl when the seed URL cannot be normalized
// to an absolute http or https URL.
var ErrInvalidSeed = errors.New("invalid seed URL")
