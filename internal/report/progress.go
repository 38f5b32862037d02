package report

import (
	"fmt"
	"io"
	"sync"

	"github.com/nao1215/linkscan/internal/model"
)

// Progress prints one line per fetched page while a crawl runs:
//
//	https://example.com/about [OK]
//	https://example.com/missing [HTTP_NOT_FOUND]
//
// Page is safe to call from the crawler's workers.
type Progress struct {
	mu     sync.Mutex
	output io.Writer
	count  int
}

// NewProgress creates a Progress printer writing to output.
func NewProgress(output io.Writer) *Progress {
	return &Progress{output: output}
}

// Page prints the progress line for page. It matches the crawler's
// onPage callback signature.
func (p *Progress) Page(page *model.WebPage) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.count++
	// Progress output is best effort; a closed terminal must not stop the crawl.
	_, _ = fmt.Fprintf(p.output, "%s [%s]\n", page.URL(), page.Status()) //nolint:errcheck
}

// Count returns the number of pages printed so far.
func (p *Progress) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}
