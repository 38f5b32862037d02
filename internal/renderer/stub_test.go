package renderer

import (
	"context"
	"sync"

	"github.com/nao1215/linkscan/internal/model"
)

// scriptedRenderer returns queued results in order and then repeats the last one.
type scriptedRenderer struct {
	mu      sync.Mutex
	results []scriptedResult
	calls   int
	closed  bool
}

type scriptedResult struct {
	page *Page
	err  error
}

func (s *scriptedRenderer) Fetch(ctx context.Context, _ model.URL) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	s.calls++
	return s.results[i].page, s.results[i].err
}

func (s *scriptedRenderer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *scriptedRenderer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
