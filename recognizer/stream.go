package recognizer

import (
	"context"
	"sync"
)

// resultStream guarantees the delivery contract of Task.Results. It must be
// driven by a single goroutine.
type resultStream struct {
	ctx  context.Context
	ch   chan Result
	once sync.Once
}

func newResultStream(ctx context.Context) *resultStream {
	return &resultStream{ctx: ctx, ch: make(chan Result, 16)}
}

func (s *resultStream) partial(text string) {
	select {
	case s.ch <- Result{Text: text}:
	case <-s.ctx.Done():
	}
}

func (s *resultStream) finish(r Result) {
	s.once.Do(func() {
		select {
		case s.ch <- r:
		case <-s.ctx.Done():
			select {
			case s.ch <- r:
			default:
			}
		}
		close(s.ch)
	})
}
