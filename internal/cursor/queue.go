package cursor

import (
	"context"
	"sync"

	"github.com/kartikbazzad/mergeindex/internal/types"
)

// queue is the concurrent page buffer behind each PageSink: one producer
// (PageIntake, possibly many goroutines across sources) per queue
// instance, one consumer (a StreamCursor). It blocks the consumer
// cooperatively when empty, the only point where a drain call suspends.
type queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []types.ResultPage
	closed bool
}

func newQueue() *queue {
	q := &queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends a page. A push after close is dropped: nothing consumes a
// closed queue's tail anyway (closing only happens once a source is done
// or the cursor itself is closed).
func (q *queue) push(p types.ResultPage) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, p)
	q.cond.Signal()
}

// close marks the queue closed and wakes any blocked consumer.
func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// pop blocks until an item is available, the queue is closed and drained,
// or ctx is done. ok is false in the latter two cases.
func (q *queue) pop(ctx context.Context) (types.ResultPage, bool) {
	if ctx != nil && ctx.Done() != nil {
		abort := make(chan struct{})
		defer close(abort)
		go func() {
			select {
			case <-ctx.Done():
				q.mu.Lock()
				q.cond.Broadcast()
				q.mu.Unlock()
			case <-abort:
			}
		}()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		if ctx != nil && ctx.Err() != nil {
			return types.ResultPage{}, false
		}
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return types.ResultPage{}, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}
