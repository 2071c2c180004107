package cursor

import (
	"context"
	"sync"

	"github.com/kartikbazzad/mergeindex/internal/types"
)

// PageSink is the capability PageIntake holds on a StreamCursor: the
// ability to admit pages and signal per-source completion, without the
// draining/merge-order capability that only the cursor itself needs.
// Composed in rather than exposed via an inheritance hierarchy.
type PageSink interface {
	RegisterSource(source types.SourceID)
	Enqueue(page types.ResultPage)
	CloseSource(source types.SourceID)
}

// StreamCursor is the draining side: pull rows out in whatever order the
// concrete variant produces (arrival order for FIFO, sorted order for a
// k-way merge).
type StreamCursor interface {
	Next(ctx context.Context) bool
	Row() types.Row
	Err() error
	Close() error
}

// FIFOSink is the PageSink for FIFOCursor: every source feeds one shared
// queue, so page order on drain is simply arrival order.
type FIFOSink struct {
	q *queue
}

// NewFIFOSink returns an empty FIFO sink.
func NewFIFOSink() *FIFOSink {
	return &FIFOSink{q: newQueue()}
}

// RegisterSource is a no-op: FIFO has one shared queue regardless of how
// many sources feed it.
func (s *FIFOSink) RegisterSource(types.SourceID) {}

// Enqueue appends the page to the shared queue.
func (s *FIFOSink) Enqueue(p types.ResultPage) { s.q.push(p) }

// CloseSource is a no-op: the shared queue is only closed by Close on the
// cursor itself, once the isLast sentinel has been observed (or the
// cursor is abandoned).
func (s *FIFOSink) CloseSource(types.SourceID) {}

// MergeSink is the PageSink for MergeCursor: each source gets its own
// queue so the cursor can always compare the current head row of every
// still-live source.
type MergeSink struct {
	mu     sync.Mutex
	queues map[types.SourceID]*queue
}

// NewMergeSink returns an empty merge sink.
func NewMergeSink() *MergeSink {
	return &MergeSink{queues: make(map[types.SourceID]*queue)}
}

// RegisterSource allocates the per-source queue. Must be called before
// any page for that source is enqueued or any MergeCursor is built over
// this sink.
func (s *MergeSink) RegisterSource(source types.SourceID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queues[source]; !ok {
		s.queues[source] = newQueue()
	}
}

// Enqueue routes the page to its source's queue. The global isLast
// sentinel (which carries no meaningful source) is dropped: each
// per-source queue is instead closed individually via CloseSource, which
// is how MergeCursor's streams observe completion.
func (s *MergeSink) Enqueue(p types.ResultPage) {
	if p.IsLast {
		return
	}
	s.mu.Lock()
	q := s.queues[p.Source]
	s.mu.Unlock()
	if q != nil {
		q.push(p)
	}
}

// CloseSource closes the named source's queue, unblocking its stream's
// pending Next call with io.EOF.
func (s *MergeSink) CloseSource(source types.SourceID) {
	s.mu.Lock()
	q := s.queues[source]
	s.mu.Unlock()
	if q != nil {
		q.close()
	}
}

func (s *MergeSink) queueFor(source types.SourceID) *queue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queues[source]
}
