package cursor

import (
	"container/heap"
	"context"
	"io"

	"github.com/kartikbazzad/mergeindex/internal/types"
)

// Comparator orders two rows for the merge's sort key. It returns a
// negative number if a sorts before b, zero if equal, positive otherwise.
// Source id is used as the tie-break beneath it, never inside it.
type Comparator func(a, b types.Row) int

// sourceStream adapts one source's per-source queue into a pull-based
// row stream, draining pages into rows and requesting the next page once
// a page is exhausted. Reads from a blocking queue instead of a
// synchronous RPC channel, but otherwise follows the usual refill-on-pop
// merge stream shape.
type sourceStream struct {
	source types.SourceID
	q      *queue
	demand DemandFunc

	rows []types.Row
	idx  int
	last types.ResultPage
}

func newSourceStream(source types.SourceID, q *queue, demand DemandFunc) *sourceStream {
	return &sourceStream{source: source, q: q, demand: demand}
}

// Next returns the stream's next row, io.EOF once the source's queue is
// closed and drained, or the source's failure error.
func (s *sourceStream) Next(ctx context.Context) (types.Row, error) {
	for {
		if s.idx < len(s.rows) {
			r := s.rows[s.idx]
			s.idx++
			if s.idx == len(s.rows) && s.demand != nil {
				_ = s.demand(ctx, s.last)
			}
			return r, nil
		}

		page, ok := s.q.pop(ctx)
		if !ok {
			return types.Row{}, io.EOF
		}
		if page.IsFail {
			return types.Row{}, page.Err
		}

		s.last = page
		s.rows = page.Rows
		s.idx = 0
		if len(s.rows) == 0 && s.demand != nil {
			_ = s.demand(ctx, page)
		}
	}
}

type heapItem struct {
	row       types.Row
	streamIdx int
}

// rowHeap is a container/heap.Interface over the current head row of
// every still-live stream, ordered by cmp and tie-broken by source id.
type rowHeap struct {
	cmp     Comparator
	streams []*sourceStream
	items   []heapItem
}

func (h *rowHeap) Len() int { return len(h.items) }

func (h *rowHeap) Less(i, j int) bool {
	if c := h.cmp(h.items[i].row, h.items[j].row); c != 0 {
		return c < 0
	}
	return h.streams[h.items[i].streamIdx].source < h.streams[h.items[j].streamIdx].source
}

func (h *rowHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *rowHeap) Push(x any) { h.items = append(h.items, x.(heapItem)) }

func (h *rowHeap) Pop() any {
	n := len(h.items)
	it := h.items[n-1]
	h.items = h.items[:n-1]
	return it
}

// MergeCursor drains all registered sources in sorted order via a k-way
// merge: on every Next it pops the current minimum row and immediately
// refills from that row's source.
type MergeCursor struct {
	streams []*sourceStream
	heap    *rowHeap

	primed bool
	cur    types.Row
	err    error
	done   bool
}

// NewMergeCursor builds a cursor over sink, one stream per entry in
// sources (which must all have been registered on sink already). demand
// may be nil.
func NewMergeCursor(sink *MergeSink, sources []types.SourceID, cmp Comparator, demand DemandFunc) *MergeCursor {
	streams := make([]*sourceStream, len(sources))
	for i, src := range sources {
		streams[i] = newSourceStream(src, sink.queueFor(src), demand)
	}
	return &MergeCursor{
		streams: streams,
		heap:    &rowHeap{cmp: cmp, streams: streams},
	}
}

func (c *MergeCursor) prime(ctx context.Context) {
	heap.Init(c.heap)
	for i, s := range c.streams {
		row, err := s.Next(ctx)
		switch {
		case err == nil:
			heap.Push(c.heap, heapItem{row: row, streamIdx: i})
		case err == io.EOF:
			// source produced nothing; simply absent from the heap.
		default:
			c.err = err
			return
		}
	}
}

// Next advances to the next row in sorted order, returning false once
// every source is exhausted or a source failure has been surfaced.
func (c *MergeCursor) Next(ctx context.Context) bool {
	if c.done {
		return false
	}
	if c.err != nil {
		c.done = true
		return false
	}
	if !c.primed {
		c.primed = true
		c.prime(ctx)
		if c.err != nil {
			c.done = true
			return false
		}
	}
	if c.heap.Len() == 0 {
		c.done = true
		return false
	}

	item := heap.Pop(c.heap).(heapItem)
	c.cur = item.row

	row, err := c.streams[item.streamIdx].Next(ctx)
	switch {
	case err == nil:
		heap.Push(c.heap, heapItem{row: row, streamIdx: item.streamIdx})
	case err == io.EOF:
		// that source is exhausted; nothing to push back.
	default:
		// surfaces on the following Next call, after this row is consumed.
		c.err = err
	}
	return true
}

// Row returns the row produced by the most recent successful Next call.
func (c *MergeCursor) Row() types.Row { return c.cur }

// Err returns the source failure that terminated the stream, if any.
func (c *MergeCursor) Err() error { return c.err }

// Close is a no-op: per-source queues are closed centrally by PageIntake
// as each source finishes, not by the draining cursor.
func (c *MergeCursor) Close() error { return nil }
