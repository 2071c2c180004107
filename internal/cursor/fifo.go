package cursor

import (
	"context"

	"github.com/kartikbazzad/mergeindex/internal/types"
)

// DemandFunc is the cursor's hook back into PageIntake.RequestNext: called
// once a page has been fully drained, so the transport is only asked for
// more data as fast as the executor consumes it.
type DemandFunc func(ctx context.Context, drained types.ResultPage) error

// FIFOCursor drains pages in arrival order across all sources. It
// terminates on the global isLast sentinel or an isFail sentinel,
// whichever it observes first.
type FIFOCursor struct {
	sink   *FIFOSink
	demand DemandFunc

	page    types.ResultPage
	havePg  bool
	idx     int
	row     types.Row
	done    bool
	err     error
}

// NewFIFOCursor builds a cursor draining sink in arrival order. demand may
// be nil (no lazy prefetch signal is sent).
func NewFIFOCursor(sink *FIFOSink, demand DemandFunc) *FIFOCursor {
	return &FIFOCursor{sink: sink, demand: demand}
}

// Next advances to the next row, returning false once the stream has
// ended (normally or via failure — distinguish with Err).
func (c *FIFOCursor) Next(ctx context.Context) bool {
	if c.done {
		return false
	}
	for {
		if c.havePg && c.idx < len(c.page.Rows) {
			c.row = c.page.Rows[c.idx]
			c.idx++
			if c.idx == len(c.page.Rows) {
				c.requestMore(ctx)
			}
			return true
		}

		page, ok := c.sink.q.pop(ctx)
		if !ok {
			c.done = true
			return false
		}
		if page.IsFail {
			c.err = page.Err
			c.done = true
			return false
		}
		if page.IsLast {
			c.done = true
			return false
		}

		c.page = page
		c.idx = 0
		c.havePg = true
		if len(page.Rows) == 0 {
			c.requestMore(ctx)
			c.havePg = false
		}
	}
}

func (c *FIFOCursor) requestMore(ctx context.Context) {
	if c.demand != nil {
		_ = c.demand(ctx, c.page)
	}
}

// Row returns the row produced by the most recent successful Next call.
func (c *FIFOCursor) Row() types.Row { return c.row }

// Err returns the source failure that terminated the stream, if any.
func (c *FIFOCursor) Err() error { return c.err }

// Close releases the shared queue.
func (c *FIFOCursor) Close() error {
	c.sink.q.close()
	return nil
}
