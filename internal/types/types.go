// Package types holds the wire-level data model shared across the merge
// index engine: source identifiers, rows, result pages, and columns.
package types

import "context"

// SourceID opaquely identifies a contributing remote node. The set of
// active sources is fixed at index construction time by explicit
// registration and never grows afterwards.
type SourceID uint64

// Column names a field in the index's fixed column set.
type Column struct {
	Name string
}

// Row is a single result row: a key used for range bounds and default
// ordering/tie-breaks, plus the projected column values in registered
// column order.
type Row struct {
	Key  []byte
	Cols [][]byte
}

// ResultPage is one batch of rows delivered from one source in one
// message. AllRows is non-nil only on a source's first accepted page and
// carries the total row count that source will ever send.
//
// A page with IsFail set carries no rows; accessing it raises Err. A page
// with IsLast set is the synthetic terminal sentinel and also carries no
// rows.
type ResultPage struct {
	Source     SourceID
	RowsInPage int
	AllRows    *int
	Rows       []Row
	IsFail     bool
	IsLast     bool
	Err        error

	next func(ctx context.Context) error
}

// NewResultPage builds a normal (non-sentinel) page.
func NewResultPage(source SourceID, rows []Row, allRows *int, next func(ctx context.Context) error) ResultPage {
	return ResultPage{
		Source:     source,
		RowsInPage: len(rows),
		AllRows:    allRows,
		Rows:       rows,
		next:       next,
	}
}

// FailPage builds a synthetic isFail sentinel for the given source.
func FailPage(source SourceID, err error) ResultPage {
	return ResultPage{Source: source, IsFail: true, Err: err}
}

// LastPage builds the synthetic terminal isLast sentinel.
func LastPage() ResultPage {
	return ResultPage{IsLast: true}
}

// FetchNextPage asks the transport for the next page from this page's
// source. On an isFail sentinel it returns the page's Err. Otherwise it
// is a no-op if the page carries no transport thunk (sentinels never do).
func (p ResultPage) FetchNextPage(ctx context.Context) error {
	if p.IsFail {
		return p.Err
	}
	if p.next == nil {
		return nil
	}
	return p.next(ctx)
}
