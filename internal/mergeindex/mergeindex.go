// Package mergeindex implements MergeIndex: the facade an SQL planner
// sees as an ordinary index, backed underneath by pages streaming in
// from many remote source nodes. It wires together SourceCounter,
// FetchCache, PageIntake, and a StreamCursor variant into the single
// index/cursor contract described in the external interfaces.
package mergeindex

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/kartikbazzad/mergeindex/internal/cache"
	"github.com/kartikbazzad/mergeindex/internal/cursor"
	mergeerrors "github.com/kartikbazzad/mergeindex/internal/errors"
	"github.com/kartikbazzad/mergeindex/internal/intake"
	"github.com/kartikbazzad/mergeindex/internal/liveness"
	"github.com/kartikbazzad/mergeindex/internal/logger"
	"github.com/kartikbazzad/mergeindex/internal/types"
)

// Variant picks the StreamCursor implementation backing a MergeIndex.
type Variant int

const (
	// FIFO delivers rows in arrival order, ignoring source and row order.
	FIFO Variant = iota
	// Sorted delivers rows via a k-way merge, ordered by Comparator.
	Sorted
)

// Options configures a MergeIndex at construction time. A liveness sweep
// is opted into separately via WithLivenessSweep, since it needs a
// Reporter view of the index that only exists once intake is built.
type Options struct {
	Variant       Variant
	Comparator    cursor.Comparator // required when Variant == Sorted
	CacheCapacity int
	Logger        *logger.Logger
}

// MergeIndex is the reducer-side merge index: an index/cursor contract
// over rows streamed in from many source nodes, with no notion of
// mutation (Add, Remove, Truncate, Rename, and FindFirstOrLast are all
// unsupported).
type MergeIndex struct {
	id  uuid.UUID
	log *logger.Logger

	sink    cursor.PageSink
	intake  *intake.Intake
	sweeper *liveness.Sweeper

	variant Variant
	cmp     cursor.Comparator

	mu      sync.Mutex
	sources []types.SourceID

	cache *cache.Cache

	curOnce sync.Once
	cur     cursor.StreamCursor

	fetchedCount atomic.Int64
}

// New builds a MergeIndex. CacheCapacity <= 0 uses config.DefaultMaxFetchSize.
func New(opts Options) *MergeIndex {
	if opts.Variant == Sorted && opts.Comparator == nil {
		panic("mergeindex: Sorted variant requires a Comparator")
	}

	log := opts.Logger
	if log == nil {
		log = logger.Default()
	}

	capacity := opts.CacheCapacity
	if capacity <= 0 {
		capacity = 10000
	}

	var sink cursor.PageSink
	switch opts.Variant {
	case Sorted:
		sink = cursor.NewMergeSink()
	default:
		sink = cursor.NewFIFOSink()
	}

	in := intake.New(sink, log)

	mi := &MergeIndex{
		id:      uuid.New(),
		log:     log,
		sink:    sink,
		intake:  in,
		variant: opts.Variant,
		cmp:     opts.Comparator,
		cache:   cache.New(capacity),
	}

	return mi
}

// RegisterSource admits a new contributing source. Must happen before
// any page from that source is added and before the first Find call.
// Registering the same id twice returns mergeerrors.ErrInvariantViolation.
func (mi *MergeIndex) RegisterSource(id types.SourceID) error {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	if err := mi.intake.RegisterSource(id); err != nil {
		return err
	}
	mi.sources = append(mi.sources, id)
	return nil
}

// AddPage admits a page from a source into the index.
func (mi *MergeIndex) AddPage(page types.ResultPage) error {
	return mi.intake.AddPage(page)
}

// Fail fails the whole index with a coordinator-level error.
func (mi *MergeIndex) Fail(err error) {
	mi.intake.Fail(err)
}

// FailSource fails the whole index because a single source's transport
// reported an error.
func (mi *MergeIndex) FailSource(id types.SourceID, cause error) {
	mi.intake.FailSource(id, cause)
}

// OutstandingSources reports the registered sources that have not yet
// finished, satisfying liveness.Reporter so a MergeIndex can be handed
// directly to liveness.NewSweeper.
func (mi *MergeIndex) OutstandingSources() []types.SourceID {
	return mi.intake.OutstandingSources()
}

// StartLivenessSweep starts the background sweeper, if one was wired via
// WithLivenessSweep. It is safe to call this more than once.
func (mi *MergeIndex) StartLivenessSweep(ctx context.Context) error {
	if mi.sweeper == nil {
		return nil
	}
	return mi.sweeper.Start(ctx)
}

// WithLivenessSweep attaches a liveness sweeper to this index. Intended
// to be called once, right after New, before StartLivenessSweep.
func (mi *MergeIndex) WithLivenessSweep(s *liveness.Sweeper) {
	mi.sweeper = s
}

func (mi *MergeIndex) ensureCursor() cursor.StreamCursor {
	mi.curOnce.Do(func() {
		mi.mu.Lock()
		sources := append([]types.SourceID(nil), mi.sources...)
		mi.mu.Unlock()

		switch mi.variant {
		case Sorted:
			mi.cur = cursor.NewMergeCursor(mi.sink.(*cursor.MergeSink), sources, mi.cmp, mi.intake.RequestNext)
		default:
			mi.cur = cursor.NewFIFOCursor(mi.sink.(*cursor.FIFOSink), mi.intake.RequestNext)
		}
	})
	return mi.cur
}

// costOffset is the flat per-scan overhead added on top of row count in
// Cost, so a merge index with zero rows still costs more than a no-op.
const costOffset = 1.0

// RowCount reports the current estimate of the index's total row count:
// the sum of allRows over every source whose first page has arrived so
// far. Monotonically non-decreasing, and only equal to the index's true
// final size once every source has finished.
func (mi *MergeIndex) RowCount() int64 {
	return mi.intake.ExpectedRows()
}

// Cost returns a flat planner-facing cost estimate proportional to
// RowCount, the way a planner treats any other scan.
func (mi *MergeIndex) Cost() float64 {
	return float64(mi.RowCount()) + costOffset
}

// String returns a short diagnostic identity for logging.
func (mi *MergeIndex) String() string {
	return fmt.Sprintf("mergeindex[%s] fetched=%s", mi.id, humanize.Comma(mi.fetchedCount.Load()))
}

// Find returns a cursor over rows whose key falls within [first, last]
// (either bound nil means unbounded on that side). If the fetch cache has
// been discarded, Find fails with mergeerrors.ErrFetchedTooLarge: a
// discarded cache can no longer guarantee gap-free replay. If every
// expected row has already been cached, the cursor scans the cache only;
// otherwise it replays the cache and falls through to the live stream.
func (mi *MergeIndex) Find(ctx context.Context, first, last []byte) (*FetchingCursor, error) {
	if mi.cache.Discarded() {
		mi.log.Warn("find rejected", "index", mi.id, "reason", "cache discarded")
		return nil, mergeerrors.ErrFetchedTooLarge
	}

	it, err := mi.cache.NewIterator()
	if err != nil {
		return nil, err
	}

	fc := &FetchingCursor{mi: mi, cacheIt: it, usingCache: true, first: first, last: last}
	if mi.intake.Done() && mi.fetchedCount.Load() == mi.intake.ExpectedRows() {
		fc.cacheOnly = true
		return fc, nil
	}

	fc.cur = mi.ensureCursor()
	return fc, nil
}

// Close stops the liveness sweeper and releases the cursor.
func (mi *MergeIndex) Close() error {
	if mi.sweeper != nil {
		mi.sweeper.Stop()
	}
	if mi.cur != nil {
		return mi.cur.Close()
	}
	return nil
}

// Add is unsupported: a merge index has no mutation surface.
func (mi *MergeIndex) Add(types.Row) error { return mergeerrors.ErrOperationUnsupported }

// Remove is unsupported: a merge index has no mutation surface.
func (mi *MergeIndex) Remove([]byte) error { return mergeerrors.ErrOperationUnsupported }

// Truncate is unsupported: a merge index has no mutation surface.
func (mi *MergeIndex) Truncate() error { return mergeerrors.ErrOperationUnsupported }

// Rename is unsupported: a merge index has no mutation surface.
func (mi *MergeIndex) Rename(string) error { return mergeerrors.ErrOperationUnsupported }

// FindFirstOrLast is unsupported: a merge index serves rows only through
// the forward scan that Find returns.
func (mi *MergeIndex) FindFirstOrLast(context.Context, bool) (types.Row, error) {
	return types.Row{}, mergeerrors.ErrOperationUnsupported
}

// FetchingCursor is the cursor Find returns: it drains the fetch cache
// first, then falls through to the live StreamCursor and appends
// everything it reads from there back into the cache. Once it falls
// through, it never switches back.
type FetchingCursor struct {
	mi         *MergeIndex
	cur        cursor.StreamCursor
	cacheIt    *cache.Iterator
	usingCache bool
	cacheOnly  bool

	first, last []byte

	row types.Row
	err error
}

func (c *FetchingCursor) inRange(key []byte) bool {
	if c.first != nil && bytes.Compare(key, c.first) < 0 {
		return false
	}
	if c.last != nil && bytes.Compare(key, c.last) > 0 {
		return false
	}
	return true
}

// Next advances to the next row within [first, last], skipping any row
// outside that range without stopping the scan.
func (c *FetchingCursor) Next(ctx context.Context) bool {
	for {
		if c.usingCache {
			row, ok := c.cacheIt.Next()
			if !ok {
				c.usingCache = false
				if c.cacheOnly {
					return false
				}
				continue
			}
			if !c.inRange(row.Key) {
				continue
			}
			c.row = row
			return true
		}

		if !c.cur.Next(ctx) {
			c.err = c.cur.Err()
			return false
		}
		row := c.cur.Row()
		c.mi.cache.Append(row)
		c.mi.fetchedCount.Add(1)
		if !c.inRange(row.Key) {
			continue
		}
		c.row = row
		return true
	}
}

// Row returns the row produced by the most recent successful Next call.
func (c *FetchingCursor) Row() types.Row { return c.row }

// Err returns the error that ended the stream, if any.
func (c *FetchingCursor) Err() error { return c.err }

// Close is a no-op: the underlying StreamCursor outlives any one
// FetchingCursor and is closed by MergeIndex.Close.
func (c *FetchingCursor) Close() error { return nil }
