// Package intake implements PageIntake: the single admission point pages
// from every contributing source pass through before a draining cursor
// ever sees them. It tracks each source's remaining-row count, detects
// per-source and whole-query completion, and injects the terminal
// sentinel pages the cursor side needs to stop.
package intake

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kartikbazzad/mergeindex/internal/cursor"
	mergeerrors "github.com/kartikbazzad/mergeindex/internal/errors"
	"github.com/kartikbazzad/mergeindex/internal/logger"
	"github.com/kartikbazzad/mergeindex/internal/source"
	"github.com/kartikbazzad/mergeindex/internal/types"
)

// Intake admits pages for a fixed, up-front-registered set of sources
// into a PageSink, tracking liveness and injecting the isLast sentinel
// once every source has finished.
type Intake struct {
	sink cursor.PageSink
	log  *logger.Logger

	mu       sync.Mutex
	counters map[types.SourceID]*source.Counter
	total    atomic.Int64

	expectedRows atomic.Int64
	finished     atomic.Int64
	failed       atomic.Bool
	lastSent     atomic.Bool
}

// New returns an Intake feeding sink. log may be nil (logger.Default() is
// used instead).
func New(sink cursor.PageSink, log *logger.Logger) *Intake {
	if log == nil {
		log = logger.Default()
	}
	return &Intake{
		sink:     sink,
		log:      log,
		counters: make(map[types.SourceID]*source.Counter),
	}
}

// RegisterSource admits a new source into the index. Must happen before
// any page from that source arrives. Registering the same id twice is a
// programming error.
func (i *Intake) RegisterSource(id types.SourceID) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.counters[id]; ok {
		return mergeerrors.InvariantViolation("duplicate registration of source %d", id)
	}
	i.counters[id] = source.New()
	i.total.Add(1)
	i.sink.RegisterSource(id)
	i.log.Debug("source registered", "source", id)
	return nil
}

func (i *Intake) counterFor(id types.SourceID) (*source.Counter, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	c, ok := i.counters[id]
	return c, ok
}

// ExpectedRows returns the sum of allRows over every source whose first
// page has been admitted so far. Monotonically non-decreasing.
func (i *Intake) ExpectedRows() int64 {
	return i.expectedRows.Load()
}

// Done reports whether every registered source has reached Finished.
func (i *Intake) Done() bool {
	total := i.total.Load()
	return total > 0 && i.finished.Load() == total
}

// OutstandingSources returns the registered sources that have not yet
// reached Finished, for the liveness sweeper to probe.
func (i *Intake) OutstandingSources() []types.SourceID {
	i.mu.Lock()
	defer i.mu.Unlock()
	ids := make([]types.SourceID, 0, len(i.counters))
	for id, c := range i.counters {
		if c.State() != source.Finished {
			ids = append(ids, id)
		}
	}
	return ids
}

func (i *Intake) sourceIDs() []types.SourceID {
	i.mu.Lock()
	defer i.mu.Unlock()
	ids := make([]types.SourceID, 0, len(i.counters))
	for id := range i.counters {
		ids = append(ids, id)
	}
	return ids
}

// AddPage admits one page from a registered source. It updates that
// source's remaining count, enqueues the page for the draining cursor,
// and — only after the enqueue — flips the source's state to Finished if
// its remaining count has reached exactly zero and its first page has
// been admitted (enqueue-before-flip). Once every registered source has
// finished, the isLast sentinel is injected exactly once.
//
// A page for an already-failed index is dropped without error; a page
// for an unregistered source is rejected with ErrInvariantViolation.
func (i *Intake) AddPage(page types.ResultPage) error {
	if i.failed.Load() {
		return nil
	}

	counter, ok := i.counterFor(page.Source)
	if !ok {
		return mergeerrors.InvariantViolation("page from unregistered source %d", page.Source)
	}

	if page.AllRows != nil {
		if counter.State() != source.Uninitialized {
			return mergeerrors.InvariantViolation("duplicate first page from source %d", page.Source)
		}
		counter.AddAndGet(int64(*page.AllRows))
		i.expectedRows.Add(int64(*page.AllRows))
	}

	counter.AddAndGet(-int64(page.RowsInPage))

	// Enqueue before flipping to Initialized: a concurrent reader that
	// observes the new state must also observe the page already queued.
	if page.RowsInPage > 0 {
		i.sink.Enqueue(page)
	}
	if page.AllRows != nil {
		counter.SetState(source.Initialized)
	}

	i.log.Debug("page admitted", "source", page.Source, "rows", page.RowsInPage, "remaining", counter.Get())

	if counter.Get() != 0 {
		return nil
	}
	// A source still Uninitialized can sit at zero before its first page
	// arrives; only an Initialized source may be finished.
	if counter.State() != source.Initialized {
		return nil
	}
	counter.SetState(source.Finished)
	i.sink.CloseSource(page.Source)
	i.log.Info("source finished", "source", page.Source)

	if i.finished.Add(1) == i.total.Load() {
		i.injectLast()
	}
	return nil
}

func (i *Intake) injectLast() {
	if i.lastSent.CompareAndSwap(false, true) {
		i.sink.Enqueue(types.LastPage())
	}
}

// Fail marks the whole index failed and delivers a synthetic isFail page
// to every registered source's queue, so whichever stream the cursor is
// blocked on wakes with the error. Idempotent: only the first call takes
// effect.
func (i *Intake) Fail(err error) {
	if !i.failed.CompareAndSwap(false, true) {
		return
	}
	i.log.Error("merge index failed", "error", err)
	for _, id := range i.sourceIDs() {
		i.sink.Enqueue(types.FailPage(id, err))
	}
}

// FailSource reports that a single source's transport has failed. A
// merge index cannot produce a correct result missing one source's rows,
// so this fails the whole index, not just that source.
func (i *Intake) FailSource(id types.SourceID, cause error) {
	i.Fail(mergeerrors.SourceFailure("source %d failed: %v", id, cause))
}

// RequestNext is the cursor-side demand hook: fetch the next page from
// drained's source only if that source still has rows outstanding. Uses
// remaining != 0, not remaining > 0: a transient negative remaining (a
// non-first page arriving before the first) still counts as outstanding.
func (i *Intake) RequestNext(ctx context.Context, drained types.ResultPage) error {
	counter, ok := i.counterFor(drained.Source)
	if !ok {
		return nil
	}
	if counter.Get() == 0 {
		return nil
	}
	return drained.FetchNextPage(ctx)
}
