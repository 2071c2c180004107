// Package cache implements FetchCache: a bounded, append-only sequence of
// already-observed rows, plus a stable forward iterator over it.
//
// Cache is single-writer/single-reader by contract: only the
// query-executor thread, via the draining cursor, ever touches it, so it
// carries no internal locking.
package cache

import (
	mergeerrors "github.com/kartikbazzad/mergeindex/internal/errors"
	"github.com/kartikbazzad/mergeindex/internal/types"
)

// Cache is an append-only row sequence with a hard capacity. Exceeding the
// capacity atomically discards the whole sequence (not per-entry
// eviction): once discarded, it stays discarded for the life of the
// index.
type Cache struct {
	rows      []types.Row
	cap       int
	discarded bool
}

// New returns an empty cache capped at capacity rows.
func New(capacity int) *Cache {
	return &Cache{cap: capacity}
}

// Append adds a row to the cache. If this append would exceed capacity,
// the cache is discarded instead (the whole sequence reference becomes
// "none") and the row is not retained. Append on an already-discarded
// cache is a no-op.
func (c *Cache) Append(row types.Row) {
	if c.discarded {
		return
	}
	if len(c.rows)+1 > c.cap {
		c.rows = nil
		c.discarded = true
		return
	}
	c.rows = append(c.rows, row)
}

// Discarded reports whether the cache has been discarded for exceeding
// its capacity.
func (c *Cache) Discarded() bool {
	return c.discarded
}

// Len returns the number of rows currently retained (0 once discarded).
func (c *Cache) Len() int {
	return len(c.rows)
}

// NewIterator returns a stable forward iterator over the cache, or
// ErrFetchedTooLarge if the cache has been discarded.
func (c *Cache) NewIterator() (*Iterator, error) {
	if c.discarded {
		return nil, mergeerrors.ErrFetchedTooLarge
	}
	return &Iterator{cache: c}, nil
}

// Iterator is an index-based stable forward iterator: it stores only the
// current index and compares it against the cache's current length on
// every Next call, so concurrent appends are tolerated without aborting
// or skipping, though under this package's single-writer/single-reader
// contract the iterator and the appends it observes always run on the
// same goroutine.
type Iterator struct {
	cache *Cache
	i     int
}

// Next returns the row at the iterator's current position and advances
// it, or ok=false if the iterator has caught up with the cache's current
// length.
func (it *Iterator) Next() (row types.Row, ok bool) {
	if it.i >= len(it.cache.rows) {
		return types.Row{}, false
	}
	row = it.cache.rows[it.i]
	it.i++
	return row, true
}
