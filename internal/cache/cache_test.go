package cache

import (
	"errors"
	"testing"

	mergeerrors "github.com/kartikbazzad/mergeindex/internal/errors"
	"github.com/kartikbazzad/mergeindex/internal/types"
)

func row(key byte) types.Row {
	return types.Row{Key: []byte{key}}
}

func TestCacheReplayOrder(t *testing.T) {
	c := New(10)
	c.Append(row(1))
	c.Append(row(2))
	c.Append(row(3))

	it, err := c.NewIterator()
	if err != nil {
		t.Fatalf("NewIterator: %v", err)
	}
	for i := byte(1); i <= 3; i++ {
		r, ok := it.Next()
		if !ok {
			t.Fatalf("Next() ran out early before row %d", i)
		}
		if r.Key[0] != i {
			t.Fatalf("Next() = %v, want key %d", r, i)
		}
	}
	if _, ok := it.Next(); ok {
		t.Fatalf("Next() should be exhausted")
	}
}

func TestCacheStableIteratorToleratesConcurrentAppend(t *testing.T) {
	c := New(10)
	c.Append(row(1))

	it, err := c.NewIterator()
	if err != nil {
		t.Fatalf("NewIterator: %v", err)
	}
	r, ok := it.Next()
	if !ok || r.Key[0] != 1 {
		t.Fatalf("first Next() = %v,%v", r, ok)
	}
	if _, ok := it.Next(); ok {
		t.Fatalf("iterator should have caught up with length 1")
	}

	c.Append(row(2))
	r, ok = it.Next()
	if !ok || r.Key[0] != 2 {
		t.Fatalf("Next() after append = %v,%v, want row 2", r, ok)
	}
}

func TestCacheDiscardOnOverflowIsSticky(t *testing.T) {
	c := New(3)
	for i := byte(1); i <= 3; i++ {
		c.Append(row(i))
		if c.Discarded() {
			t.Fatalf("cache discarded too early at row %d", i)
		}
	}
	c.Append(row(4))
	if !c.Discarded() {
		t.Fatalf("cache should be discarded after exceeding capacity")
	}
	if c.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 once discarded", c.Len())
	}

	c.Append(row(5))
	if !c.Discarded() {
		t.Fatalf("discard must stay sticky")
	}

	_, err := c.NewIterator()
	if !errors.Is(err, mergeerrors.ErrFetchedTooLarge) {
		t.Fatalf("NewIterator() err = %v, want ErrFetchedTooLarge", err)
	}
}
