package cursor

import (
	"bytes"
	"context"
	"testing"

	"github.com/kartikbazzad/mergeindex/internal/types"
)

func keyRow(k byte) types.Row { return types.Row{Key: []byte{k}} }

func byKey(a, b types.Row) int { return bytes.Compare(a.Key, b.Key) }

func TestFIFOCursorArrivalOrder(t *testing.T) {
	sink := NewFIFOSink()
	ctx := context.Background()

	sink.Enqueue(types.NewResultPage(1, []types.Row{keyRow(3), keyRow(1)}, nil, nil))
	sink.Enqueue(types.NewResultPage(2, []types.Row{keyRow(2)}, nil, nil))
	sink.Enqueue(types.LastPage())

	c := NewFIFOCursor(sink, nil)
	want := []byte{3, 1, 2}
	for i, w := range want {
		if !c.Next(ctx) {
			t.Fatalf("Next() false at row %d, err=%v", i, c.Err())
		}
		if got := c.Row().Key[0]; got != w {
			t.Fatalf("row %d = %d, want %d", i, got, w)
		}
	}
	if c.Next(ctx) {
		t.Fatalf("Next() should end after isLast")
	}
	if c.Err() != nil {
		t.Fatalf("Err() = %v, want nil", c.Err())
	}
}

func TestFIFOCursorSurfacesFailure(t *testing.T) {
	sink := NewFIFOSink()
	ctx := context.Background()

	wantErr := types.FailPage(1, errBoom)
	sink.Enqueue(types.NewResultPage(1, []types.Row{keyRow(1)}, nil, nil))
	sink.Enqueue(wantErr)

	c := NewFIFOCursor(sink, nil)
	if !c.Next(ctx) {
		t.Fatalf("Next() false before failure, err=%v", c.Err())
	}
	if c.Next(ctx) {
		t.Fatalf("Next() should stop at isFail")
	}
	if c.Err() != errBoom {
		t.Fatalf("Err() = %v, want %v", c.Err(), errBoom)
	}
}

func TestMergeCursorSortedOrder(t *testing.T) {
	sink := NewMergeSink()
	sink.RegisterSource(1)
	sink.RegisterSource(2)
	ctx := context.Background()

	sink.Enqueue(types.NewResultPage(1, []types.Row{keyRow(1), keyRow(4)}, nil, nil))
	sink.Enqueue(types.NewResultPage(2, []types.Row{keyRow(2), keyRow(3)}, nil, nil))
	sink.CloseSource(1)
	sink.CloseSource(2)

	c := NewMergeCursor(sink, []types.SourceID{1, 2}, byKey, nil)
	want := []byte{1, 2, 3, 4}
	for i, w := range want {
		if !c.Next(ctx) {
			t.Fatalf("Next() false at row %d, err=%v", i, c.Err())
		}
		if got := c.Row().Key[0]; got != w {
			t.Fatalf("row %d = %d, want %d", i, got, w)
		}
	}
	if c.Next(ctx) {
		t.Fatalf("Next() should end once both sources are exhausted")
	}
}

func TestMergeCursorTieBreakBySourceID(t *testing.T) {
	sink := NewMergeSink()
	sink.RegisterSource(5)
	sink.RegisterSource(2)
	ctx := context.Background()

	// Cols[0] tags each row with the id of the source that sent it.
	sink.Enqueue(types.NewResultPage(5, []types.Row{{Key: []byte{1}, Cols: [][]byte{{5}}}}, nil, nil))
	sink.Enqueue(types.NewResultPage(2, []types.Row{{Key: []byte{1}, Cols: [][]byte{{2}}}}, nil, nil))
	sink.CloseSource(5)
	sink.CloseSource(2)

	c := NewMergeCursor(sink, []types.SourceID{5, 2}, byKey, nil)
	if !c.Next(ctx) {
		t.Fatalf("Next() false, err=%v", c.Err())
	}
	// equal keys: lower source id wins the tie-break regardless of
	// registration order.
	if got := c.Row(); got.Key[0] != 1 || got.Cols[0][0] != 2 {
		t.Fatalf("first row = %v, want key 1 from source 2", got)
	}
}

func TestMergeCursorSurfacesFailureAfterPendingRow(t *testing.T) {
	sink := NewMergeSink()
	sink.RegisterSource(1)
	ctx := context.Background()

	sink.Enqueue(types.NewResultPage(1, []types.Row{keyRow(1)}, nil, nil))
	sink.Enqueue(types.FailPage(1, errBoom))

	c := NewMergeCursor(sink, []types.SourceID{1}, byKey, nil)
	if !c.Next(ctx) {
		t.Fatalf("Next() false on first row, err=%v", c.Err())
	}
	if c.Next(ctx) {
		t.Fatalf("Next() should stop once the failure is reached")
	}
	if c.Err() != errBoom {
		t.Fatalf("Err() = %v, want %v", c.Err(), errBoom)
	}
}

var errBoom = &boomErr{}

type boomErr struct{}

func (*boomErr) Error() string { return "boom" }
