package mergeindex

import (
	"bytes"
	"context"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/kartikbazzad/mergeindex/internal/types"
)

// TestConcurrentSourcesProduceCompleteMergedResult drives many source
// producers concurrently, each split across several pages, and checks the
// merged result holds exactly numSources*rowsPerSource rows.
func TestConcurrentSourcesProduceCompleteMergedResult(t *testing.T) {
	const numSources = 8
	const rowsPerSource = 20

	cmp := func(a, b types.Row) int { return bytes.Compare(a.Key, b.Key) }
	mi := New(Options{Variant: Sorted, Comparator: cmp})

	for s := 0; s < numSources; s++ {
		if err := mi.RegisterSource(types.SourceID(s + 1)); err != nil {
			t.Fatalf("RegisterSource %d: %v", s+1, err)
		}
	}

	var g errgroup.Group
	for s := 0; s < numSources; s++ {
		source := types.SourceID(s + 1)
		g.Go(func() error {
			return produceSource(mi, source, rowsPerSource)
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("producer group: %v", err)
	}

	cur, err := mi.Find(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	got := drain(t, cur)
	if len(got) != numSources*rowsPerSource {
		t.Fatalf("got %d rows, want %d", len(got), numSources*rowsPerSource)
	}
}

func produceSource(mi *MergeIndex, source types.SourceID, total int) error {
	const pageSize = 3
	remaining := total
	first := true
	seq := byte(0)
	for remaining > 0 {
		n := pageSize
		if n > remaining {
			n = remaining
		}
		batch := make([]types.Row, n)
		for i := range batch {
			batch[i] = types.Row{Key: []byte{byte(source), seq}}
			seq++
		}

		var allRows *int
		if first {
			t := total
			allRows = &t
			first = false
		}
		if err := mi.AddPage(types.NewResultPage(source, batch, allRows, nil)); err != nil {
			return err
		}
		remaining -= n
	}
	return nil
}
