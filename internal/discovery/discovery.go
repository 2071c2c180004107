// Package discovery defines the liveness-probe collaborator the merge
// index engine consults from its background sweep. The real discovery
// service lives outside this module; this package only defines the seam
// and a Static implementation for tests and the demo binary.
package discovery

import (
	"context"
	"sync"

	"github.com/kartikbazzad/mergeindex/internal/types"
)

// Prober answers whether a given source is still alive.
type Prober interface {
	IsAlive(ctx context.Context, source types.SourceID) (bool, error)
}

// Static is a Prober backed by an explicit set of dead source ids, safe
// for concurrent use. It treats every source not marked dead as alive.
type Static struct {
	mu   sync.RWMutex
	dead map[types.SourceID]struct{}
}

// NewStatic returns a Static prober with no dead sources.
func NewStatic() *Static {
	return &Static{dead: make(map[types.SourceID]struct{})}
}

// MarkDead marks a source as dead for future IsAlive calls.
func (s *Static) MarkDead(source types.SourceID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dead[source] = struct{}{}
}

// IsAlive implements Prober.
func (s *Static) IsAlive(_ context.Context, source types.SourceID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, dead := s.dead[source]
	return !dead, nil
}
