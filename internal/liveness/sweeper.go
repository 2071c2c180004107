// Package liveness runs the periodic background sweep that fails a
// source (and therefore the whole index) once discovery reports it
// dead, so a query never blocks forever on a node that will never send
// its remaining pages.
package liveness

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/kartikbazzad/mergeindex/internal/discovery"
	"github.com/kartikbazzad/mergeindex/internal/logger"
	"github.com/kartikbazzad/mergeindex/internal/types"
)

// Reporter is the subset of Intake the sweeper needs: which sources are
// still outstanding, and how to fail one.
type Reporter interface {
	OutstandingSources() []types.SourceID
	FailSource(id types.SourceID, cause error)
}

// ErrSourceUnreachable is the cause reported to FailSource when discovery
// says a source is no longer alive.
var ErrSourceUnreachable = errors.New("source is no longer reachable")

// Sweeper periodically probes every outstanding source through a Prober
// and fails the first one discovery reports dead. Follows the usual
// Start/Stop/worker lifecycle of a background scheduler, with the worker
// itself dispatched through an ants pool capped at one in-flight sweep so
// a slow probe round never overlaps the next tick.
type Sweeper struct {
	prober   discovery.Prober
	reporter Reporter
	interval time.Duration
	log      *logger.Logger

	pool *ants.Pool

	mu      sync.Mutex
	stopped bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewSweeper returns a Sweeper that probes every interval. log may be nil.
func NewSweeper(prober discovery.Prober, reporter Reporter, interval time.Duration, log *logger.Logger) *Sweeper {
	if log == nil {
		log = logger.Default()
	}
	return &Sweeper{
		prober:   prober,
		reporter: reporter,
		interval: interval,
		log:      log,
	}
}

// Start begins the periodic sweep in the background. Safe to call once;
// a second call without an intervening Stop is a no-op.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh != nil {
		return nil
	}

	pool, err := ants.NewPool(1)
	if err != nil {
		return err
	}
	s.pool = pool
	s.stopped = false
	s.stopCh = make(chan struct{})

	s.wg.Add(1)
	go s.run(ctx)
	return nil
}

// Stop halts the sweep and releases its worker pool, blocking until the
// background goroutine has exited.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if s.stopCh == nil || s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	if s.pool != nil {
		s.pool.Release()
	}
	s.stopCh = nil
	s.mu.Unlock()
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.pool.Submit(func() { s.sweepOnce(ctx) }); err != nil {
				s.log.Warn("liveness sweep submit failed", "error", err)
			}
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	for _, id := range s.reporter.OutstandingSources() {
		alive, err := s.prober.IsAlive(ctx, id)
		if err != nil {
			s.log.Warn("liveness probe failed", "source", id, "error", err)
			continue
		}
		if !alive {
			s.log.Error("source reported dead by discovery", "source", id)
			s.reporter.FailSource(id, ErrSourceUnreachable)
			return
		}
	}
}
