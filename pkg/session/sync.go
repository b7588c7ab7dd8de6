package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/planmap/pkg/diagram"
	"github.com/matzehuels/planmap/pkg/observability"
)

// ErrSyncStopped is returned by Flush when the worker stopped before the
// requested snapshots were attempted.
var ErrSyncStopped = errors.New("sync worker stopped")

// Patcher persists a snapshot of diagram id. It is satisfied by
// *remote.Client.
type Patcher interface {
	PatchRevision(ctx context.Context, id string, doc diagram.Document, rev int64) (diagram.Diagram, error)
}

// Syncer is a Sink that forwards snapshots of one diagram to a Patcher
// from a single worker goroutine.
//
// Snapshots are sent in revision order. While a request is in flight, new
// snapshots replace each other so only the latest is sent next; an older
// revision is never sent after a newer one. Failed requests are not
// retried: each failure is logged and passed to the error handler once.
type Syncer struct {
	id      string
	patcher Patcher
	onError func(Snapshot, error)
	logger  *log.Logger

	mu        sync.Mutex
	pending   *Snapshot
	latest    int64 // highest revision accepted
	attempted int64 // highest revision sent or superseded by a sent one
	waiters   []waiter
	closing   bool
	started   bool
	stopped   bool

	wake chan struct{}
	done chan struct{}
}

type waiter struct {
	rev int64
	ch  chan struct{}
}

// SyncOption configures a Syncer.
type SyncOption func(*Syncer)

// OnError sets the handler called once for every failed request.
func OnError(fn func(Snapshot, error)) SyncOption {
	return func(s *Syncer) { s.onError = fn }
}

// WithSyncLogger sets the worker logger.
func WithSyncLogger(l *log.Logger) SyncOption {
	return func(s *Syncer) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSyncer creates a worker for diagram id. Call Start before or after
// the first Dispatch; snapshots dispatched earlier are kept.
func NewSyncer(id string, p Patcher, opts ...SyncOption) *Syncer {
	s := &Syncer{
		id:      id,
		patcher: p,
		logger:  log.New(io.Discard),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start launches the worker. Requests use ctx; cancelling it stops the
// worker without sending what is still pending.
func (s *Syncer) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	go s.run(ctx)
}

// Dispatch queues snap, replacing any snapshot not yet sent. Snapshots not
// newer than the last accepted one are ignored. It never blocks on I/O.
func (s *Syncer) Dispatch(snap Snapshot) {
	s.mu.Lock()
	if s.closing || s.stopped {
		s.mu.Unlock()
		s.logger.Warn("sync worker closed, dropping snapshot", "diagram", s.id, "revision", snap.Revision)
		return
	}
	if snap.Revision <= s.latest {
		s.mu.Unlock()
		s.logger.Debug("ignoring stale snapshot", "diagram", s.id, "revision", snap.Revision, "latest", s.latest)
		return
	}
	s.pending = &snap
	s.latest = snap.Revision
	s.mu.Unlock()

	observability.Sync().OnDispatch(context.Background(), s.id, snap.Revision)
	s.signal()
}

// Flush blocks until every snapshot dispatched so far has been attempted,
// or ctx is done.
func (s *Syncer) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.attempted >= s.latest {
		s.mu.Unlock()
		return nil
	}
	if s.stopped {
		s.mu.Unlock()
		return ErrSyncStopped
	}
	w := waiter{rev: s.latest, ch: make(chan struct{})}
	s.waiters = append(s.waiters, w)
	s.mu.Unlock()

	select {
	case <-w.ch:
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.attempted < w.rev {
			return ErrSyncStopped
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close sends what is pending, then stops the worker. Later dispatches are
// dropped.
func (s *Syncer) Close() error {
	s.mu.Lock()
	s.closing = true
	started := s.started
	s.mu.Unlock()

	if !started {
		return nil
	}
	s.signal()
	<-s.done
	return nil
}

func (s *Syncer) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Syncer) run(ctx context.Context) {
	defer s.stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		}

		for {
			s.mu.Lock()
			snap := s.pending
			s.pending = nil
			s.mu.Unlock()
			if snap == nil {
				break
			}
			if ctx.Err() != nil {
				return
			}

			s.send(ctx, *snap)

			s.mu.Lock()
			s.attempted = snap.Revision
			s.release()
			s.mu.Unlock()
		}

		s.mu.Lock()
		closing := s.closing
		s.mu.Unlock()
		if closing {
			return
		}
	}
}

func (s *Syncer) send(ctx context.Context, snap Snapshot) {
	start := time.Now()
	_, err := s.patcher.PatchRevision(ctx, s.id, snap.Document, snap.Revision)
	elapsed := time.Since(start)
	observability.Sync().OnSync(ctx, s.id, snap.Revision, elapsed, err)

	if err != nil {
		s.logger.Error("sync failed", "diagram", s.id, "revision", snap.Revision, "err", err)
		if s.onError != nil {
			s.onError(snap, err)
		}
		return
	}
	s.logger.Debug("synced", "diagram", s.id, "revision", snap.Revision, "took", elapsed)
}

// release wakes waiters whose revision has been attempted. Callers hold mu.
func (s *Syncer) release() {
	kept := s.waiters[:0]
	for _, w := range s.waiters {
		if w.rev <= s.attempted {
			close(w.ch)
			continue
		}
		kept = append(kept, w)
	}
	s.waiters = kept
}

func (s *Syncer) stop() {
	s.mu.Lock()
	s.stopped = true
	for _, w := range s.waiters {
		close(w.ch)
	}
	s.waiters = nil
	s.mu.Unlock()
	close(s.done)
}

var _ Sink = (*Syncer)(nil)
