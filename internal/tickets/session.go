package tickets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	pkgerrors "github.com/angelmondragon/taskrent-backend/pkg/errors"
	"github.com/angelmondragon/taskrent-backend/pkg/logger"
	"github.com/angelmondragon/taskrent-backend/pkg/metrics"
)

// DefaultPollInterval is the cadence of scheduled passes.
const DefaultPollInterval = 60 * time.Second

var (
	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = errors.New("ticket session closed")
	// ErrSessionInactive is returned by Refresh before Activate succeeded.
	ErrSessionInactive = errors.New("ticket session not active")
	// ErrSessionActivating is returned by Activate while another initial
	// pass is still running.
	ErrSessionActivating = errors.New("ticket session activation in progress")
)

// SessionParams configure a ticket session.
type SessionParams struct {
	Store        Store
	TicketNumber string
	Interval     time.Duration
	Logger       *logger.Logger
	Metrics      *metrics.TicketSyncMetrics
}

// Session owns the sync loop of one visible ticket. A single goroutine runs
// every scheduled and requested pass, so the snapshot has exactly one writer.
// The session context is created up front so Close can abort the initial
// fetch as well as the loop.
type Session struct {
	store    Store
	number   string
	interval time.Duration
	logg     *logger.Logger
	metrics  *metrics.TicketSyncMetrics

	snapshot atomic.Pointer[TicketDetail]
	updates  chan *TicketDetail
	requests chan chan error

	life context.Context
	stop context.CancelFunc

	mu         sync.Mutex
	activating bool
	running    bool
	closed     bool

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewSession prepares a session. Nothing is fetched until Activate.
func NewSession(params SessionParams) (*Session, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("ticket store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	number := strings.TrimSpace(params.TicketNumber)
	if number == "" {
		return nil, fmt.Errorf("ticket number required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	life, stop := context.WithCancel(context.Background())
	return &Session{
		store:    params.Store,
		number:   number,
		interval: interval,
		logg:     params.Logger,
		metrics:  params.Metrics,
		updates:  make(chan *TicketDetail, 1),
		requests: make(chan chan error),
		life:     life,
		stop:     stop,
	}, nil
}

// TicketNumber returns the number the session follows.
func (s *Session) TicketNumber() string {
	return s.number
}

// Snapshot returns the latest reconciled detail, or nil before the first
// successful pass.
func (s *Session) Snapshot() *TicketDetail {
	return s.snapshot.Load()
}

// Updates delivers the snapshot after each pass that changed it. Slow
// readers only see the latest value.
func (s *Session) Updates() <-chan *TicketDetail {
	return s.updates
}

// Activate runs the initial pass and, when it succeeds, starts the recurring
// loop. A failed initial pass is returned so the caller can offer a retry,
// which is another call to Activate. Activating a running session performs an
// immediate pass instead of starting a second loop. The initial pass stops
// when either ctx or the session is canceled.
func (s *Session) Activate(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return ErrSessionClosed
	case s.running:
		s.mu.Unlock()
		return s.Refresh(ctx)
	case s.activating:
		s.mu.Unlock()
		return ErrSessionActivating
	}
	s.activating = true
	s.mu.Unlock()

	ctx = s.logg.WithTicketNumber(ctx, s.number)
	passCtx, cancelPass := context.WithCancel(ctx)
	detach := context.AfterFunc(s.life, cancelPass)
	err := s.pass(passCtx)
	detach()
	cancelPass()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.activating = false
	if s.closed {
		return ErrSessionClosed
	}
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error_code", string(pkgerrors.CodeOf(err))), "initial ticket sync failed")
		return err
	}

	s.running = true
	s.wg.Add(1)
	go s.run(s.logg.WithTicketNumber(s.life, s.number))
	return nil
}

// Refresh asks the loop for an immediate pass and waits for its result.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	running, closed := s.running, s.closed
	s.mu.Unlock()
	if closed {
		return ErrSessionClosed
	}
	if !running {
		return ErrSessionInactive
	}

	reply := make(chan error, 1)
	select {
	case s.requests <- reply:
	case <-s.life.Done():
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels any in-flight pass, stops the loop and waits for it to exit.
// It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.stop()
	})
	s.wg.Wait()
}

func (s *Session) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			if err := s.pass(ctx); err != nil && ctx.Err() == nil {
				s.logg.Warn(s.logg.WithField(ctx, "error_code", string(pkgerrors.CodeOf(err))), "scheduled ticket sync failed")
			}
		case reply := <-s.requests:
			if ctx.Err() != nil {
				reply <- ErrSessionClosed
				return
			}
			reply <- s.pass(ctx)
		}
	}
}

func (s *Session) pass(ctx context.Context) error {
	started := time.Now()
	remote, err := s.store.FetchTicketDetail(ctx, s.number)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		s.metrics.ObservePass(metrics.SyncResultFailed, time.Since(started))
		return err
	}

	next, changed := Reconcile(s.snapshot.Load(), remote)
	if !changed {
		s.metrics.ObservePass(metrics.SyncResultNoop, time.Since(started))
		return nil
	}
	s.snapshot.Store(next)
	s.publish(next)
	s.metrics.ObservePass(metrics.SyncResultApplied, time.Since(started))
	s.logg.Debug(s.logg.WithField(ctx, "messages", len(next.Messages)), "ticket snapshot updated")
	return nil
}

func (s *Session) publish(detail *TicketDetail) {
	select {
	case s.updates <- detail:
		return
	default:
	}
	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- detail:
	default:
	}
}
