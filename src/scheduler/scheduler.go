package scheduler

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"market-simulator/src/logger"
)

const (
	DefaultMinDelay = 3000 * time.Millisecond
	DefaultMaxDelay = 8000 * time.Millisecond
)

var ErrStopped = errors.New("scheduler stopped")

// Timer is the cancel handle of an armed callback. *time.Timer satisfies it.
type Timer interface {
	Stop() bool
}

// AfterFunc arms f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// -----------------------------------------------------------------------------

// UpdateScheduler calls tick at random intervals in [minDelay, maxDelay).
// It owns a single pending-timer slot: arming always cancels what was there,
// and the next timer is armed only after the previous tick returned.
type UpdateScheduler struct {
	Logger *logger.Logger

	mu        sync.Mutex
	tickMu    sync.Mutex
	pending   Timer
	gen       uint64
	started   bool
	paused    bool
	stopped   bool
	ticks     uint64
	done      chan struct{}
	minDelay  time.Duration
	maxDelay  time.Duration
	rng       *rand.Rand
	afterFunc AfterFunc
	tick      func()
}

// Option customizes an UpdateScheduler
type Option func(*UpdateScheduler)

// WithDelays sets the delay bounds.
func WithDelays(minDelay, maxDelay time.Duration) Option {
	return func(s *UpdateScheduler) {
		s.minDelay = minDelay
		s.maxDelay = maxDelay
	}
}

// WithAfterFunc replaces the timer source (tests drive a fake clock).
func WithAfterFunc(fn AfterFunc) Option {
	return func(s *UpdateScheduler) { s.afterFunc = fn }
}

// WithRand sets the source of delay draws.
func WithRand(r *rand.Rand) Option {
	return func(s *UpdateScheduler) { s.rng = r }
}

// WithLogger sets the component logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *UpdateScheduler) { s.Logger = l }
}

// -----------------------------------------------------------------------------

func New(tick func(), opts ...Option) *UpdateScheduler {
	s := &UpdateScheduler{
		minDelay:  DefaultMinDelay,
		maxDelay:  DefaultMaxDelay,
		afterFunc: realAfterFunc,
		tick:      tick,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if s.Logger == nil {
		s.Logger = logger.NewLogger(nil, "UpdateScheduler")
	}
	return s
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Start arms the first timer. Cancelling ctx stops the scheduler, so callers
// scope it with the view that owns it.
func (s *UpdateScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	if !s.paused {
		s.armLocked()
	}
	s.mu.Unlock()

	if ctx != nil {
		go func() {
			select {
			case <-ctx.Done():
				s.Stop()
			case <-s.done:
			}
		}()
	}
	return nil
}

// -----------------------------------------------------------------------------

// ScheduleNext cancels the pending timer, if any, and arms a new one.
func (s *UpdateScheduler) ScheduleNext() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.paused {
		return
	}
	s.started = true
	s.armLocked()
}

// -----------------------------------------------------------------------------

// Pause cancels the pending timer without ticking. A tick already running
// finishes before Pause returns; nothing ticks afterwards until Resume.
// It must not be called from inside the tick function.
func (s *UpdateScheduler) Pause() {
	s.mu.Lock()
	if s.stopped || s.paused {
		s.mu.Unlock()
		return
	}
	s.paused = true
	s.cancelLocked()
	s.mu.Unlock()

	s.waitIdle()
	s.Logger.Debug("paused")
}

// -----------------------------------------------------------------------------

// Resume arms one new timer right away.
func (s *UpdateScheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || !s.paused {
		return
	}
	s.paused = false
	s.started = true
	s.armLocked()
	s.Logger.Debug("resumed")
}

// -----------------------------------------------------------------------------

// Stop cancels the pending timer for good and waits for a running tick to
// finish. It is safe to call more than once, but not from inside the tick
// function.
func (s *UpdateScheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		s.waitIdle()
		return
	}
	s.stopped = true
	s.cancelLocked()
	close(s.done)
	s.mu.Unlock()

	s.waitIdle()
	s.Logger.Debug("stopped after %d ticks", s.TickCount())
}

// -----------------------------------------------------------------------------
// State
// -----------------------------------------------------------------------------

func (s *UpdateScheduler) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *UpdateScheduler) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Pending reports whether a timer is armed.
func (s *UpdateScheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// TickCount is the number of ticks run so far.
func (s *UpdateScheduler) TickCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

// Done is closed once the scheduler is stopped.
func (s *UpdateScheduler) Done() <-chan struct{} {
	return s.done
}

// -----------------------------------------------------------------------------
// Internals
// -----------------------------------------------------------------------------

// armLocked fills the pending slot. Bumping gen turns any timer that already
// fired but has not taken the lock yet into a no-op.
func (s *UpdateScheduler) armLocked() {
	s.cancelLocked()
	gen := s.gen
	delay := s.nextDelayLocked()
	s.pending = s.afterFunc(delay, func() { s.fire(gen) })
}

func (s *UpdateScheduler) cancelLocked() {
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
	s.gen++
}

func (s *UpdateScheduler) nextDelayLocked() time.Duration {
	span := s.maxDelay - s.minDelay
	if span <= 0 {
		return s.minDelay
	}
	return s.minDelay + time.Duration(s.rng.Int64N(int64(span)))
}

// waitIdle returns once no tick is running. fire takes tickMu before mu and
// callers release mu first, so the two never nest the other way round.
func (s *UpdateScheduler) waitIdle() {
	s.tickMu.Lock()
	s.tickMu.Unlock()
}

// fire runs one tick-and-reschedule cycle. tickMu keeps ticks strictly serial.
func (s *UpdateScheduler) fire(gen uint64) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	s.mu.Lock()
	if gen != s.gen || s.paused || s.stopped {
		s.mu.Unlock()
		return
	}
	s.pending = nil
	s.mu.Unlock()

	s.tick()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks++
	if gen == s.gen && !s.paused && !s.stopped {
		s.armLocked()
	}
}
