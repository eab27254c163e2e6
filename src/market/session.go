package market

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"market-simulator/src/logger"
	"market-simulator/src/models"
	"market-simulator/src/orderbook"
	"market-simulator/src/scheduler"
	"market-simulator/src/utils"

	"github.com/google/uuid"
)

// SessionOptions carries the per-book tuning taken from the simulator config.
type SessionOptions struct {
	RunID                string
	MinDelay             time.Duration
	MaxDelay             time.Duration
	LastPriceProbability *float64
	RecentTicks          int

	// test hooks
	AfterFunc scheduler.AfterFunc
	Rand      *rand.Rand
	Now       func() time.Time
}

// -----------------------------------------------------------------------------

// BookSession is one live order book: its simulator, the scheduler driving it
// and the recent ticks it produced. It lives from Open until Close.
type BookSession struct {
	MarketID string
	Logger   *logger.Logger

	sim       *orderbook.Simulator
	sched     *scheduler.UpdateScheduler
	recent    *utils.RingBuffer[models.MTickRecord]
	runID     string
	sessionID string
	now       func() time.Time
	openedAt  time.Time
	closeOnce sync.Once
	unsub     func()
}

// -----------------------------------------------------------------------------

// NewBookSession builds a session from the seed book. The scheduler is not
// armed until Start.
func NewBookSession(marketID string, initial models.MOrderBookState, opts SessionOptions, journal *Journal, log *logger.Logger) (*BookSession, error) {
	if log == nil {
		log = logger.NewLogger(nil, "Book-"+marketID)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	simOpts := []orderbook.Option{orderbook.WithRand(opts.Rand), orderbook.WithClock(opts.Now)}
	if opts.LastPriceProbability != nil {
		simOpts = append(simOpts, orderbook.WithLastPriceProbability(*opts.LastPriceProbability))
	}
	sim, err := orderbook.NewSimulator(initial, simOpts...)
	if err != nil {
		return nil, fmt.Errorf("book %s: %w", marketID, err)
	}

	// sequences restart with every session, so the journal keys rows by session
	s := &BookSession{
		MarketID:  marketID,
		Logger:    log,
		sim:       sim,
		recent:    utils.NewRingBuffer[models.MTickRecord](opts.RecentTicks),
		runID:     opts.RunID,
		sessionID: uuid.NewString(),
		now:       opts.Now,
		openedAt:  opts.Now(),
	}

	// the scheduler draws delays concurrently with ticks, so it gets its own source
	schedRand := rand.New(rand.NewPCG(opts.Rand.Uint64(), opts.Rand.Uint64()))
	schedOpts := []scheduler.Option{scheduler.WithRand(schedRand), scheduler.WithLogger(log)}
	if opts.MinDelay > 0 && opts.MaxDelay > 0 {
		schedOpts = append(schedOpts, scheduler.WithDelays(opts.MinDelay, opts.MaxDelay))
	}
	if opts.AfterFunc != nil {
		schedOpts = append(schedOpts, scheduler.WithAfterFunc(opts.AfterFunc))
	}
	s.sched = scheduler.New(func() { s.sim.Advance() }, schedOpts...)

	s.unsub = sim.Subscribe(func(state models.MOrderBookState) {
		rec := s.record(state)
		s.recent.Append(rec)
		if journal != nil {
			journal.Record(rec)
		}
	})

	return s, nil
}

// -----------------------------------------------------------------------------

// Start arms the scheduler; cancelling ctx closes the session.
func (s *BookSession) Start(ctx context.Context) error {
	if err := s.sched.Start(ctx); err != nil {
		return err
	}
	s.Logger.Info("Book %s opened", s.MarketID)
	return nil
}

// Close stops updates for good. Safe to call more than once.
func (s *BookSession) Close() {
	s.closeOnce.Do(func() {
		s.sched.Stop()
		s.unsub()
		s.Logger.Info("Book %s closed after %d ticks", s.MarketID, s.sched.TickCount())
	})
}

// Done is closed once the session has stopped.
func (s *BookSession) Done() <-chan struct{} {
	return s.sched.Done()
}

// -----------------------------------------------------------------------------

func (s *BookSession) Pause()       { s.sched.Pause() }
func (s *BookSession) Resume()      { s.sched.Resume() }
func (s *BookSession) Paused() bool { return s.sched.Paused() }
func (s *BookSession) Closed() bool { return s.sched.Stopped() }

// Armed reports whether the next tick is scheduled.
func (s *BookSession) Armed() bool { return s.sched.Pending() }

// Snapshot returns the current book.
func (s *BookSession) Snapshot() models.MOrderBookState {
	return s.sim.Snapshot()
}

// View returns the current book rendered for display.
func (s *BookSession) View() models.MOrderBookView {
	return orderbook.BuildView(s.MarketID, s.sim.Snapshot(), s.Paused())
}

// RecentTicks returns up to n of the newest tick records, oldest first. A
// non-positive n returns everything retained.
func (s *BookSession) RecentTicks(n int) []models.MTickRecord {
	if n <= 0 || n > s.recent.Capacity() {
		n = s.recent.Capacity()
	}
	return s.recent.GetLatest(n)
}

// TickCount is the number of ticks applied so far.
func (s *BookSession) TickCount() uint64 {
	return s.sched.TickCount()
}

// SessionID identifies this session in the tick journal.
func (s *BookSession) SessionID() string {
	return s.sessionID
}

func (s *BookSession) OpenedAt() time.Time {
	return s.openedAt
}

// Subscribe forwards every new snapshot, rendered, to fn.
func (s *BookSession) Subscribe(fn func(models.MOrderBookView)) func() {
	return s.sim.Subscribe(func(state models.MOrderBookState) {
		fn(orderbook.BuildView(s.MarketID, state, s.Paused()))
	})
}

// -----------------------------------------------------------------------------

func (s *BookSession) record(state models.MOrderBookState) models.MTickRecord {
	return models.MTickRecord{
		RunID:          s.runID,
		SessionID:      s.sessionID,
		MarketID:       s.MarketID,
		Sequence:       state.Sequence,
		LastPriceCents: state.LastPriceCents,
		SpreadCents:    state.SpreadCents,
		BestAskCents:   orderbook.BestAsk(state),
		BestBidCents:   orderbook.BestBid(state),
		AskTotal:       orderbook.SideTotal(state.Asks),
		BidTotal:       orderbook.SideTotal(state.Bids),
		CreatedAt:      s.now(),
	}
}
