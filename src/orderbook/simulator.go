package orderbook

import (
	"math/rand/v2"
	"sync"
	"time"

	"market-simulator/src/models"
)

// Simulator owns one book and replaces its snapshot on every Advance.
// Readers only ever see complete snapshots.
type Simulator struct {
	mu                   sync.RWMutex
	state                models.MOrderBookState
	rng                  *rand.Rand
	lastPriceProbability float64
	now                  func() time.Time

	subMu       sync.RWMutex
	subscribers map[int]func(models.MOrderBookState)
	nextSubID   int
}

// Option customizes a Simulator
type Option func(*Simulator)

// WithRand makes the simulator draw from r (tests pass a seeded source).
func WithRand(r *rand.Rand) Option {
	return func(s *Simulator) { s.rng = r }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) { s.now = now }
}

// WithLastPriceProbability sets the chance a tick moves the last trade.
func WithLastPriceProbability(p float64) Option {
	return func(s *Simulator) { s.lastPriceProbability = p }
}

// -----------------------------------------------------------------------------

// NewSimulator validates initial and normalizes its totals and depths.
// A book with an empty side is rejected here so Advance can never fail.
func NewSimulator(initial models.MOrderBookState, opts ...Option) (*Simulator, error) {
	if err := Validate(initial); err != nil {
		return nil, err
	}

	s := &Simulator{
		lastPriceProbability: DefaultLastPriceProbability,
		now:                  time.Now,
		subscribers:          make(map[int]func(models.MOrderBookState)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	state := initial.Clone()
	for _, side := range [][]models.MPriceLevel{state.Asks, state.Bids} {
		for i := range side {
			side[i].Total = LevelTotal(side[i].Shares, side[i].PriceCents)
		}
		normalizeDepth(side)
	}
	state.UpdatedAt = s.now().Unix()
	s.state = state

	return s, nil
}

// -----------------------------------------------------------------------------

// Snapshot returns a copy of the current book.
func (s *Simulator) Snapshot() models.MOrderBookState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// -----------------------------------------------------------------------------

// Advance runs one tick, installs the result and notifies subscribers.
func (s *Simulator) Advance() models.MOrderBookState {
	s.mu.Lock()
	next := Tick(s.state, s.rng, s.lastPriceProbability)
	next.UpdatedAt = s.now().Unix()
	s.state = next
	s.mu.Unlock()

	s.subMu.RLock()
	subs := make([]func(models.MOrderBookState), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.subMu.RUnlock()

	for _, fn := range subs {
		fn(next.Clone())
	}
	return next.Clone()
}

// -----------------------------------------------------------------------------

// Subscribe registers fn for snapshot replacements and returns its cancel func.
func (s *Simulator) Subscribe(fn func(models.MOrderBookState)) func() {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subscribers, id)
		s.subMu.Unlock()
	}
}
