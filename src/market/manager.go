package market

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"market-simulator/src/helpers"
	"market-simulator/src/logger"
	"market-simulator/src/models"
	"market-simulator/src/orderbook"
	"market-simulator/src/scheduler"
	"market-simulator/src/utils"

	"github.com/google/btree"
	"github.com/google/uuid"
)

const btreeDegree = 8

// BookListener receives every rendered snapshot of every open book.
type BookListener func(view models.MOrderBookView)

// CloseListener is told when a book is torn down by Close.
type CloseListener func(marketID string)

// -----------------------------------------------------------------------------

// SessionManager owns the open book sessions, ordered by market id.
type SessionManager struct {
	Config  *models.MConfig
	Logger  *logger.Logger
	Catalog *Catalog
	RunID   string

	mu       sync.RWMutex
	sessions *btree.BTreeG[*BookSession]
	journal  *Journal
	listener BookListener
	onClose  CloseListener
	ctx      context.Context
	cancel   context.CancelFunc
	closed   bool

	// test hook, copied into every session
	sessionOpts SessionOptions
	seed        uint64
}

// -----------------------------------------------------------------------------

// NewSessionManager scopes every session to ctx. journal may be nil.
func NewSessionManager(ctx context.Context, cfg *models.MConfig, catalog *Catalog, journal *Journal, log *logger.Logger) *SessionManager {
	if log == nil {
		log = logger.NewLogger(cfg, "SessionManager")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)

	m := &SessionManager{
		Config:  cfg,
		Logger:  log,
		Catalog: catalog,
		RunID:   uuid.NewString(),
		sessions: btree.NewG(btreeDegree, func(a, b *BookSession) bool {
			return lessMarketID(a.MarketID, b.MarketID)
		}),
		journal: journal,
		ctx:     ctx,
		cancel:  cancel,
	}

	m.sessionOpts = SessionOptions{
		RunID:                m.RunID,
		MinDelay:             time.Duration(cfg.Simulator.MinDelayMs) * time.Millisecond,
		MaxDelay:             time.Duration(cfg.Simulator.MaxDelayMs) * time.Millisecond,
		LastPriceProbability: cfg.Simulator.LastPriceProbability,
		RecentTicks:          cfg.Simulator.RecentTicks,
	}
	if m.sessionOpts.RecentTicks <= 0 {
		m.sessionOpts.RecentTicks = utils.DefaultRecentTicks
	}

	return m
}

// -----------------------------------------------------------------------------

// SetListener installs fn for books opened from now on.
func (m *SessionManager) SetListener(fn BookListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = fn
}

// SetCloseListener installs fn, called after every successful Close.
func (m *SessionManager) SetCloseListener(fn CloseListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onClose = fn
}

// UseTimers replaces the timer source and seeds the random sources of every
// session opened afterwards.
func (m *SessionManager) UseTimers(afterFunc scheduler.AfterFunc, seed uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionOpts.AfterFunc = afterFunc
	m.seed = seed
}

// -----------------------------------------------------------------------------

// Open returns the session for marketID, starting a fresh one from the seed
// book if none is open.
func (m *SessionManager) Open(marketID string) (*BookSession, error) {
	if _, err := m.Catalog.Get(marketID); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, helpers.NewValidationError("session manager is closed")
	}
	if s, ok := m.sessions.Get(&BookSession{MarketID: marketID}); ok {
		return s, nil
	}

	opts := m.sessionOpts
	if m.seed != 0 {
		opts.Rand = rand.New(rand.NewPCG(m.seed, uint64(m.sessions.Len()+1)))
	}

	s, err := NewBookSession(marketID, orderbook.DefaultBook(), opts, m.journal, logger.NewLogger(m.Config, "Book-"+marketID))
	if err != nil {
		return nil, err
	}
	if m.listener != nil {
		s.Subscribe(m.listener)
	}
	if err := s.Start(m.ctx); err != nil {
		return nil, err
	}

	m.sessions.ReplaceOrInsert(s)
	m.Logger.Info("Opened book %s (%d open)", marketID, m.sessions.Len())
	return s, nil
}

// -----------------------------------------------------------------------------

// Get returns the open session for marketID.
func (m *SessionManager) Get(marketID string) (*BookSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions.Get(&BookSession{MarketID: marketID})
	if !ok {
		return nil, helpers.NewNotFoundError("no open book for market %q", marketID)
	}
	return s, nil
}

// -----------------------------------------------------------------------------

// Close tears down the session for marketID.
func (m *SessionManager) Close(marketID string) error {
	m.mu.Lock()
	s, ok := m.sessions.Delete(&BookSession{MarketID: marketID})
	n := m.sessions.Len()
	onClose := m.onClose
	m.mu.Unlock()

	if !ok {
		return helpers.NewNotFoundError("no open book for market %q", marketID)
	}
	s.Close()
	m.Logger.Info("Closed book %s (%d open)", marketID, n)
	if onClose != nil {
		onClose(marketID)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (m *SessionManager) Pause(marketID string) error {
	s, err := m.Get(marketID)
	if err != nil {
		return err
	}
	s.Pause()
	return nil
}

func (m *SessionManager) Resume(marketID string) error {
	s, err := m.Get(marketID)
	if err != nil {
		return err
	}
	s.Resume()
	return nil
}

// -----------------------------------------------------------------------------

// List returns the open sessions ordered by market id.
func (m *SessionManager) List() []*BookSession {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*BookSession, 0, m.sessions.Len())
	m.sessions.Ascend(func(s *BookSession) bool {
		out = append(out, s)
		return true
	})
	return out
}

func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions.Len()
}

// -----------------------------------------------------------------------------

// CloseAll tears down every session and refuses new ones.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	m.closed = true
	var all []*BookSession
	for {
		s, ok := m.sessions.DeleteMin()
		if !ok {
			break
		}
		all = append(all, s)
	}
	m.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
	m.cancel()
	m.Logger.Info("Closed %d books", len(all))
}

// -----------------------------------------------------------------------------

// lessMarketID orders numeric ids numerically ("2" < "10"), then the rest
// lexically after them.
func lessMarketID(a, b string) bool {
	na, aNum := numericID(a)
	nb, bNum := numericID(b)
	switch {
	case aNum && bNum:
		if na != nb {
			return na < nb
		}
		return a < b
	case aNum:
		return true
	case bNum:
		return false
	default:
		return a < b
	}
}

func numericID(id string) (uint64, bool) {
	if id == "" || len(id) > 18 {
		return 0, false
	}
	var n uint64
	for _, r := range id {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + uint64(r-'0')
	}
	return n, true
}
