package market

import (
	"context"
	"sync"
	"testing"
	"time"

	"market-simulator/src/models"
	"market-simulator/src/scheduler"
)

// manualTimers fires armed callbacks only when Advance is called.
type manualTimers struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	owner *manualTimers
	at    time.Duration
	fn    func()
	done  bool
}

func (t *manualTimer) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	was := !t.done
	t.done = true
	return was
}

func (m *manualTimers) AfterFunc(d time.Duration, f func()) scheduler.Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{owner: m, at: m.now + d, fn: f}
	m.timers = append(m.timers, t)
	return t
}

func (m *manualTimers) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		var next *manualTimer
		for _, t := range m.timers {
			if !t.done && t.at <= target && (next == nil || t.at < next.at) {
				next = t
			}
		}
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = next.at
		next.done = true
		m.mu.Unlock()
		next.fn()
	}
}

func (m *manualTimers) Armed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if !t.done {
			n++
		}
	}
	return n
}

// -----------------------------------------------------------------------------

// memoryDB records everything written to it.
type memoryDB struct {
	mu       sync.Mutex
	ticks    []models.MTickRecord
	cards    []models.MMarketCard
	cleanups int
}

func (d *memoryDB) Initialize() error { return nil }

func (d *memoryDB) RegisterMarkets(cards []models.MMarketCard) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cards = append(d.cards, cards...)
	return nil
}

func (d *memoryDB) SaveTicks(ticks []models.MTickRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ticks = append(d.ticks, ticks...)
	return nil
}

func (d *memoryDB) CleanupOldData() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cleanups++
	return nil
}

func (d *memoryDB) Close() error { return nil }

func (d *memoryDB) Ticks() []models.MTickRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.MTickRecord(nil), d.ticks...)
}

// -----------------------------------------------------------------------------

func testConfig() *models.MConfig {
	return &models.MConfig{
		LogLevel: "ERROR",
		Simulator: models.MSimulatorConfig{
			MinDelayMs:  3000,
			MaxDelayMs:  8000,
			RecentTicks: 50,
		},
	}
}

func newTestManager(t testing.TB) (*SessionManager, *manualTimers) {
	t.Helper()
	catalog, err := NewCatalog(DefaultCards())
	if err != nil {
		t.Fatal(err)
	}
	timers := &manualTimers{}
	m := NewSessionManager(context.Background(), testConfig(), catalog, nil, nil)
	m.UseTimers(timers.AfterFunc, 42)
	t.Cleanup(m.CloseAll)
	return m, timers
}
