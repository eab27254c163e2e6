package market

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"market-simulator/src/models"
	"market-simulator/src/orderbook"
	"market-simulator/src/scheduler"
)

func TestSession_JournalReceivesTicks(t *testing.T) {
	db := &memoryDB{}
	journal := NewJournal(db, nil)
	ctx, cancel := context.WithCancel(context.Background())
	journal.Start(ctx)

	timers := &manualTimers{}
	fixed := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	s, err := NewBookSession("7", orderbook.DefaultBook(), SessionOptions{
		RunID:       "run-x",
		RecentTicks: 5,
		AfterFunc:   timers.AfterFunc,
		Rand:        rand.New(rand.NewPCG(1, 2)),
		Now:         func() time.Time { return fixed },
	}, journal, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 8; i++ {
		timers.Advance(scheduler.DefaultMaxDelay)
	}
	s.Close()
	ticks := s.TickCount()

	cancel()
	journal.Wait()

	saved := db.Ticks()
	if uint64(len(saved)) != ticks {
		t.Fatalf("journal saved %d records for %d ticks", len(saved), ticks)
	}
	last := saved[len(saved)-1]
	if last.RunID != "run-x" || last.MarketID != "7" || last.Sequence != ticks || !last.CreatedAt.Equal(fixed) {
		t.Errorf("last record = %+v", last)
	}

	if got := s.RecentTicks(100); len(got) != 5 {
		t.Errorf("ring buffer kept %d ticks, want 5", len(got))
	}
	if got := s.RecentTicks(0); len(got) != 5 || got[4].Sequence != ticks {
		t.Errorf("RecentTicks(0) = %d records, want all 5 retained", len(got))
	}
}

func TestSession_RecordMatchesSnapshot(t *testing.T) {
	timers := &manualTimers{}
	s, err := NewBookSession("1", orderbook.DefaultBook(), SessionOptions{
		AfterFunc: timers.AfterFunc,
		Rand:      rand.New(rand.NewPCG(3, 4)),
	}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	timers.Advance(scheduler.DefaultMaxDelay)
	recs := s.RecentTicks(1)
	if len(recs) != 1 {
		t.Fatal("expected one record")
	}

	snap := s.Snapshot()
	rec := recs[0]
	if rec.Sequence != snap.Sequence || rec.LastPriceCents != snap.LastPriceCents || rec.SpreadCents != snap.SpreadCents {
		t.Errorf("record %+v does not match snapshot", rec)
	}
	if rec.BestAskCents != orderbook.BestAsk(snap) || rec.BidTotal != orderbook.SideTotal(snap.Bids) {
		t.Errorf("record %+v does not match book sides", rec)
	}
}

func TestSession_RejectsEmptySide(t *testing.T) {
	book := orderbook.DefaultBook()
	book.Bids = nil
	if _, err := NewBookSession("1", book, SessionOptions{}, nil, nil); err == nil {
		t.Error("a book with no bids must be rejected")
	}
}

func TestSession_ContextCancelCloses(t *testing.T) {
	timers := &manualTimers{}
	s, err := NewBookSession("2", orderbook.DefaultBook(), SessionOptions{AfterFunc: timers.AfterFunc}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("session did not stop on cancel")
	}
	if timers.Armed() != 0 {
		t.Error("timer left armed")
	}
}

func TestSession_SubscribeRendersRows(t *testing.T) {
	timers := &manualTimers{}
	s, err := NewBookSession("3", orderbook.DefaultBook(), SessionOptions{AfterFunc: timers.AfterFunc}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	got := make(chan models.MOrderBookView, 4)
	unsub := s.Subscribe(func(v models.MOrderBookView) { got <- v })
	s.Start(context.Background())
	timers.Advance(scheduler.DefaultMaxDelay)
	unsub()

	select {
	case v := <-got:
		if v.MarketID != "3" || v.LastPrice == "" || len(v.Asks) != 15 {
			t.Errorf("view = %+v", v)
		}
	default:
		t.Fatal("no view delivered")
	}
}

func TestSession_ZeroLastPriceProbabilityFreezesLastPrice(t *testing.T) {
	timers := &manualTimers{}
	off := 0.0
	s, err := NewBookSession("4", orderbook.DefaultBook(), SessionOptions{
		LastPriceProbability: &off,
		AfterFunc:            timers.AfterFunc,
		Rand:                 rand.New(rand.NewPCG(8, 9)),
	}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	seed := s.Snapshot()
	for i := 0; i < 50; i++ {
		timers.Advance(scheduler.DefaultMaxDelay)
	}
	snap := s.Snapshot()
	if snap.Sequence < 50 {
		t.Fatalf("expected at least 50 ticks, got %d", snap.Sequence)
	}
	if snap.LastPriceCents != seed.LastPriceCents || snap.SpreadCents != seed.SpreadCents {
		t.Errorf("last price moved with probability 0: %d/%d -> %d/%d",
			seed.LastPriceCents, seed.SpreadCents, snap.LastPriceCents, snap.SpreadCents)
	}
}
