package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"market-simulator/src/grpc_control"
	"market-simulator/src/logger"
	"market-simulator/src/market"
	"market-simulator/src/models"
	"market-simulator/src/scheduler"

	"github.com/gorilla/websocket"
	"google.golang.org/protobuf/types/known/structpb"
)

// stepTimers fires armed callbacks only from Advance.
type stepTimers struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*stepTimer
}

type stepTimer struct {
	owner *stepTimers
	at    time.Duration
	fn    func()
	done  bool
}

func (t *stepTimer) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	was := !t.done
	t.done = true
	return was
}

func (s *stepTimers) AfterFunc(d time.Duration, f func()) scheduler.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &stepTimer{owner: s, at: s.now + d, fn: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *stepTimers) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()
	for {
		s.mu.Lock()
		var next *stepTimer
		for _, t := range s.timers {
			if !t.done && t.at <= target && (next == nil || t.at < next.at) {
				next = t
			}
		}
		if next == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		s.now = next.at
		next.done = true
		s.mu.Unlock()
		next.fn()
	}
}

// -----------------------------------------------------------------------------

func newTestServer(t *testing.T) (*MarketServer, *stepTimers) {
	t.Helper()
	cfg := &models.MConfig{
		Name:         "sim-test",
		Host:         "127.0.0.1",
		Port:         8080,
		LogLevel:     "ERROR",
		WSBufferSize: 64,
		Simulator: models.MSimulatorConfig{
			MinDelayMs:  3000,
			MaxDelayMs:  8000,
			RecentTicks: 20,
		},
	}
	catalog, err := market.NewCatalog(market.DefaultCards())
	if err != nil {
		t.Fatal(err)
	}
	log := logger.NewLogger(cfg, "ServerTest")

	timers := &stepTimers{}
	sessions := market.NewSessionManager(context.Background(), cfg, catalog, nil, log)
	sessions.UseTimers(timers.AfterFunc, 11)

	srv := NewMarketServer(cfg, log, sessions, market.NewHistoryService(catalog, nil, nil))
	srv.StartHub()
	t.Cleanup(func() {
		srv.Stop()
		sessions.CloseAll()
	})
	return srv, timers
}

func do(t *testing.T, srv *MarketServer, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("bad JSON %q: %v", rec.Body.String(), err)
	}
}

// -----------------------------------------------------------------------------

func TestHealthAndConfig(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("health = %d", rec.Code)
	}
	var health map[string]any
	decode(t, rec, &health)
	if health["status"] != "ok" || health["open_books"].(float64) != 0 {
		t.Errorf("health = %v", health)
	}

	rec = do(t, srv, http.MethodGet, "/api/config")
	var cfg struct {
		Timeframes []struct {
			Window          string `json:"window"`
			PointCount      int    `json:"point_count"`
			IntervalSeconds int64  `json:"interval_seconds"`
		} `json:"timeframes"`
		MinDelayMs int `json:"min_delay_ms"`
		MaxDelayMs int `json:"max_delay_ms"`
	}
	decode(t, rec, &cfg)
	if len(cfg.Timeframes) != 6 || cfg.MinDelayMs != 3000 || cfg.MaxDelayMs != 8000 {
		t.Errorf("config = %+v", cfg)
	}
	if tf := cfg.Timeframes[3]; tf.Window != "1W" || tf.PointCount != 84 || tf.IntervalSeconds != 7200 {
		t.Errorf("1W = %+v", tf)
	}
}

func TestMarkets(t *testing.T) {
	srv, _ := newTestServer(t)

	var cards []models.MMarketCard
	decode(t, do(t, srv, http.MethodGet, "/api/markets"), &cards)
	if len(cards) != 12 {
		t.Errorf("expected 12 markets, got %d", len(cards))
	}

	if rec := do(t, srv, http.MethodGet, "/api/markets/404"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown market = %d", rec.Code)
	}
}

func TestOrderBookLifecycle(t *testing.T) {
	srv, timers := newTestServer(t)

	if rec := do(t, srv, http.MethodGet, "/api/markets/1/trades"); rec.Code != http.StatusNotFound {
		t.Errorf("trades before open = %d", rec.Code)
	}

	rec := do(t, srv, http.MethodGet, "/api/markets/1/orderbook")
	if rec.Code != http.StatusOK {
		t.Fatalf("orderbook = %d %s", rec.Code, rec.Body.String())
	}
	var view models.MOrderBookView
	decode(t, rec, &view)
	if len(view.Asks) != 15 || len(view.Bids) != 15 || view.LastPrice != "85¢" || view.Spread != "1¢" {
		t.Errorf("seed view = %d/%d %s %s", len(view.Asks), len(view.Bids), view.LastPrice, view.Spread)
	}
	if view.Asks[0].Price != "99¢" || view.Asks[0].Total != "$20,028" {
		t.Errorf("top ask row = %+v", view.Asks[0])
	}

	timers.Advance(scheduler.DefaultMaxDelay)

	var trades struct {
		Ticks []models.MTickRecord `json:"ticks"`
	}
	decode(t, do(t, srv, http.MethodGet, "/api/markets/1/trades?limit=5"), &trades)
	if len(trades.Ticks) == 0 {
		t.Error("expected at least one tick record")
	}
	if rec := do(t, srv, http.MethodGet, "/api/markets/1/trades?limit=-1"); rec.Code != http.StatusBadRequest {
		t.Errorf("negative limit = %d", rec.Code)
	}

	rec = do(t, srv, http.MethodPost, "/api/markets/1/orderbook/pause")
	decode(t, rec, &view)
	if rec.Code != http.StatusOK || !view.Paused {
		t.Errorf("pause = %d paused=%v", rec.Code, view.Paused)
	}
	frozen := view.State.Sequence
	timers.Advance(10 * scheduler.DefaultMaxDelay)
	decode(t, do(t, srv, http.MethodGet, "/api/markets/1/orderbook"), &view)
	if view.State.Sequence != frozen {
		t.Error("paused book moved")
	}

	rec = do(t, srv, http.MethodPost, "/api/markets/1/orderbook/resume")
	decode(t, rec, &view)
	if view.Paused {
		t.Error("resume left the book paused")
	}

	if rec := do(t, srv, http.MethodDelete, "/api/markets/1/orderbook"); rec.Code != http.StatusNoContent {
		t.Errorf("delete = %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodPost, "/api/markets/1/orderbook/pause"); rec.Code != http.StatusNotFound {
		t.Errorf("pause after delete = %d", rec.Code)
	}
}

func TestHistoryAndCandles(t *testing.T) {
	srv, _ := newTestServer(t)

	var hist models.MHistoryResponse
	rec := do(t, srv, http.MethodGet, "/api/markets/10/history?window=1d")
	if rec.Code != http.StatusOK {
		t.Fatalf("history = %d %s", rec.Code, rec.Body.String())
	}
	decode(t, rec, &hist)
	if len(hist.Points) != 96 || hist.Points[95].Value != 56 || !hist.IsPositive {
		t.Errorf("history = %d points, last %v", len(hist.Points), hist.Points[len(hist.Points)-1].Value)
	}

	if rec := do(t, srv, http.MethodGet, "/api/markets/10/history?window=5Y"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad window = %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/markets/10/candles?bucket=abc"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad bucket = %d", rec.Code)
	}

	var candles struct {
		Candles []models.MCandle `json:"candles"`
	}
	decode(t, do(t, srv, http.MethodGet, "/api/markets/10/candles?window=1H&bucket=600"), &candles)
	if len(candles.Candles) == 0 || candles.Candles[len(candles.Candles)-1].Close != 56 {
		t.Errorf("candles = %+v", candles.Candles)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/markets", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("allow origin = %q", got)
	}
}

// -----------------------------------------------------------------------------

func dialWS(t *testing.T, srv *MarketServer) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUntil(t *testing.T, conn *websocket.Conn, match func(models.MStreamMessage) bool) models.MStreamMessage {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		conn.SetReadDeadline(deadline)
		var msg models.MStreamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func TestWebSocketSubscribeAndHistory(t *testing.T) {
	srv, timers := newTestServer(t)
	conn := dialWS(t, srv)

	if err := conn.WriteJSON(models.MSubscribeCommand{Command: "subscribe", MarketID: "2"}); err != nil {
		t.Fatal(err)
	}
	first := readUntil(t, conn, func(m models.MStreamMessage) bool { return m.Type == models.MsgTypeBook })
	if first.MarketID != "2" || first.Book == nil || first.Book.State.Sequence != 0 {
		t.Fatalf("first book message = %+v", first)
	}

	timers.Advance(scheduler.DefaultMaxDelay)
	tick := readUntil(t, conn, func(m models.MStreamMessage) bool {
		return m.Type == models.MsgTypeBook && m.Book != nil && m.Book.State.Sequence > 0
	})
	if len(tick.Book.Asks) != 15 {
		t.Errorf("tick rows = %d", len(tick.Book.Asks))
	}

	if err := conn.WriteJSON(models.MSubscribeCommand{Command: "history", MarketID: "2", Window: models.Window6H}); err != nil {
		t.Fatal(err)
	}
	hist := readUntil(t, conn, func(m models.MStreamMessage) bool { return m.Type == models.MsgTypeHistory })
	if hist.History == nil || len(hist.History.Points) != 72 || hist.History.Percentage != 52 {
		t.Errorf("history message = %+v", hist.History)
	}

	if err := conn.WriteJSON(models.MSubscribeCommand{Command: "subscribe", MarketID: "nope"}); err != nil {
		t.Fatal(err)
	}
	errMsg := readUntil(t, conn, func(m models.MStreamMessage) bool { return m.Type == models.MsgTypeError })
	if errMsg.MarketID != "nope" || errMsg.Error == "" {
		t.Errorf("error message = %+v", errMsg)
	}
}

func TestWebSocketPauseCommand(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dialWS(t, srv)

	conn.WriteJSON(models.MSubscribeCommand{Command: "subscribe", MarketID: "4"})
	readUntil(t, conn, func(m models.MStreamMessage) bool { return m.Type == models.MsgTypeBook })

	conn.WriteJSON(models.MSubscribeCommand{Command: "pause", MarketID: "4"})
	paused := readUntil(t, conn, func(m models.MStreamMessage) bool {
		return m.Type == models.MsgTypeBook && m.Book != nil && m.Book.Paused
	})
	if paused.MarketID != "4" {
		t.Errorf("paused message for %s", paused.MarketID)
	}

	session, err := srv.Sessions.Get("4")
	if err != nil {
		t.Fatal(err)
	}
	if !session.Paused() {
		t.Error("session not paused")
	}
}

func TestWebSocketClosedOnControlPlaneClose(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dialWS(t, srv)

	if err := conn.WriteJSON(models.MSubscribeCommand{Command: "subscribe", MarketID: "5"}); err != nil {
		t.Fatal(err)
	}
	readUntil(t, conn, func(m models.MStreamMessage) bool { return m.Type == models.MsgTypeBook })

	control := grpc_control.NewControlService(srv.Sessions, nil)
	req, err := structpb.NewStruct(map[string]any{"market_id": "5"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := control.CloseBook(context.Background(), req); err != nil {
		t.Fatalf("CloseBook: %v", err)
	}

	closed := readUntil(t, conn, func(m models.MStreamMessage) bool { return m.Type == models.MsgTypeClosed })
	if closed.MarketID != "5" {
		t.Errorf("closed message for %q, want 5", closed.MarketID)
	}
}
