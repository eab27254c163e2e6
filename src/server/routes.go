package server

import (
	"net/http"
	"time"

	"market-simulator/src/history"
	"market-simulator/src/orderbook"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *MarketServer) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"connections": s.connections.Load(),
		"open_books":  s.Sessions.Len(),
		"run_id":      s.Sessions.RunID,
	})
}

// -----------------------------------------------------------------------------

func (s *MarketServer) getConfig(c *gin.Context) {
	windows := make([]gin.H, 0)
	for _, w := range history.Windows() {
		windows = append(windows, gin.H{
			"window":           w.Window,
			"point_count":      w.PointCount,
			"interval_seconds": int64(w.Interval / time.Second),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"timeframes":             windows,
		"min_delay_ms":           s.Config.Simulator.MinDelayMs,
		"max_delay_ms":           s.Config.Simulator.MaxDelayMs,
		"last_price_probability": s.Config.Simulator.LastPriceChance(orderbook.DefaultLastPriceProbability),
	})
}

// -----------------------------------------------------------------------------

func (s *MarketServer) getMarkets(c *gin.Context) {
	c.JSON(http.StatusOK, s.Catalog.All())
}

func (s *MarketServer) getMarket(c *gin.Context) {
	card, err := s.Catalog.Get(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

// -----------------------------------------------------------------------------

// getOrderBook opens the book on first view and returns its current snapshot.
func (s *MarketServer) getOrderBook(c *gin.Context) {
	session, err := s.Sessions.Open(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, session.View())
}

// -----------------------------------------------------------------------------

// pauseOrderBook is what collapsing the book does: updates stop, the
// snapshot stays.
func (s *MarketServer) pauseOrderBook(c *gin.Context) {
	id := c.Param("id")
	if err := s.Sessions.Pause(id); err != nil {
		s.fail(c, err)
		return
	}
	s.respondWithView(c, id)
}

func (s *MarketServer) resumeOrderBook(c *gin.Context) {
	id := c.Param("id")
	if err := s.Sessions.Resume(id); err != nil {
		s.fail(c, err)
		return
	}
	s.respondWithView(c, id)
}

func (s *MarketServer) respondWithView(c *gin.Context, id string) {
	session, err := s.Sessions.Get(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, session.View())
}

// -----------------------------------------------------------------------------

func (s *MarketServer) closeOrderBook(c *gin.Context) {
	id := c.Param("id")
	if err := s.Sessions.Close(id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// -----------------------------------------------------------------------------

func (s *MarketServer) getTrades(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultTradesLimit)
	if err != nil {
		s.fail(c, err)
		return
	}
	limit = min(limit, maxTradesLimit)

	session, err := s.Sessions.Get(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"market_id": session.MarketID,
		"ticks":     session.RecentTicks(int(limit)),
	})
}

// -----------------------------------------------------------------------------

func (s *MarketServer) getHistory(c *gin.Context) {
	resp, err := s.History.History(c.Param("id"), queryWindow(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// -----------------------------------------------------------------------------

func (s *MarketServer) getCandles(c *gin.Context) {
	bucket, err := queryInt(c, "bucket", 0)
	if err != nil {
		s.fail(c, err)
		return
	}

	window := queryWindow(c)
	candles, err := s.History.Candles(c.Param("id"), window, bucket)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"market_id": c.Param("id"),
		"window":    window,
		"candles":   candles,
	})
}
