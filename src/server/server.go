package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"market-simulator/src/interfaces"
	"market-simulator/src/logger"
	"market-simulator/src/market"
	"market-simulator/src/models"
	"market-simulator/src/utils"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 5 * time.Second

// -----------------------------------------------------------------------------
// MarketServer
// -----------------------------------------------------------------------------

// MarketServer serves the catalog, book snapshots and chart series over REST
// and pushes live book updates to websocket subscribers.
type MarketServer struct {
	Config   *models.MConfig
	Logger   *logger.Logger
	Sessions *market.SessionManager
	History  *market.HistoryService
	Catalog  *market.Catalog

	engine     *gin.Engine
	httpServer *http.Server

	// hub channels, all drained by handleWebsockets
	clients     map[*Client]struct{}
	broadcast   chan models.MStreamMessage
	register    chan *Client
	unregister  chan *Client
	subscribe   chan subscription
	direct      chan directMessage
	done        chan struct{}
	hubOnce     sync.Once
	stopOnce    sync.Once
	connections atomic.Int64
	dropped     atomic.Int64
	clientQueue int
}

var _ interfaces.IDataExchanger = (*MarketServer)(nil)

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewMarketServer(cfg *models.MConfig, log *logger.Logger, sessions *market.SessionManager, hist *market.HistoryService) *MarketServer {
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	bufferSize := cfg.WSBufferSize
	if bufferSize <= 0 {
		bufferSize = utils.DefaultWSBufferSize
	}

	s := &MarketServer{
		Config:     cfg,
		Logger:     log,
		Sessions:   sessions,
		History:    hist,
		Catalog:    sessions.Catalog,
		engine:     gin.New(),
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan models.MStreamMessage, bufferSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subscribe:  make(chan subscription),
		direct:     make(chan directMessage, bufferSize),
		done:       make(chan struct{}),

		clientQueue: bufferSize,
	}

	s.engine.Use(gin.Recovery(), s.requestLogger())

	// CORS for local front-ends
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// every tick of every open book goes out to its subscribers
	sessions.SetListener(func(view models.MOrderBookView) {
		s.Broadcast(models.MStreamMessage{
			Type:      models.MsgTypeBook,
			MarketID:  view.MarketID,
			Book:      &view,
			Timestamp: time.Now().Unix(),
		})
	})

	// HTTP and gRPC closes both go through the manager
	sessions.SetCloseListener(func(marketID string) {
		s.Broadcast(models.MStreamMessage{
			Type:      models.MsgTypeClosed,
			MarketID:  marketID,
			Timestamp: time.Now().Unix(),
		})
	})

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *MarketServer) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.getHealth)
	api.GET("/config", s.getConfig)
	api.GET("/markets", s.getMarkets)
	api.GET("/markets/:id", s.getMarket)

	book := api.Group("/markets/:id/orderbook")
	book.GET("", s.getOrderBook)
	book.POST("/pause", s.pauseOrderBook)
	book.POST("/resume", s.resumeOrderBook)
	book.DELETE("", s.closeOrderBook)

	api.GET("/markets/:id/trades", s.getTrades)
	api.GET("/markets/:id/history", s.getHistory)
	api.GET("/markets/:id/candles", s.getCandles)

	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler exposes the router (tests mount it on httptest).
func (s *MarketServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// StartHub runs the websocket hub loop. Start calls it; tests that only
// need the handler call it directly.
func (s *MarketServer) StartHub() {
	s.hubOnce.Do(func() { go s.handleWebsockets() })
}

// Start serves until Stop. It returns nil after a clean shutdown.
func (s *MarketServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	s.StartHub()

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *MarketServer) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.done)
		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			err = s.httpServer.Shutdown(ctx)
		}
		s.Logger.Info("Server stopped (%d messages dropped)", s.dropped.Load())
	})
	return err
}

// -----------------------------------------------------------------------------

func (s *MarketServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
