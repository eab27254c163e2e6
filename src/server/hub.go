package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"market-simulator/src/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// subscription toggles one client's interest in one market.
type subscription struct {
	client   *Client
	marketID string
	on       bool
}

// directMessage is a reply meant for a single client.
type directMessage struct {
	client *Client
	msg    models.MStreamMessage
}

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop. Only this goroutine touches the
// client set, the per-client subscriptions and the send channels' lifetime.
func (s *MarketServer) handleWebsockets() {
	defer func() {
		for client := range s.clients {
			s.dropClient(client)
		}
	}()

	for {
		select {
		case <-s.done:
			return

		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.connections.Add(1)

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				s.dropClient(client)
			}

		case sub := <-s.subscribe:
			if _, ok := s.clients[sub.client]; !ok {
				continue
			}
			if sub.on {
				sub.client.subs[sub.marketID] = struct{}{}
			} else {
				delete(sub.client.subs, sub.marketID)
			}

		case d := <-s.direct:
			if _, ok := s.clients[d.client]; ok {
				s.deliver(d.client, d.msg)
			}

		case message := <-s.broadcast:
			for client := range s.clients {
				if _, ok := client.subs[message.MarketID]; ok {
					s.deliver(client, message)
				}
			}
		}
	}
}

// deliver queues msg for client, dropping the client if it cannot keep up.
func (s *MarketServer) deliver(client *Client, msg models.MStreamMessage) {
	select {
	case client.send <- msg:
	default:
		s.Logger.Warning("Client %s too slow, disconnecting", client.id)
		s.dropClient(client)
	}
}

func (s *MarketServer) dropClient(client *Client) {
	delete(s.clients, client)
	close(client.send)
	s.connections.Add(-1)
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// Broadcast queues msg for every client subscribed to its market. It never
// blocks: a full queue drops the message.
func (s *MarketServer) Broadcast(msg models.MStreamMessage) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.broadcast <- msg:
	default:
		if n := s.dropped.Add(1); n == 1 || n%100 == 0 {
			s.Logger.Warning("Broadcast queue full, %d messages dropped", n)
		}
	}
}

// sendTo queues a reply for one client, giving up once the hub is gone.
func (s *MarketServer) sendTo(client *Client, msg models.MStreamMessage) {
	select {
	case s.direct <- directMessage{client: client, msg: msg}:
	case <-s.done:
	}
}

func (s *MarketServer) setSubscription(client *Client, marketID string, on bool) {
	select {
	case s.subscribe <- subscription{client: client, marketID: marketID, on: on}:
	case <-s.done:
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *MarketServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		id:   uuid.NewString(),
		hub:  s,
		conn: conn,
		send: make(chan models.MStreamMessage, s.clientQueue),
		subs: make(map[string]struct{}),
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}
	s.Logger.Debug("Client %s connected from %s", client.id, c.ClientIP())

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

func (s *MarketServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse command from %s: %v", client.id, err)
		s.sendTo(client, errorMessage("", "invalid command: "+err.Error()))
		return
	}

	command := strings.ToLower(strings.TrimSpace(cmd.Command))
	switch command {
	case "subscribe":
		session, err := s.Sessions.Open(cmd.MarketID)
		if err != nil {
			s.sendTo(client, errorMessage(cmd.MarketID, err.Error()))
			return
		}
		s.setSubscription(client, cmd.MarketID, true)
		view := session.View()
		s.sendTo(client, models.MStreamMessage{
			Type:      models.MsgTypeBook,
			MarketID:  cmd.MarketID,
			Book:      &view,
			Timestamp: time.Now().Unix(),
		})

	case "unsubscribe":
		s.setSubscription(client, cmd.MarketID, false)

	case "history":
		window := cmd.Window
		if window == "" {
			window = models.Window1H
		}
		if err := s.History.Plot(cmd.MarketID, window, clientPlotter{s: s, client: client}); err != nil {
			s.sendTo(client, errorMessage(cmd.MarketID, err.Error()))
		}

	case "pause", "resume":
		var err error
		if command == "pause" {
			err = s.Sessions.Pause(cmd.MarketID)
		} else {
			err = s.Sessions.Resume(cmd.MarketID)
		}
		if err != nil {
			s.sendTo(client, errorMessage(cmd.MarketID, err.Error()))
			return
		}
		if session, err := s.Sessions.Get(cmd.MarketID); err == nil {
			view := session.View()
			s.sendTo(client, models.MStreamMessage{
				Type:      models.MsgTypeBook,
				MarketID:  cmd.MarketID,
				Book:      &view,
				Timestamp: time.Now().Unix(),
			})
		}

	default:
		s.sendTo(client, errorMessage(cmd.MarketID, "unknown command "+cmd.Command))
	}
}

// -----------------------------------------------------------------------------

// clientPlotter hands a finished chart series to one websocket client.
type clientPlotter struct {
	s      *MarketServer
	client *Client
}

func (p clientPlotter) Plot(h models.MHistoryResponse) error {
	p.s.sendTo(p.client, models.MStreamMessage{
		Type:      models.MsgTypeHistory,
		MarketID:  h.MarketID,
		History:   &h,
		Timestamp: time.Now().Unix(),
	})
	return nil
}

func errorMessage(marketID, text string) models.MStreamMessage {
	return models.MStreamMessage{
		Type:      models.MsgTypeError,
		MarketID:  marketID,
		Error:     text,
		Timestamp: time.Now().Unix(),
	}
}
