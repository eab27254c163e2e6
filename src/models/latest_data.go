package models

// -----------------------------------------------------------------------------
// WebSocket message types
// -----------------------------------------------------------------------------

const (
	MsgTypeBook    = "BOOK"
	MsgTypeHistory = "HISTORY"
	MsgTypeClosed  = "CLOSED"
	MsgTypeError   = "ERROR"
)

// MStreamMessage is the envelope pushed to websocket clients.
type MStreamMessage struct {
	Type      string            `json:"type"`
	MarketID  string            `json:"market_id"`
	Book      *MOrderBookView   `json:"book,omitempty"`
	History   *MHistoryResponse `json:"history,omitempty"`
	Error     string            `json:"error,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

// -----------------------------------------------------------------------------
// SubscribeCommand for client messages
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command  string      `json:"command"` // subscribe, unsubscribe, history, pause, resume
	MarketID string      `json:"market_id"`
	Window   MTimeWindow `json:"window"`
}
