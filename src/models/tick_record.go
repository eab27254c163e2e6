package models

import "time"

// MTickRecord is one journal row: the headline numbers of a book after a tick.
type MTickRecord struct {
	RunID          string    `json:"run_id"`
	SessionID      string    `json:"session_id"`
	MarketID       string    `json:"market_id"`
	Sequence       uint64    `json:"sequence"`
	LastPriceCents int       `json:"last_price_cents"`
	SpreadCents    int       `json:"spread_cents"`
	BestAskCents   int       `json:"best_ask_cents"`
	BestBidCents   int       `json:"best_bid_cents"`
	AskTotal       int64     `json:"ask_total"`
	BidTotal       int64     `json:"bid_total"`
	CreatedAt      time.Time `json:"created_at"`
}
