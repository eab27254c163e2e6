package models

// MPriceLevel is one row of the book on one side.
type MPriceLevel struct {
	PriceCents   int     `json:"price_cents"`
	Shares       int64   `json:"shares"`
	Total        int64   `json:"total"` // dollars, shares * price
	DepthPercent float64 `json:"depth_percent"`
}

// MOrderBookState is an immutable snapshot of a simulated book.
// Asks are listed from the top of the ladder down to the best ask,
// bids from the best bid down.
type MOrderBookState struct {
	Asks           []MPriceLevel `json:"asks"`
	Bids           []MPriceLevel `json:"bids"`
	LastPriceCents int           `json:"last_price_cents"`
	SpreadCents    int           `json:"spread_cents"`
	Sequence       uint64        `json:"sequence"`
	UpdatedAt      int64         `json:"updated_at"`
}

// Clone returns a deep copy so a snapshot can be derived without touching the original.
func (s MOrderBookState) Clone() MOrderBookState {
	out := s
	out.Asks = append([]MPriceLevel(nil), s.Asks...)
	out.Bids = append([]MPriceLevel(nil), s.Bids...)
	return out
}

// MLevelRow is a display-ready level.
type MLevelRow struct {
	Price        string  `json:"price"`
	Shares       string  `json:"shares"`
	Total        string  `json:"total"`
	DepthPercent float64 `json:"depth_percent"`
}

// MOrderBookView pairs the raw snapshot with its rendered rows.
type MOrderBookView struct {
	MarketID  string          `json:"market_id"`
	Asks      []MLevelRow     `json:"asks"`
	Bids      []MLevelRow     `json:"bids"`
	LastPrice string          `json:"last_price"`
	Spread    string          `json:"spread"`
	Paused    bool            `json:"paused"`
	State     MOrderBookState `json:"state"`
}
