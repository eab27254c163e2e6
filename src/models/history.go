package models

// MTimeWindow is a chart range selector.
type MTimeWindow string

const (
	Window1H  MTimeWindow = "1H"
	Window6H  MTimeWindow = "6H"
	Window1D  MTimeWindow = "1D"
	Window1W  MTimeWindow = "1W"
	Window1M  MTimeWindow = "1M"
	WindowAll MTimeWindow = "ALL"
)

// MPricePoint is one point of a generated chart series.
type MPricePoint struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

// MHistoryResponse is what gets handed to a chart.
type MHistoryResponse struct {
	MarketID   string          `json:"market_id"`
	Window     MTimeWindow     `json:"window"`
	Percentage float64         `json:"percentage"`
	Change     float64         `json:"change"`
	IsPositive bool            `json:"is_positive"`
	Points     []MPricePoint   `json:"points"`
	Summary    MHistorySummary `json:"summary"`
}
