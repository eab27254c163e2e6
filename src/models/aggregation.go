package models

// MCandle is a time bucket of a generated series.
type MCandle struct {
	MarketID   string  `json:"market_id"`
	Window     string  `json:"window"`
	Open       float64 `json:"open"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Close      float64 `json:"close"`
	AvgValue   float64 `json:"avg_value"`
	Change     float64 `json:"change_percent"`
	StartTime  int64   `json:"start_time"`
	EndTime    int64   `json:"end_time"`
	DataPoints int     `json:"data_points"`
}

// MHistorySummary describes a whole series (chart header data).
type MHistorySummary struct {
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	ChangePercent float64 `json:"change_percent"`
	StepMean      float64 `json:"step_mean"`
	StepStd       float64 `json:"step_std"`
	Trend         float64 `json:"trend"`
	DataPoints    int     `json:"data_points"`
}
