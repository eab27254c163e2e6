package interfaces

import "market-simulator/src/models"

// ISeriesPlotter is the chart widget boundary: it receives a finished series.
type ISeriesPlotter interface {
	Plot(history models.MHistoryResponse) error
}
