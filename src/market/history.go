package market

import (
	"market-simulator/src/analysis"
	"market-simulator/src/history"
	"market-simulator/src/interfaces"
	"market-simulator/src/models"
)

// HistoryService produces chart series for catalog markets.
type HistoryService struct {
	Catalog   *Catalog
	Generator *history.Generator
	Analysis  *analysis.AnalysisFacade
}

func NewHistoryService(catalog *Catalog, gen *history.Generator, facade *analysis.AnalysisFacade) *HistoryService {
	if gen == nil {
		gen = history.NewGenerator(nil, nil)
	}
	if facade == nil {
		facade = analysis.NewAnalysisFacade(nil)
	}
	return &HistoryService{Catalog: catalog, Generator: gen, Analysis: facade}
}

// -----------------------------------------------------------------------------

// History generates a fresh series for marketID that ends on the card's
// target percentage, with the header data a chart shows above it.
func (h *HistoryService) History(marketID string, window models.MTimeWindow) (models.MHistoryResponse, error) {
	card, err := h.Catalog.Get(marketID)
	if err != nil {
		return models.MHistoryResponse{}, err
	}

	spec, err := history.LookupWindow(window)
	if err != nil {
		return models.MHistoryResponse{}, err
	}

	target := card.TargetPercentage()
	points, err := h.Generator.Generate(card.ID, target, spec.Window)
	if err != nil {
		return models.MHistoryResponse{}, err
	}

	return models.MHistoryResponse{
		MarketID:   card.ID,
		Window:     spec.Window,
		Percentage: target,
		Change:     card.Change,
		IsPositive: card.Change >= 0,
		Points:     points,
		Summary:    h.Analysis.Summarize(points),
	}, nil
}

// -----------------------------------------------------------------------------

// Candles generates a series and resamples it into buckets of bucketSeconds.
func (h *HistoryService) Candles(marketID string, window models.MTimeWindow, bucketSeconds int64) ([]models.MCandle, error) {
	resp, err := h.History(marketID, window)
	if err != nil {
		return nil, err
	}
	return h.Analysis.Candles(resp.MarketID, resp.Window, resp.Points, bucketSeconds), nil
}

// -----------------------------------------------------------------------------

// Plot generates a series and hands it to plotter.
func (h *HistoryService) Plot(marketID string, window models.MTimeWindow, plotter interfaces.ISeriesPlotter) error {
	resp, err := h.History(marketID, window)
	if err != nil {
		return err
	}
	return plotter.Plot(resp)
}
