package analysis

import (
	"market-simulator/src/analysis/core"
	"market-simulator/src/logger"
	"market-simulator/src/models"
)

// DefaultCandleCount is used to derive a bucket width when none is given.
const DefaultCandleCount = 12

type AnalysisFacade struct {
	Logger    *logger.Logger
	resampler *TimeSeriesResampler
}

// -----------------------------------------------------------------------------

func NewAnalysisFacade(log *logger.Logger) *AnalysisFacade {
	if log == nil {
		log = logger.NewLogger(nil, "Analysis")
	}
	return &AnalysisFacade{
		Logger:    log,
		resampler: &TimeSeriesResampler{},
	}
}

// -----------------------------------------------------------------------------

// Summarize describes a whole series for a chart header.
func (a *AnalysisFacade) Summarize(points []models.MPricePoint) models.MHistorySummary {
	if len(points) == 0 {
		return models.MHistorySummary{}
	}

	values := valuesOf(points)
	ohlc := core.ComputeOHLC(values)
	stepMean, stepStd := core.CalculateMeanStd(core.StepChanges(values))

	return models.MHistorySummary{
		Open:          ohlc.Open,
		High:          ohlc.High,
		Low:           ohlc.Low,
		Close:         ohlc.Close,
		ChangePercent: core.CalculateChangePercent(ohlc.Close, ohlc.Open),
		StepMean:      stepMean,
		StepStd:       stepStd,
		Trend:         core.TrendStrength(values),
		DataPoints:    len(points),
	}
}

// -----------------------------------------------------------------------------

// Candles resamples a series into OHLC buckets of bucketSeconds. A
// non-positive width splits the series span into DefaultCandleCount buckets.
// Each candle's change is measured against the previous candle's close.
func (a *AnalysisFacade) Candles(marketID string, window models.MTimeWindow, points []models.MPricePoint, bucketSeconds int64) []models.MCandle {
	if len(points) == 0 {
		return []models.MCandle{}
	}

	if bucketSeconds <= 0 {
		bucketSeconds = DefaultBucketSeconds(points)
	}

	timestamps := make([]int64, len(points))
	for i, p := range points {
		timestamps[i] = p.Time
	}
	values := valuesOf(points)

	buckets := a.resampler.ResampleIndices(timestamps, bucketSeconds)
	candles := make([]models.MCandle, 0, len(buckets))

	var prevClose float64
	prevSet := false

	for _, b := range buckets {
		subset := make([]float64, len(b.Indices))
		for i, idx := range b.Indices {
			subset[i] = values[idx]
		}
		ohlc := core.ComputeOHLC(subset)

		var change float64
		if prevSet {
			change = core.CalculateChangePercent(ohlc.Close, prevClose)
		} else {
			change = core.CalculateChangePercent(ohlc.Close, ohlc.Open)
		}
		prevClose = ohlc.Close
		prevSet = true

		candles = append(candles, models.MCandle{
			MarketID:   marketID,
			Window:     string(window),
			Open:       ohlc.Open,
			High:       ohlc.High,
			Low:        ohlc.Low,
			Close:      ohlc.Close,
			AvgValue:   ohlc.Avg,
			Change:     change,
			StartTime:  b.StartTime,
			EndTime:    b.EndTime,
			DataPoints: len(subset),
		})
	}

	a.Logger.Debug("%s/%s: %d points -> %d candles of %ds", marketID, window, len(points), len(candles), bucketSeconds)
	return candles
}

// -----------------------------------------------------------------------------

// DefaultBucketSeconds splits the span of points into DefaultCandleCount
// buckets, never narrower than one second.
func DefaultBucketSeconds(points []models.MPricePoint) int64 {
	if len(points) < 2 {
		return 1
	}
	span := points[len(points)-1].Time - points[0].Time
	width := span / DefaultCandleCount
	if span%DefaultCandleCount != 0 {
		width++
	}
	return max(width, 1)
}

func valuesOf(points []models.MPricePoint) []float64 {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	return values
}
