package core

import "math"

// OHLC is the open/high/low/close of a value series plus its mean.
type OHLC struct {
	Open  float64
	High  float64
	Low   float64
	Close float64
	Avg   float64
}

// -----------------------------------------------------------------------------

// ComputeOHLC calculates OHLC and the average from an ordered series.
func ComputeOHLC(values []float64) OHLC {
	if len(values) == 0 {
		return OHLC{}
	}

	high := -math.MaxFloat64
	low := math.MaxFloat64
	sum := 0.0

	for _, v := range values {
		if v > high {
			high = v
		}
		if v < low {
			low = v
		}
		sum += v
	}

	return OHLC{
		Open:  values[0],
		High:  high,
		Low:   low,
		Close: values[len(values)-1],
		Avg:   sum / float64(len(values)),
	}
}

// -----------------------------------------------------------------------------

// CalculateChangePercent returns the change from previous to current in percent.
func CalculateChangePercent(current, previous float64) float64 {
	if previous == 0 {
		return 0.0
	}
	return (current - previous) / previous * 100
}

// -----------------------------------------------------------------------------

// StepChanges returns the differences between consecutive values.
func StepChanges(values []float64) []float64 {
	if len(values) < 2 {
		return []float64{}
	}
	steps := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		steps[i-1] = values[i] - values[i-1]
	}
	return steps
}
