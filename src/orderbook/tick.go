package orderbook

import (
	"math"
	"math/rand/v2"

	"market-simulator/src/helpers"
	"market-simulator/src/models"

	"github.com/shopspring/decimal"
)

const (
	DefaultLastPriceProbability = 0.3

	sharesJitter  = 0.1 // shares move within [0.9, 1.1] of their previous value
	percentJitter = 15.0
	minRawPercent = 10.0
	maxRawPercent = 100.0
)

// -----------------------------------------------------------------------------

// Tick derives the next snapshot from state. The input is left untouched.
// Each side is perturbed level by level, then renormalized against its largest
// total; with probability lastPriceProbability the last trade moves to a random
// price of the ladder and the spread is recomputed.
func Tick(state models.MOrderBookState, rng *rand.Rand, lastPriceProbability float64) models.MOrderBookState {
	next := state.Clone()
	next.Asks = perturbSide(state.Asks, rng)
	next.Bids = perturbSide(state.Bids, rng)

	if rng.Float64() < lastPriceProbability {
		prices := make([]int, 0, len(next.Asks)+len(next.Bids))
		for _, l := range next.Asks {
			prices = append(prices, l.PriceCents)
		}
		for _, l := range next.Bids {
			prices = append(prices, l.PriceCents)
		}
		next.LastPriceCents = prices[rng.IntN(len(prices))]
		next.SpreadCents = Spread(next)
	}

	next.Sequence = state.Sequence + 1
	return next
}

// -----------------------------------------------------------------------------

// perturbSide moves shares, totals and the raw depth of every level, then
// replaces the raw depth with the normalized one.
func perturbSide(levels []models.MPriceLevel, rng *rand.Rand) []models.MPriceLevel {
	out := make([]models.MPriceLevel, len(levels))

	for i, lvl := range levels {
		multiplier := 1 - sharesJitter + rng.Float64()*2*sharesJitter
		shares := int64(math.Round(float64(lvl.Shares) * multiplier))

		jitter := rng.Float64()*2*percentJitter - percentJitter

		out[i] = models.MPriceLevel{
			PriceCents:   lvl.PriceCents,
			Shares:       shares,
			Total:        LevelTotal(shares, lvl.PriceCents),
			DepthPercent: clamp(lvl.DepthPercent+jitter, minRawPercent, maxRawPercent),
		}
	}

	normalizeDepth(out)
	return out
}

// -----------------------------------------------------------------------------

// normalizeDepth sets every level's depth to total/max(total)*100.
// When every total is zero all levels tie for the maximum and get 100.
func normalizeDepth(levels []models.MPriceLevel) {
	var maxTotal int64
	for _, l := range levels {
		if l.Total > maxTotal {
			maxTotal = l.Total
		}
	}

	for i := range levels {
		if maxTotal == 0 {
			levels[i].DepthPercent = 100
			continue
		}
		if levels[i].Total == maxTotal {
			levels[i].DepthPercent = 100
			continue
		}
		levels[i].DepthPercent = float64(levels[i].Total) / float64(maxTotal) * 100
	}
}

// -----------------------------------------------------------------------------

// LevelTotal is the dollar value of shares at priceCents, rounded half up.
func LevelTotal(shares int64, priceCents int) int64 {
	return decimal.NewFromInt(shares).
		Mul(decimal.New(int64(priceCents), -2)).
		Round(0).
		IntPart()
}

// -----------------------------------------------------------------------------

// Spread is the best ask minus the best bid. It goes negative on a crossed
// ladder and is reported as such.
func Spread(state models.MOrderBookState) int {
	return BestAsk(state) - BestBid(state)
}

// BestAsk is the lowest ask price.
func BestAsk(state models.MOrderBookState) int {
	best := math.MaxInt
	for _, l := range state.Asks {
		best = min(best, l.PriceCents)
	}
	return best
}

// BestBid is the highest bid price.
func BestBid(state models.MOrderBookState) int {
	best := math.MinInt
	for _, l := range state.Bids {
		best = max(best, l.PriceCents)
	}
	return best
}

// SideTotal sums the dollar totals of one side.
func SideTotal(levels []models.MPriceLevel) int64 {
	var sum int64
	for _, l := range levels {
		sum += l.Total
	}
	return sum
}

// -----------------------------------------------------------------------------

// Validate rejects books the simulator cannot run: an empty side has no
// maximum to normalize against.
func Validate(state models.MOrderBookState) error {
	if len(state.Asks) == 0 {
		return helpers.NewValidationError("order book must have at least one ask level")
	}
	if len(state.Bids) == 0 {
		return helpers.NewValidationError("order book must have at least one bid level")
	}
	for side, levels := range map[string][]models.MPriceLevel{"ask": state.Asks, "bid": state.Bids} {
		for i, l := range levels {
			if l.PriceCents < 1 || l.PriceCents > 99 {
				return helpers.NewValidationError("%s level %d: price %d¢ outside 1..99", side, i, l.PriceCents)
			}
			if l.Shares < 0 {
				return helpers.NewValidationError("%s level %d: negative shares %d", side, i, l.Shares)
			}
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
