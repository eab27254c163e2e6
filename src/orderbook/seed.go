package orderbook

import "market-simulator/src/models"

// Reference ladder shown by every market card: 15 asks from 99¢ down to 85¢,
// 15 bids from 84¢ down to 70¢.
var (
	seedAsks = []models.MPriceLevel{
		{PriceCents: 99, Shares: 20230, DepthPercent: 100},
		{PriceCents: 98, Shares: 3575, DepthPercent: 80},
		{PriceCents: 97, Shares: 9845, DepthPercent: 60},
		{PriceCents: 96, Shares: 3423, DepthPercent: 40},
		{PriceCents: 95, Shares: 5000, DepthPercent: 20},
		{PriceCents: 94, Shares: 7231, DepthPercent: 35},
		{PriceCents: 93, Shares: 12451, DepthPercent: 55},
		{PriceCents: 92, Shares: 8320, DepthPercent: 45},
		{PriceCents: 91, Shares: 6125, DepthPercent: 30},
		{PriceCents: 90, Shares: 9751, DepthPercent: 50},
		{PriceCents: 89, Shares: 4281, DepthPercent: 25},
		{PriceCents: 88, Shares: 11325, DepthPercent: 52},
		{PriceCents: 87, Shares: 8750, DepthPercent: 48},
		{PriceCents: 86, Shares: 5431, DepthPercent: 28},
		{PriceCents: 85, Shares: 7826, DepthPercent: 42},
	}

	seedBids = []models.MPriceLevel{
		{PriceCents: 84, Shares: 4128, DepthPercent: 60},
		{PriceCents: 83, Shares: 6751, DepthPercent: 75},
		{PriceCents: 82, Shares: 5769, DepthPercent: 70},
		{PriceCents: 81, Shares: 9325, DepthPercent: 85},
		{PriceCents: 80, Shares: 7450, DepthPercent: 80},
		{PriceCents: 79, Shares: 3276, DepthPercent: 55},
		{PriceCents: 78, Shares: 5175, DepthPercent: 65},
		{PriceCents: 77, Shares: 8231, DepthPercent: 82},
		{PriceCents: 76, Shares: 4750, DepthPercent: 62},
		{PriceCents: 75, Shares: 6326, DepthPercent: 72},
		{PriceCents: 74, Shares: 3851, DepthPercent: 58},
		{PriceCents: 73, Shares: 7125, DepthPercent: 76},
		{PriceCents: 72, Shares: 5430, DepthPercent: 64},
		{PriceCents: 71, Shares: 9751, DepthPercent: 84},
		{PriceCents: 70, Shares: 4281, DepthPercent: 60},
	}
)

const (
	seedLastPriceCents = 85
	seedSpreadCents    = 1
)

// DefaultBook returns a fresh copy of the reference book.
func DefaultBook() models.MOrderBookState {
	return models.MOrderBookState{
		Asks:           append([]models.MPriceLevel(nil), seedAsks...),
		Bids:           append([]models.MPriceLevel(nil), seedBids...),
		LastPriceCents: seedLastPriceCents,
		SpreadCents:    seedSpreadCents,
	}
}
