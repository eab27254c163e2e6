package orderbook

import (
	"fmt"

	"market-simulator/src/models"

	"github.com/dustin/go-humanize"
)

// FormatCents renders a price the way the book shows it: 85¢
func FormatCents(cents int) string {
	return fmt.Sprintf("%d¢", cents)
}

// FormatShares renders a share count with thousands separators: 20,230
func FormatShares(shares int64) string {
	return humanize.Comma(shares)
}

// FormatTotal renders a dollar total: $20,028
func FormatTotal(total int64) string {
	if total < 0 {
		return "-$" + humanize.Comma(-total)
	}
	return "$" + humanize.Comma(total)
}

// -----------------------------------------------------------------------------

// BuildView renders a snapshot row by row.
func BuildView(marketID string, state models.MOrderBookState, paused bool) models.MOrderBookView {
	return models.MOrderBookView{
		MarketID:  marketID,
		Asks:      rows(state.Asks),
		Bids:      rows(state.Bids),
		LastPrice: FormatCents(state.LastPriceCents),
		Spread:    FormatCents(state.SpreadCents),
		Paused:    paused,
		State:     state,
	}
}

func rows(levels []models.MPriceLevel) []models.MLevelRow {
	out := make([]models.MLevelRow, len(levels))
	for i, l := range levels {
		out[i] = models.MLevelRow{
			Price:        FormatCents(l.PriceCents),
			Shares:       FormatShares(l.Shares),
			Total:        FormatTotal(l.Total),
			DepthPercent: l.DepthPercent,
		}
	}
	return out
}
