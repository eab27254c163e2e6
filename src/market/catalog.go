package market

import (
	"fmt"

	"market-simulator/src/helpers"
	"market-simulator/src/models"
)

// Catalog is the read-only set of listed markets, in listing order.
type Catalog struct {
	cards []models.MMarketCard
	byID  map[string]int
}

// NewCatalog indexes cards by id and pads multi-outcome cards up to their
// OptionCount. Duplicate or empty ids are rejected.
func NewCatalog(cards []models.MMarketCard) (*Catalog, error) {
	c := &Catalog{
		cards: make([]models.MMarketCard, 0, len(cards)),
		byID:  make(map[string]int, len(cards)),
	}

	for _, card := range cards {
		if card.ID == "" {
			return nil, helpers.NewValidationError("market %q has no id", card.Title)
		}
		if _, dup := c.byID[card.ID]; dup {
			return nil, helpers.NewValidationError("duplicate market id %q", card.ID)
		}
		card.Options = PadOptions(card.Options, card.OptionCount)
		c.byID[card.ID] = len(c.cards)
		c.cards = append(c.cards, card)
	}

	return c, nil
}

// -----------------------------------------------------------------------------

// Get returns the card for id or a NotFoundError.
func (c *Catalog) Get(id string) (models.MMarketCard, error) {
	idx, ok := c.byID[id]
	if !ok {
		return models.MMarketCard{}, helpers.NewNotFoundError("market %q not found", id)
	}
	return c.cards[idx], nil
}

// All returns the cards in listing order.
func (c *Catalog) All() []models.MMarketCard {
	return append([]models.MMarketCard(nil), c.cards...)
}

func (c *Catalog) Len() int {
	return len(c.cards)
}

// -----------------------------------------------------------------------------

// PadOptions appends placeholder outcomes until there are total of them.
// Placeholders get deterministic percentages in 10..29.
func PadOptions(options []models.MMarketOption, total int) []models.MMarketOption {
	if len(options) == 0 || len(options) >= total {
		return options
	}
	out := append([]models.MMarketOption(nil), options...)
	for len(out) < total {
		idx := len(out)
		out = append(out, models.MMarketOption{
			Name:       fmt.Sprintf("Additional Option %d", idx+1),
			Percentage: float64(10 + idx%20),
		})
	}
	return out
}

// -----------------------------------------------------------------------------

func pct(v float64) *float64 { return &v }

// DefaultCards is the demo listing used when the config names no markets.
func DefaultCards() []models.MMarketCard {
	img := func(text string) string { return "https://placehold.co/40x40/333/FFF?text=" + text }
	opts := func(pairs ...any) []models.MMarketOption {
		out := make([]models.MMarketOption, 0, len(pairs)/2)
		for i := 0; i+1 < len(pairs); i += 2 {
			out = append(out, models.MMarketOption{Name: pairs[i].(string), Percentage: float64(pairs[i+1].(int))})
		}
		return out
	}

	return []models.MMarketCard{
		{ID: "1", Title: "US recession in 2025?", ImageURL: img("US"), Percentage: pct(62), Chance: true, Volume: "$2m Vol.", Category: "Economics", Change: 43},
		{ID: "2", Title: "Florida vs. Houston", ImageURL: img("🏀"), Percentage: pct(52), Winner: "Florida", Volume: "$314k Vol.", Category: "Sports", Change: 12},
		{ID: "3", Title: "Next Prime Minister of Canada after the election?", ImageURL: img("CA"),
			Options: opts("Mark Carney", 73, "Pierre Poilievre", 28, "Chrystia Freeland", 1), OptionCount: 12, Volume: "$36m Vol.", Category: "Politics"},
		{ID: "4", Title: "Fed decision in May?", ImageURL: img("$"),
			Options: opts("50+ bps decrease", 4, "25 bps decrease", 23, "No change", 73), OptionCount: 8, Volume: "$17m Vol.", Monthly: true, Category: "Economics"},
		{ID: "5", Title: "Next president of South Korea?", ImageURL: img("KR"),
			Options: opts("Lee Jae-myung", 79, "Kim Moon-soo", 4, "Lee Jun-seok", 4), OptionCount: 15, Volume: "$4m Vol.", Category: "Politics"},
		{ID: "6", Title: "What will Trump say during Netanyahu events today?", ImageURL: img("Talk"),
			Options: opts("Israel 7+ times", 100, "Gaza 10+ times", 10, "Tariff 10+ times", 100), OptionCount: 9, Volume: "$59k Vol.", Category: "Politics"},
		{ID: "7", Title: "Which country will Trump lower tariffs on first?", ImageURL: img("Globe"),
			Options: opts("Israel", 56, "Japan", 12, "Argentina", 11), OptionCount: 10, Volume: "$140k Vol.", Category: "Trade"},
		{ID: "8", Title: "Which countries will Trump reduce tariffs on before June?", ImageURL: img("World"),
			Options: opts("Japan", 90, "Vietnam", 88, "Taiwan", 88), OptionCount: 11, Volume: "$549k Vol.", Category: "Trade"},
		{ID: "9", Title: "Elon out of Trump administration before 2026?", ImageURL: img("🚀"), Percentage: pct(34), Chance: true, Volume: "$501k Vol.", Category: "Politics", Change: -8},
		{ID: "10", Title: "Will Trump reduce majority of tariffs before 2026?", ImageURL: img("Chart"), Percentage: pct(56), Chance: true, Volume: "$26k Vol.", Category: "Trade", Change: 15},
		{ID: "11", Title: "How many Fed rate cuts in 2025?", ImageURL: img("Fed"),
			Options: opts("0", 7, "1 (25 bps)", 10, "2 (50 bps)", 12), OptionCount: 14, Volume: "$5m Vol.", Category: "Economics"},
		{ID: "12", Title: "Russia x Ukraine ceasefire before July?", ImageURL: img("RU"), Percentage: pct(25), Chance: true, Volume: "$6m Vol.", Category: "Geopolitics", Change: -3},
	}
}
