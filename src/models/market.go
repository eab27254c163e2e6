package models

// MMarketCard is one entry of the listing catalog.
// Binary markets carry Percentage/Change, multi-outcome markets carry Options.
type MMarketCard struct {
	ID         string          `yaml:"id" json:"id"`
	Title      string          `yaml:"title" json:"title"`
	Category   string          `yaml:"category" json:"category"`
	Volume     string          `yaml:"volume" json:"volume"`
	ImageURL   string          `yaml:"image_url" json:"image_url,omitempty"`
	Percentage *float64        `yaml:"percentage" json:"percentage,omitempty"`
	Change     float64         `yaml:"change" json:"change"`
	Chance     bool            `yaml:"chance" json:"chance"`
	Winner     string          `yaml:"winner" json:"winner,omitempty"`
	Monthly    bool            `yaml:"monthly" json:"monthly"`
	Options    []MMarketOption `yaml:"options" json:"options,omitempty"`

	// OptionCount pads Options up to this many entries when set.
	OptionCount int `yaml:"option_count" json:"-"`
}

type MMarketOption struct {
	Name       string  `yaml:"name" json:"name"`
	Percentage float64 `yaml:"percentage" json:"percentage"`
}

// TargetPercentage returns the value the price chart has to land on.
func (c MMarketCard) TargetPercentage() float64 {
	if c.Percentage != nil {
		return *c.Percentage
	}
	if len(c.Options) > 0 {
		return c.Options[0].Percentage
	}
	return 50
}
