package history

import (
	"strings"
	"time"

	"market-simulator/src/helpers"
	"market-simulator/src/models"
)

// WindowSpec is the sampling grid of a chart range.
type WindowSpec struct {
	Window     models.MTimeWindow `json:"window"`
	PointCount int                `json:"point_count"`
	Interval   time.Duration      `json:"interval"`
}

var windowSpecs = []WindowSpec{
	{models.Window1H, 60, time.Minute},
	{models.Window6H, 72, 5 * time.Minute},
	{models.Window1D, 96, 15 * time.Minute},
	{models.Window1W, 84, 2 * time.Hour},
	{models.Window1M, 90, 8 * time.Hour},
	{models.WindowAll, 120, 24 * time.Hour},
}

// Windows lists every supported range in display order.
func Windows() []WindowSpec {
	return append([]WindowSpec(nil), windowSpecs...)
}

// LookupWindow resolves a window name, case-insensitively.
func LookupWindow(name models.MTimeWindow) (WindowSpec, error) {
	want := strings.ToUpper(strings.TrimSpace(string(name)))
	for _, w := range windowSpecs {
		if string(w.Window) == want {
			return w, nil
		}
	}
	return WindowSpec{}, helpers.NewValidationError("unknown time window %q", name)
}
