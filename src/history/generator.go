package history

import (
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"market-simulator/src/helpers"
	"market-simulator/src/models"
)

const (
	minValue = 5.0
	maxValue = 95.0

	minSegment = 5
	maxSegment = 20

	spikeProbability = 1.0 / 15
	quietProbability = 1.0 / 10
	spikeScale       = 3.0
	trendScale       = 0.8
	driftJitter      = 0.2

	maxSeedDigits = 9
)

// Generator fabricates chart series that end on a known value.
// Only the start value and the volatility scale are derived from the id;
// the path itself is drawn fresh on every call.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

func NewGenerator(rng *rand.Rand, now func() time.Time) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if now == nil {
		now = time.Now
	}
	return &Generator{rng: rng, now: now}
}

// -----------------------------------------------------------------------------

// Generate returns the window's point count of points, oldest first, spaced by the
// window interval and ending now. Every value lies in [5,95] except the last,
// which is exactly targetPercent.
func (g *Generator) Generate(id string, targetPercent float64, window models.MTimeWindow) ([]models.MPricePoint, error) {
	win, err := LookupWindow(window)
	if err != nil {
		return nil, err
	}
	if targetPercent < 0 || targetPercent > 100 || math.IsNaN(targetPercent) {
		return nil, helpers.NewValidationError("target percentage %.2f outside 0..100", targetPercent)
	}
	return g.generate(Seed(id), targetPercent, win), nil
}

// -----------------------------------------------------------------------------

func (g *Generator) generate(seed int, target float64, win WindowSpec) []models.MPricePoint {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := win.PointCount
	start := StartValue(seed)
	baseVol := BaseVolatility(seed)
	driftBase := (target - start) / float64(n)

	end := g.now().Unix()
	step := int64(win.Interval / time.Second)

	points := make([]models.MPricePoint, n)
	value := start
	seg := segment{}

	for i := 0; i < n; i++ {
		ts := end - int64(n-1-i)*step

		if i == n-1 {
			points[i] = models.MPricePoint{Time: ts, Value: target}
			break
		}

		if i > 0 {
			if seg.remaining == 0 {
				seg = g.newSegment(baseVol)
			}
			seg.remaining--

			drift := driftBase * (1 - driftJitter + g.rng.Float64()*2*driftJitter)
			value += g.movement(seg) + drift
		}

		value = round1(clamp(value, minValue, maxValue))
		points[i] = models.MPricePoint{Time: ts, Value: value}
	}

	return points
}

// -----------------------------------------------------------------------------

// segment is a run of points sharing one slope and volatility.
type segment struct {
	remaining  int
	trend      float64
	volatility float64
}

func (g *Generator) newSegment(baseVol float64) segment {
	return segment{
		remaining:  minSegment + g.rng.IntN(maxSegment-minSegment+1),
		trend:      (g.rng.Float64()*2 - 1) * trendScale * baseVol,
		volatility: baseVol * (0.5 + g.rng.Float64()),
	}
}

func (g *Generator) movement(seg segment) float64 {
	move := seg.trend + (g.rng.Float64()*2-1)*seg.volatility

	if g.rng.Float64() < spikeProbability {
		if g.rng.Float64() < 0.5 {
			move += spikeScale * seg.volatility
		} else {
			move -= spikeScale * seg.volatility
		}
	}
	if g.rng.Float64() < quietProbability {
		move = 0
	}
	return move
}

// -----------------------------------------------------------------------------

// Seed reads the leading integer of id. Unparseable ids and zero map to 1.
// Unlike a plain integer parse, the sign is dropped and at most nine digits
// are read, so negative or very long ids still give a seed whose mod results
// are non-negative and fit an int on every platform.
func Seed(id string) int {
	s := strings.TrimSpace(id)
	if s != "" && (s[0] == '-' || s[0] == '+') {
		s = s[1:]
	}

	end := 0
	for end < len(s) && end < maxSeedDigits && s[end] >= '0' && s[end] <= '9' {
		end++
	}

	seed, err := strconv.Atoi(s[:end])
	if err != nil || seed == 0 {
		return 1
	}
	return seed
}

// StartValue is where a series begins: 20 + seed mod 30.
func StartValue(seed int) float64 {
	return 20 + float64(seed%30)
}

// BaseVolatility scales every segment: 1.5 + seed mod 4.
func BaseVolatility(seed int) float64 {
	return 1.5 + float64(seed%4)
}

// -----------------------------------------------------------------------------

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
