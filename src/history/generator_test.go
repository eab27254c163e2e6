package history

import (
	"math/rand/v2"
	"testing"
	"time"

	"market-simulator/src/helpers"
	"market-simulator/src/models"
)

var fixedNow = time.Unix(1_750_000_000, 0)

func newTestGenerator(seed uint64) *Generator {
	return NewGenerator(rand.New(rand.NewPCG(seed, seed+1)), func() time.Time { return fixedNow })
}

func TestGenerate_OneHourScenario(t *testing.T) {
	g := newTestGenerator(1)

	points, err := g.Generate("1", 62, models.Window1H)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(points) != 60 {
		t.Fatalf("expected 60 points, got %d", len(points))
	}
	if points[59].Value != 62.0 {
		t.Errorf("expected final value 62.0, got %v", points[59].Value)
	}
	if points[0].Value < 5 || points[0].Value > 95 {
		t.Errorf("first value %v outside [5,95]", points[0].Value)
	}
	if points[59].Time != fixedNow.Unix() {
		t.Errorf("expected last timestamp %d, got %d", fixedNow.Unix(), points[59].Time)
	}
	for i := 1; i < len(points); i++ {
		if points[i].Time-points[i-1].Time != 60 {
			t.Fatalf("point %d: expected 60s spacing, got %d", i, points[i].Time-points[i-1].Time)
		}
	}
}

func TestGenerate_AllWindowsRespectBounds(t *testing.T) {
	g := newTestGenerator(42)
	ids := []string{"1", "2", "9", "12", "not-a-number", ""}
	targets := []float64{0, 1, 25, 50.5, 73, 99, 100}

	for _, win := range Windows() {
		for _, id := range ids {
			for _, target := range targets {
				points, err := g.Generate(id, target, win.Window)
				if err != nil {
					t.Fatalf("%s/%s/%v: %v", win.Window, id, target, err)
				}
				if len(points) != win.PointCount {
					t.Fatalf("%s: expected %d points, got %d", win.Window, win.PointCount, len(points))
				}
				last := points[len(points)-1]
				if last.Value != target {
					t.Fatalf("%s/%s: final value %v, want %v", win.Window, id, last.Value, target)
				}
				for i, p := range points[:len(points)-1] {
					if p.Value < 5 || p.Value > 95 {
						t.Fatalf("%s/%s/%v: point %d value %v outside [5,95]", win.Window, id, target, i, p.Value)
					}
				}
				step := int64(win.Interval / time.Second)
				if points[1].Time-points[0].Time != step {
					t.Fatalf("%s: expected spacing %d, got %d", win.Window, step, points[1].Time-points[0].Time)
				}
			}
		}
	}
}

func TestGenerate_PartialDeterminism(t *testing.T) {
	g := newTestGenerator(3)

	a, err := g.Generate("7", 34, models.Window1D)
	if err != nil {
		t.Fatal(err)
	}
	b, err := g.Generate("7", 34, models.Window1D)
	if err != nil {
		t.Fatal(err)
	}

	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	if a[len(a)-1].Value != b[len(b)-1].Value {
		t.Errorf("final values differ: %v vs %v", a[len(a)-1].Value, b[len(b)-1].Value)
	}
	if a[0].Value != StartValue(7) || b[0].Value != StartValue(7) {
		t.Errorf("both series must start at %v, got %v and %v", StartValue(7), a[0].Value, b[0].Value)
	}
}

func TestGenerate_RejectsBadInput(t *testing.T) {
	g := newTestGenerator(1)

	if _, err := g.Generate("1", 50, "2Y"); !helpers.IsValidation(err) {
		t.Errorf("expected validation error for unknown window, got %v", err)
	}
	if _, err := g.Generate("1", 150, models.Window1H); !helpers.IsValidation(err) {
		t.Errorf("expected validation error for target 150, got %v", err)
	}
}

func TestSeed(t *testing.T) {
	cases := map[string]int{
		"1":             1,
		"12":            12,
		"12abc":         12,
		" 5":            5,
		"-7":            7,
		"0":             1,
		"abc":           1,
		"":              1,
		"+9":            9,
		"1234567890123": 123456789,
	}
	for in, want := range cases {
		if got := Seed(in); got != want {
			t.Errorf("Seed(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestSeedDerivedParameters(t *testing.T) {
	if StartValue(1) != 21 || StartValue(30) != 20 || StartValue(59) != 49 {
		t.Error("start value must be 20 + seed mod 30")
	}
	if BaseVolatility(1) != 2.5 || BaseVolatility(4) != 1.5 {
		t.Error("base volatility must be 1.5 + seed mod 4")
	}
}

func TestLookupWindow(t *testing.T) {
	w, err := LookupWindow("all")
	if err != nil {
		t.Fatal(err)
	}
	if w.PointCount != 120 || w.Interval != 24*time.Hour {
		t.Errorf("unexpected ALL win %+v", w)
	}
	if len(Windows()) != 6 {
		t.Errorf("expected 6 windows, got %d", len(Windows()))
	}
}
