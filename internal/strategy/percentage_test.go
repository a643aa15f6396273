package strategy

import (
	"math"
	"testing"
	"time"

	"pairsbot-go/internal/signal"
)

func latestSeries(symbol string, px float64) signal.Series {
	return signal.Series{Symbol: symbol, Samples: []signal.Sample{{Ts: time.Unix(1700000000, 0), Close: px}}}
}

func TestPercentageEntersShortWhenSymbol1Rich(t *testing.T) {
	strat := NewPercentageSpread(0.001, 0)
	pair := signal.Pair{Symbol1: "TSLA", Symbol2: "NVDA"}
	out := strat.Evaluate(pair, signal.Flat, latestSeries("TSLA", 102), latestSeries("NVDA", 100))
	if out.Decision != signal.EnterShort1 {
		t.Fatalf("expected ENTER_SHORT_1, got %s", out.Decision)
	}
	if math.Abs(out.Spread-2.0/101.0) > 1e-12 {
		t.Fatalf("unexpected spread %.6f", out.Spread)
	}
}

func TestPercentageEntersLongWhenSymbol1Cheap(t *testing.T) {
	strat := NewPercentageSpread(0.001, 0)
	pair := signal.Pair{Symbol1: "KO", Symbol2: "PEP"}
	out := strat.Evaluate(pair, signal.Flat, latestSeries("KO", 60), latestSeries("PEP", 170))
	if out.Decision != signal.EnterLong1 {
		t.Fatalf("expected ENTER_LONG_1, got %s", out.Decision)
	}
}

func TestPercentageExitDefaultsToHalfEntry(t *testing.T) {
	strat := NewPercentageSpread(0.01, 0)
	entry, exit := strat.Thresholds()
	if entry != 0.01 || exit != 0.005 {
		t.Fatalf("unexpected thresholds %.4f %.4f", entry, exit)
	}
	pair := signal.Pair{Symbol1: "XOM", Symbol2: "CVX"}
	for _, state := range []signal.PositionState{signal.Long1, signal.Short1} {
		out := strat.Evaluate(pair, state, latestSeries("XOM", 100.2), latestSeries("CVX", 100))
		if out.Decision != signal.Exit {
			t.Fatalf("expected EXIT from %s, got %s", state, out.Decision)
		}
	}
}

func TestPercentageHoldsWhileSpreadWide(t *testing.T) {
	strat := NewPercentageSpread(0.01, 0.005)
	pair := signal.Pair{Symbol1: "XOM", Symbol2: "CVX"}
	out := strat.Evaluate(pair, signal.Short1, latestSeries("XOM", 110), latestSeries("CVX", 100))
	if out.Decision != signal.None {
		t.Fatalf("expected NONE while open and wide, got %s", out.Decision)
	}
	out = strat.Evaluate(pair, signal.Flat, latestSeries("XOM", 100.1), latestSeries("CVX", 100))
	if out.Decision != signal.None {
		t.Fatalf("expected NONE while flat and narrow, got %s", out.Decision)
	}
}

func TestPercentageBoundariesAreStrict(t *testing.T) {
	pair := signal.Pair{Symbol1: "SPY", Symbol2: "QQQ"}
	// 101 vs 99: diff 2 over avg 100 is exactly 0.02
	strat := NewPercentageSpread(0.02, 0.02)
	if out := strat.Evaluate(pair, signal.Flat, latestSeries("SPY", 101), latestSeries("QQQ", 99)); out.Decision != signal.None {
		t.Fatalf("spread equal to entry must not enter, got %s", out.Decision)
	}
	if out := strat.Evaluate(pair, signal.Long1, latestSeries("SPY", 101), latestSeries("QQQ", 99)); out.Decision != signal.None {
		t.Fatalf("spread equal to exit must not exit, got %s", out.Decision)
	}
}

func TestPercentageDegenerateInputs(t *testing.T) {
	strat := NewPercentageSpread(0.001, 0)
	pair := signal.Pair{Symbol1: "A", Symbol2: "B"}
	cases := []struct {
		name   string
		s1, s2 signal.Series
	}{
		{"zero average", latestSeries("A", 0), latestSeries("B", 0)},
		{"cancelling prices", latestSeries("A", -5), latestSeries("B", 5)},
		{"empty leg", signal.Series{Symbol: "A"}, latestSeries("B", 5)},
		{"zero leg", latestSeries("A", 100), latestSeries("B", 0)},
		{"negative leg", latestSeries("A", -1), latestSeries("B", 100)},
	}
	for _, tc := range cases {
		if out := strat.Evaluate(pair, signal.Flat, tc.s1, tc.s2); out.Decision != signal.None {
			t.Fatalf("%s: expected NONE, got %s", tc.name, out.Decision)
		}
	}
}

func TestBuildSelectsMethod(t *testing.T) {
	if got := Build("zscore", Params{}).Name(); got != MethodZScore {
		t.Fatalf("expected zscore strategy, got %s", got)
	}
	if got := Build("", Params{}).Name(); got != MethodPercentage {
		t.Fatalf("expected percentage fallback, got %s", got)
	}
}
