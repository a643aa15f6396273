package strategy

import (
	"fmt"
	"math"

	sig "pairsbot-go/internal/signal"
)

const defaultPercentageEntry = 0.001

// PercentageSpread trades the absolute price differential of the latest closes relative to their average.
type PercentageSpread struct {
	entry float64
	exit  float64
}

// NewPercentageSpread builds the evaluator; a non-positive exit threshold defaults to half of entry.
func NewPercentageSpread(entry, exit float64) *PercentageSpread {
	if entry <= 0 {
		entry = defaultPercentageEntry
	}
	if exit <= 0 {
		exit = entry * 0.5
	}
	return &PercentageSpread{entry: entry, exit: exit}
}

// Name returns the identifier for the strategy implementation.
func (p *PercentageSpread) Name() string { return MethodPercentage }

// Thresholds exposes the effective entry and exit levels.
func (p *PercentageSpread) Thresholds() (entry, exit float64) { return p.entry, p.exit }

// Evaluate implements Strategy.
func (p *PercentageSpread) Evaluate(pair sig.Pair, state sig.PositionState, s1, s2 sig.Series) sig.Signal {
	out := sig.Signal{Pair: pair, Decision: sig.None}
	l1, ok1 := s1.Latest()
	l2, ok2 := s2.Latest()
	if !ok1 || !ok2 {
		out.Reason = "empty series"
		return out
	}
	out.Ts = l1.Ts
	if l2.Ts.After(out.Ts) {
		out.Ts = l2.Ts
	}

	spread, ok := PercentSpread(l1.Close, l2.Close)
	if !ok {
		out.Reason = "degenerate average price"
		return out
	}
	out.Spread = spread
	out.Decision = p.decide(state, spread, l1.Close > l2.Close)
	out.Reason = fmt.Sprintf("spread_pct=%.5f entry=%.5f exit=%.5f", spread, p.entry, p.exit)
	return out
}

func (p *PercentageSpread) decide(state sig.PositionState, spread float64, symbol1Rich bool) sig.Decision {
	switch {
	case !state.Open() && spread > p.entry:
		return enter(symbol1Rich)
	case state.Open() && spread < p.exit:
		return sig.Exit
	default:
		return sig.None
	}
}

// PercentSpread returns |p1-p2| / ((p1+p2)/2); ok is false unless both prices are positive and finite.
func PercentSpread(p1, p2 float64) (float64, bool) {
	if !(p1 > 0) || !(p2 > 0) {
		return 0, false
	}
	avg := (p1 + p2) / 2
	if !(avg > 0) || math.IsInf(avg, 0) {
		return 0, false
	}
	spread := math.Abs(p1-p2) / avg
	if math.IsNaN(spread) {
		return 0, false
	}
	return spread, true
}
