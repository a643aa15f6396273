// Package strategy turns two fresh price series and the current pair position into a single decision.
package strategy

import (
	"strings"

	sig "pairsbot-go/internal/signal"
)

const (
	// MethodPercentage compares the latest closes as a percentage of their average.
	MethodPercentage = "percentage"
	// MethodZScore compares the latest log-ratio against its rolling mean and standard deviation.
	MethodZScore = "zscore"
)

// Strategy defines behaviour shared by spread evaluators used by the pair engine.
// Evaluate must not have side effects beyond the returned signal.
type Strategy interface {
	Evaluate(pair sig.Pair, state sig.PositionState, s1, s2 sig.Series) sig.Signal
	Name() string
}

// Params expresses tunable knobs required by strategy constructors.
// For the percentage method thresholds are fractions of the average price;
// for the z-score method they are multiples of the standard deviation.
type Params struct {
	EntryThreshold float64
	ExitThreshold  float64
}

// Build returns a strategy implementation matching the configured method.
func Build(method string, params Params) Strategy {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case MethodZScore, "z-score", "logratio":
		return NewZScoreSpread(params.EntryThreshold, params.ExitThreshold)
	default:
		return NewPercentageSpread(params.EntryThreshold, params.ExitThreshold)
	}
}

// enter maps the sign of the divergence to a direction: the richer leg is sold, the cheaper one bought.
func enter(symbol1Rich bool) sig.Decision {
	if symbol1Rich {
		return sig.EnterShort1
	}
	return sig.EnterLong1
}
