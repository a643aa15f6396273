// Package signal standardizes payloads shared between the price feed, strategies, and the pair engine.
package signal

import (
	"strings"
	"time"
)

// Sample is a single close observation for one symbol.
type Sample struct {
	Ts    time.Time
	Close float64
}

// Series is an ordered (oldest first) close-price history for one symbol.
type Series struct {
	Symbol  string
	Samples []Sample
}

// Len returns the number of samples held by the series.
func (s Series) Len() int { return len(s.Samples) }

// Latest returns the most recent sample; ok is false when the series is empty.
func (s Series) Latest() (Sample, bool) {
	if len(s.Samples) == 0 {
		return Sample{}, false
	}
	return s.Samples[len(s.Samples)-1], true
}

// Pair is a configured (symbol1, symbol2) tuple traded against each other.
type Pair struct {
	Symbol1 string `yaml:"symbol1" json:"symbol1"`
	Symbol2 string `yaml:"symbol2" json:"symbol2"`
}

// Key identifies the pair in the position ledger.
func (p Pair) Key() string {
	return strings.ToUpper(p.Symbol1) + "_" + strings.ToUpper(p.Symbol2)
}

// String renders the pair for logs.
func (p Pair) String() string { return p.Symbol1 + "/" + p.Symbol2 }

// PositionState is the per-pair position held by the bot.
type PositionState string

const (
	// Flat means no open position.
	Flat PositionState = "FLAT"
	// Long1 means long symbol1, short symbol2.
	Long1 PositionState = "LONG_1"
	// Short1 means short symbol1, long symbol2.
	Short1 PositionState = "SHORT_1"
)

// Open reports whether the state holds exposure.
func (s PositionState) Open() bool { return s == Long1 || s == Short1 }

// Decision is the single transition a pair evaluation may emit per cycle.
type Decision string

const (
	None        Decision = "NONE"
	EnterLong1  Decision = "ENTER_LONG_1"
	EnterShort1 Decision = "ENTER_SHORT_1"
	Exit        Decision = "EXIT"
)

// Target returns the position state the decision moves a pair into from the given state.
func (d Decision) Target(from PositionState) PositionState {
	switch d {
	case EnterLong1:
		return Long1
	case EnterShort1:
		return Short1
	case Exit:
		return Flat
	default:
		return from
	}
}

// Signal is the outcome of evaluating one pair: the decision plus the spread that drove it.
type Signal struct {
	Pair     Pair
	Decision Decision
	Spread   float64
	Reason   string
	Ts       time.Time
}
