package strategy

import (
	"fmt"
	"math"
	"time"

	sig "pairsbot-go/internal/signal"
)

const (
	defaultZEntry = 2.0
	defaultZExit  = 0.2
	// below this the spread is treated as flat; rounding on a constant series leaves ~1e-17 residue
	minStdDev = 1e-12
)

// Stats summarizes a log-ratio spread over the lookback window.
type Stats struct {
	Mean    float64
	StdDev  float64
	Latest  float64
	Samples int
}

// ZScore returns the latest value in standard deviations from the mean (0 when sd is zero).
func (s Stats) ZScore() float64 {
	if s.StdDev <= minStdDev {
		return 0
	}
	return (s.Latest - s.Mean) / s.StdDev
}

// ZScoreSpread trades log(p1)-log(p2) when it leaves mean ± k·sd and exits within m·sd of the mean.
type ZScoreSpread struct {
	k float64
	m float64
}

// NewZScoreSpread builds the evaluator with band widths k (entry) and m (exit), defaulting to 2 and 0.2.
func NewZScoreSpread(k, m float64) *ZScoreSpread {
	if k <= 0 {
		k = defaultZEntry
	}
	if m <= 0 {
		m = defaultZExit
	}
	return &ZScoreSpread{k: k, m: m}
}

// Name returns the identifier for the strategy implementation.
func (z *ZScoreSpread) Name() string { return MethodZScore }

// Evaluate implements Strategy.
func (z *ZScoreSpread) Evaluate(pair sig.Pair, state sig.PositionState, s1, s2 sig.Series) sig.Signal {
	out := sig.Signal{Pair: pair, Decision: sig.None}
	stats, ts, ok := LogRatioStats(s1, s2)
	if !ok {
		out.Reason = "insufficient aligned samples"
		return out
	}
	out.Ts = ts
	out.Spread = stats.Latest
	out.Decision = z.Decide(state, stats)
	out.Reason = fmt.Sprintf("spread=%.5f mean=%.5f sd=%.5f z=%.2f", stats.Latest, stats.Mean, stats.StdDev, stats.ZScore())
	return out
}

// Decide applies the band policy to precomputed stats.
func (z *ZScoreSpread) Decide(state sig.PositionState, stats Stats) sig.Decision {
	if !(stats.StdDev > minStdDev) || math.IsNaN(stats.Mean) || math.IsNaN(stats.Latest) {
		return sig.None
	}
	if !state.Open() {
		upper := stats.Mean + z.k*stats.StdDev
		lower := stats.Mean - z.k*stats.StdDev
		switch {
		case stats.Latest > upper:
			return enter(true)
		case stats.Latest < lower:
			return enter(false)
		}
		return sig.None
	}
	if math.Abs(stats.Latest-stats.Mean) < z.m*stats.StdDev {
		return sig.Exit
	}
	return sig.None
}

// LogRatioStats aligns both series on timestamp, drops non-positive closes, and returns the mean,
// sample standard deviation and latest value of log(p1)-log(p2) along with the latest aligned timestamp.
func LogRatioStats(s1, s2 sig.Series) (Stats, time.Time, bool) {
	second := make(map[int64]float64, len(s2.Samples))
	for _, smp := range s2.Samples {
		if smp.Close > 0 {
			second[smp.Ts.Unix()] = smp.Close
		}
	}

	ratios := make([]float64, 0, len(s1.Samples))
	var last time.Time
	for _, smp := range s1.Samples {
		if smp.Close <= 0 {
			continue
		}
		p2, ok := second[smp.Ts.Unix()]
		if !ok {
			continue
		}
		ratios = append(ratios, math.Log(smp.Close)-math.Log(p2))
		last = smp.Ts
	}
	if len(ratios) < 2 {
		return Stats{}, time.Time{}, false
	}

	mean, sd := meanStd(ratios)
	return Stats{Mean: mean, StdDev: sd, Latest: ratios[len(ratios)-1], Samples: len(ratios)}, last, true
}

// meanStd uses the n-1 denominator; callers guarantee len(data) >= 2.
func meanStd(data []float64) (float64, float64) {
	var sum float64
	for _, v := range data {
		sum += v
	}
	mean := sum / float64(len(data))
	var sq float64
	for _, v := range data {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(len(data)-1))
}
