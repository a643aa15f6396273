// Package engine runs the per-pair evaluate/execute step and the cycle scheduler around it.
package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"pairsbot-go/internal/execution"
	"pairsbot-go/internal/journal"
	"pairsbot-go/internal/ledger"
	"pairsbot-go/internal/metrics"
	"pairsbot-go/internal/signal"
	"pairsbot-go/internal/strategy"
)

// PriceFeed returns the close history of one symbol over [from, to].
type PriceFeed interface {
	History(ctx context.Context, symbol string, from, to time.Time, period string) (signal.Series, error)
}

// Settings bounds a single pair evaluation.
type Settings struct {
	PositionSize int
	Window       time.Duration
	Period       string
	FetchTimeout time.Duration
}

// Trader evaluates one pair at a time against the shared position ledger.
type Trader struct {
	feed     PriceFeed
	strat    strategy.Strategy
	exec     *execution.Executor
	ledger   *ledger.Ledger
	journal  journal.Recorder
	log      zerolog.Logger
	settings Settings
	now      func() time.Time
}

// NewTrader wires the collaborators of a pair evaluation. A nil recorder disables journaling.
func NewTrader(settings Settings, feed PriceFeed, strat strategy.Strategy, exec *execution.Executor, book *ledger.Ledger, rec journal.Recorder, log zerolog.Logger) *Trader {
	if settings.PositionSize <= 0 {
		settings.PositionSize = 1
	}
	if settings.Window <= 0 {
		settings.Window = 48 * time.Hour
	}
	if settings.FetchTimeout <= 0 {
		settings.FetchTimeout = 5 * time.Second
	}
	if rec == nil {
		rec = journal.Nop{}
	}
	return &Trader{
		feed:     feed,
		strat:    strat,
		exec:     exec,
		ledger:   book,
		journal:  rec,
		log:      log,
		settings: settings,
		now:      time.Now,
	}
}

// Ledger exposes the position book the trader mutates.
func (t *Trader) Ledger() *ledger.Ledger { return t.ledger }

// Step fetches both histories, evaluates the strategy, and executes any resulting transition.
// A fetch failure yields NONE with no orders and no ledger change.
func (t *Trader) Step(ctx context.Context, pair signal.Pair) signal.Signal {
	log := t.log.With().Str("pair", pair.String()).Logger()
	now := t.now()

	s1, s2, err := t.fetch(ctx, pair, now)
	if err != nil {
		log.Warn().Err(err).Str("action", string(signal.None)).Str("outcome", "fetch_failed").Msg("price fetch failed")
		metrics.DecisionsTotal.WithLabelValues(pair.Key(), string(signal.None)).Inc()
		return signal.Signal{Pair: pair, Decision: signal.None, Reason: "fetch failed", Ts: now}
	}

	key := pair.Key()
	state := t.ledger.Get(key)
	out := t.strat.Evaluate(pair, state, s1, s2)
	metrics.DecisionsTotal.WithLabelValues(key, string(out.Decision)).Inc()

	legs, ok := execution.Legs(pair, out.Decision, state, t.settings.PositionSize)
	if !ok {
		log.Debug().Str("state", string(state)).Float64("spread", out.Spread).Str("reason", out.Reason).Msg("no action")
		return out
	}

	log.Info().Str("state", string(state)).Str("action", string(out.Decision)).Float64("spread", out.Spread).Str("reason", out.Reason).Msg("signal")
	report := t.exec.ExecutePair(ctx, legs)

	switch {
	case report.Filled == 0:
		log.Error().Err(report.Err).Str("action", string(out.Decision)).Str("outcome", "leg1_failed").Msg("pair trade aborted")
		return out
	case report.Compensated:
		log.Error().Err(report.Err).Str("action", string(out.Decision)).Str("outcome", "compensated").Msg("leg 2 failed, leg 1 reversed")
		return out
	case !report.Complete():
		log.Error().Err(report.Err).Str("action", string(out.Decision)).Str("outcome", "leg2_failed").Msg("pair trade incomplete, exposure is unhedged")
	}

	next := out.Decision.Target(state)
	t.ledger.Set(key, next)
	metrics.OpenPositions.Set(float64(t.ledger.Open()))

	action := journal.Enter
	if out.Decision == signal.Exit {
		action = journal.Exit
	}
	entry := journal.Entry{Ts: now, Symbol1: pair.Symbol1, Symbol2: pair.Symbol2, Action: action, Spread: out.Spread}
	if err := t.journal.Record(entry); err != nil {
		log.Error().Err(err).Msg("journal write failed")
	}
	if report.Complete() {
		log.Info().Str("action", string(out.Decision)).Str("position", string(next)).Str("outcome", "filled").Msg("pair trade done")
	}
	return out
}

func (t *Trader) fetch(ctx context.Context, pair signal.Pair, now time.Time) (signal.Series, signal.Series, error) {
	from := now.Add(-t.settings.Window)
	s1, err := t.history(ctx, pair.Symbol1, from, now)
	if err != nil {
		return signal.Series{}, signal.Series{}, err
	}
	s2, err := t.history(ctx, pair.Symbol2, from, now)
	if err != nil {
		return signal.Series{}, signal.Series{}, err
	}
	return s1, s2, nil
}

func (t *Trader) history(ctx context.Context, symbol string, from, to time.Time) (signal.Series, error) {
	ctx, cancel := context.WithTimeout(ctx, t.settings.FetchTimeout)
	defer cancel()
	series, err := t.feed.History(ctx, symbol, from, to, t.settings.Period)
	if err != nil {
		metrics.FetchFailuresTotal.WithLabelValues(symbol).Inc()
		return signal.Series{}, err
	}
	return series, nil
}
