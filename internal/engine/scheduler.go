package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"pairsbot-go/internal/markethours"
	"pairsbot-go/internal/metrics"
	"pairsbot-go/internal/signal"
)

// Scheduler evaluates every configured pair concurrently, waits for all of them, then sleeps for the
// poll interval. Cycles never overlap.
type Scheduler struct {
	trader      *Trader
	pairs       []signal.Pair
	interval    time.Duration
	concurrency int
	gate        markethours.Gate
	log         zerolog.Logger
	now         func() time.Time
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithConcurrency caps the number of pair tasks in flight; zero or less means one per pair.
func WithConcurrency(n int) SchedulerOption {
	return func(s *Scheduler) { s.concurrency = n }
}

// WithGate skips cycles while the gate reports the market closed.
func WithGate(g markethours.Gate) SchedulerOption {
	return func(s *Scheduler) {
		if g != nil {
			s.gate = g
		}
	}
}

// NewScheduler builds a scheduler over the configured pairs. Duplicate pairs are evaluated once per cycle.
func NewScheduler(trader *Trader, pairs []signal.Pair, interval time.Duration, log zerolog.Logger, opts ...SchedulerOption) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	s := &Scheduler{
		trader:   trader,
		pairs:    dedupe(pairs),
		interval: interval,
		gate:     markethours.AlwaysOpen{},
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pairs returns the deduplicated pair list.
func (s *Scheduler) Pairs() []signal.Pair {
	out := make([]signal.Pair, len(s.pairs))
	copy(out, s.pairs)
	return out
}

// Run loops until ctx is cancelled. It returns nil on cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info().Int("pairs", len(s.pairs)).Dur("interval", s.interval).Msg("scheduler started")
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler stopped")
			return nil
		case <-timer.C:
		}

		if s.gate.Open(s.now()) {
			// a started cycle runs to its barrier; per-call timeouts still bound it
			s.Cycle(context.WithoutCancel(ctx))
		} else {
			s.log.Debug().Msg("market closed, skipping cycle")
		}
		timer.Reset(s.interval)
	}
}

// Cycle evaluates every pair once and blocks until all tasks finish. A panicking task is logged and
// reported as NONE without affecting its siblings.
func (s *Scheduler) Cycle(ctx context.Context) []signal.Signal {
	start := time.Now()
	log := s.log.With().Str("cycle", uuid.NewString()).Logger()
	results := make([]signal.Signal, len(s.pairs))

	var g errgroup.Group
	limit := s.concurrency
	if limit <= 0 {
		limit = len(s.pairs)
	}
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, pair := range s.pairs {
		g.Go(func() error {
			results[i] = s.step(ctx, pair, log)
			return nil
		})
	}
	_ = g.Wait()

	elapsed := time.Since(start)
	metrics.CyclesTotal.Inc()
	metrics.CycleDuration.Observe(elapsed.Seconds())
	log.Debug().Dur("elapsed", elapsed).Int("open", s.trader.Ledger().Open()).Msg("cycle done")
	return results
}

func (s *Scheduler) step(ctx context.Context, pair signal.Pair, log zerolog.Logger) (out signal.Signal) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("pair", pair.String()).Str("panic", fmt.Sprint(r)).Msg("pair task panicked")
			out = signal.Signal{Pair: pair, Decision: signal.None, Reason: "panic", Ts: s.now()}
		}
	}()
	return s.trader.Step(ctx, pair)
}

func dedupe(pairs []signal.Pair) []signal.Pair {
	seen := make(map[string]struct{}, len(pairs))
	out := make([]signal.Pair, 0, len(pairs))
	for _, p := range pairs {
		if _, ok := seen[p.Key()]; ok {
			continue
		}
		seen[p.Key()] = struct{}{}
		out = append(out, p)
	}
	return out
}
