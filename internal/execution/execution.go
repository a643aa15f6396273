// Package execution handles order submission and the two-leg pair trade sequence.
package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"pairsbot-go/internal/metrics"
	"pairsbot-go/internal/signal"
)

// Side enumerates order directions used by the executor.
type Side string

const (
	// Buy indicates a long order.
	Buy Side = "buy"
	// Sell indicates a short order.
	Sell Side = "sell"
)

// Reverse returns the opposite side.
func (s Side) Reverse() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Order represents a market order for a single leg.
type Order struct {
	Symbol string
	Side   Side
	Qty    int
}

// Fill records an executed order, used by the paper account.
type Fill struct {
	Symbol string    `json:"symbol"`
	Side   Side      `json:"side"`
	Qty    int       `json:"qty"`
	Price  float64   `json:"price"`
	Ts     time.Time `json:"ts"`
}

// Submitter places a single market order and reports success or failure.
type Submitter interface {
	Submit(ctx context.Context, order Order) error
}

// OrderError reports a rejected or undeliverable order.
type OrderError struct {
	Order  Order
	Status int
	Err    error
}

func (e *OrderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %d %s: status %d: %v", e.Order.Side, e.Order.Qty, e.Order.Symbol, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %d %s: %v", e.Order.Side, e.Order.Qty, e.Order.Symbol, e.Err)
}

func (e *OrderError) Unwrap() error { return e.Err }

// Legs maps a decision taken from the given state into the two orders that realise it, symbol1 first.
// ok is false for NONE or for an EXIT from FLAT.
func Legs(pair signal.Pair, decision signal.Decision, from signal.PositionState, qty int) ([2]Order, bool) {
	var first Side
	switch {
	case decision == signal.EnterShort1:
		first = Sell
	case decision == signal.EnterLong1:
		first = Buy
	case decision == signal.Exit && from == signal.Short1:
		first = Buy
	case decision == signal.Exit && from == signal.Long1:
		first = Sell
	default:
		return [2]Order{}, false
	}
	return [2]Order{
		{Symbol: pair.Symbol1, Side: first, Qty: qty},
		{Symbol: pair.Symbol2, Side: first.Reverse(), Qty: qty},
	}, true
}

// Report describes how far a two-leg sequence got.
type Report struct {
	Filled      int  // legs accepted by the broker, 0..2
	Compensated bool // leg 1 was reversed after leg 2 failed
	Err         error
}

// Complete reports whether both legs went through.
func (r Report) Complete() bool { return r.Filled == 2 }

// Executor submits legs one at a time with a per-order timeout.
type Executor struct {
	submitter  Submitter
	log        zerolog.Logger
	timeout    time.Duration
	compensate bool
}

// Option configures Executor construction parameters.
type Option func(*Executor)

// WithOrderTimeout bounds each submission; a timeout counts as an order failure.
func WithOrderTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithCompensation makes the executor reverse leg 1 once when leg 2 fails.
func WithCompensation(enabled bool) Option {
	return func(e *Executor) { e.compensate = enabled }
}

// NewExecutor wraps a submitter with logging, metrics, and timeouts.
func NewExecutor(submitter Submitter, log zerolog.Logger, opts ...Option) *Executor {
	e := &Executor{submitter: submitter, log: log, timeout: 5 * time.Second}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Submit places one order under the configured timeout.
func (e *Executor) Submit(ctx context.Context, order Order) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	err := e.submitter.Submit(ctx, order)
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	metrics.OrdersTotal.WithLabelValues(order.Symbol, string(order.Side), outcome).Inc()

	evt := e.log.Info()
	if err != nil {
		evt = e.log.Error().Err(err)
	}
	evt.Str("sym", order.Symbol).Str("side", string(order.Side)).Int("qty", order.Qty).Str("outcome", outcome).Msg("submit order")
	return err
}

// ExecutePair submits leg 1 then leg 2, strictly sequentially. Leg 1 is never rolled back unless
// compensation is enabled.
func (e *Executor) ExecutePair(ctx context.Context, legs [2]Order) Report {
	if err := e.Submit(ctx, legs[0]); err != nil {
		return Report{Err: err}
	}
	if err := e.Submit(ctx, legs[1]); err != nil {
		report := Report{Filled: 1, Err: err}
		if e.compensate {
			undo := Order{Symbol: legs[0].Symbol, Side: legs[0].Side.Reverse(), Qty: legs[0].Qty}
			if cerr := e.Submit(ctx, undo); cerr != nil {
				e.log.Error().Err(cerr).Str("sym", undo.Symbol).Msg("compensating order failed")
			} else {
				report.Compensated = true
			}
		}
		return report
	}
	return Report{Filled: 2}
}
