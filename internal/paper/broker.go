package paper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"pairsbot-go/internal/execution"
	"pairsbot-go/internal/signal"
)

// PriceFeed is the history source the broker marks positions from.
type PriceFeed interface {
	History(ctx context.Context, symbol string, from, to time.Time, period string) (signal.Series, error)
}

// Broker sits between the engine and the real price feed. Every fetched series updates the symbol's
// mark, and submitted orders fill immediately at that mark against the paper account.
type Broker struct {
	feed      PriceFeed
	account   *Account
	recorders []FillRecorder
	log       zerolog.Logger
	now       func() time.Time

	mu    sync.RWMutex
	marks map[string]float64
}

// NewBroker wraps feed and fills orders against account, passing each fill to the recorders.
func NewBroker(feed PriceFeed, account *Account, log zerolog.Logger, recorders ...FillRecorder) *Broker {
	return &Broker{
		feed:      feed,
		account:   account,
		recorders: recorders,
		log:       log,
		now:       time.Now,
		marks:     make(map[string]float64),
	}
}

// History proxies the underlying feed and remembers the latest close.
func (b *Broker) History(ctx context.Context, symbol string, from, to time.Time, period string) (signal.Series, error) {
	series, err := b.feed.History(ctx, symbol, from, to, period)
	if err != nil {
		return series, err
	}
	if last, ok := series.Latest(); ok && last.Close > 0 {
		b.mu.Lock()
		b.marks[symbol] = last.Close
		b.mu.Unlock()
	}
	return series, nil
}

// Mark returns the last observed close for symbol.
func (b *Broker) Mark(symbol string) (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	px, ok := b.marks[symbol]
	return px, ok
}

// Marks returns a copy of all known marks.
func (b *Broker) Marks() map[string]float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]float64, len(b.marks))
	for k, v := range b.marks {
		out[k] = v
	}
	return out
}

// Submit implements execution.Submitter.
func (b *Broker) Submit(ctx context.Context, order execution.Order) error {
	if err := ctx.Err(); err != nil {
		return &execution.OrderError{Order: order, Err: err}
	}
	px, ok := b.Mark(order.Symbol)
	if !ok {
		return &execution.OrderError{Order: order, Err: fmt.Errorf("no mark for %s", order.Symbol)}
	}
	if err := b.account.MarketFill(order.Symbol, order.Side, order.Qty, px); err != nil {
		return &execution.OrderError{Order: order, Err: err}
	}
	fill := execution.Fill{Symbol: order.Symbol, Side: order.Side, Qty: order.Qty, Price: px, Ts: b.now()}
	for _, rec := range b.recorders {
		if err := rec.Record(fill); err != nil {
			b.log.Warn().Err(err).Str("sym", fill.Symbol).Msg("record paper fill")
		}
	}
	return nil
}

// Snapshot marks the account to the latest observed closes.
func (b *Broker) Snapshot() Snapshot { return b.account.Snapshot(b.Marks()) }
