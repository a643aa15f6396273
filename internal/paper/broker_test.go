package paper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"pairsbot-go/internal/execution"
	"pairsbot-go/internal/signal"
)

type staticFeed map[string]float64

func (f staticFeed) History(ctx context.Context, symbol string, from, to time.Time, period string) (signal.Series, error) {
	px, ok := f[symbol]
	if !ok {
		return signal.Series{}, errors.New("unknown symbol")
	}
	return signal.Series{Symbol: symbol, Samples: []signal.Sample{{Ts: to, Close: px}}}, nil
}

func TestBrokerFillsAtLastMark(t *testing.T) {
	blotter := NewBlotter(4)
	broker := NewBroker(staticFeed{"TSLA": 102, "NVDA": 100}, NewAccount(1000), zerolog.Nop(), blotter)
	ctx := context.Background()

	if err := broker.Submit(ctx, execution.Order{Symbol: "TSLA", Side: execution.Sell, Qty: 1}); err == nil {
		t.Fatalf("expected error before any mark is known")
	}

	now := time.Now()
	for _, sym := range []string{"TSLA", "NVDA"} {
		if _, err := broker.History(ctx, sym, now.Add(-time.Hour), now, "minute_1"); err != nil {
			t.Fatalf("History(%s) error: %v", sym, err)
		}
	}
	if _, err := broker.History(ctx, "AMD", now, now, "minute_1"); err == nil {
		t.Fatalf("expected feed error to pass through")
	}

	if err := broker.Submit(ctx, execution.Order{Symbol: "TSLA", Side: execution.Sell, Qty: 1}); err != nil {
		t.Fatalf("sell leg error: %v", err)
	}
	if err := broker.Submit(ctx, execution.Order{Symbol: "NVDA", Side: execution.Buy, Qty: 1}); err != nil {
		t.Fatalf("buy leg error: %v", err)
	}

	fills := blotter.Snapshot()
	if len(fills) != 2 || fills[0].Price != 102 || fills[1].Price != 100 {
		t.Fatalf("unexpected fills %+v", fills)
	}
	snap := broker.Snapshot()
	if snap.Positions["TSLA"].Qty != -1 || snap.Positions["NVDA"].Qty != 1 {
		t.Fatalf("unexpected positions %+v", snap.Positions)
	}
	if snap.Equity != 1000 {
		t.Fatalf("expected equity unchanged at entry, got %.2f", snap.Equity)
	}
}

func TestBrokerRejectsCancelledContext(t *testing.T) {
	broker := NewBroker(staticFeed{}, NewAccount(1000), zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := broker.Submit(ctx, execution.Order{Symbol: "TSLA", Side: execution.Buy, Qty: 1})
	var orderErr *execution.OrderError
	if !errors.As(err, &orderErr) {
		t.Fatalf("expected OrderError, got %v", err)
	}
}
