package execution

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"pairsbot-go/internal/signal"
)

type recordingSubmitter struct {
	mu     sync.Mutex
	orders []Order
	failOn map[int]error // call index -> error
}

func (r *recordingSubmitter) Submit(ctx context.Context, order Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := len(r.orders)
	r.orders = append(r.orders, order)
	if err, ok := r.failOn[idx]; ok {
		return err
	}
	return nil
}

func TestLegsMapping(t *testing.T) {
	pair := signal.Pair{Symbol1: "TSLA", Symbol2: "NVDA"}
	cases := []struct {
		decision signal.Decision
		from     signal.PositionState
		first    Side
	}{
		{signal.EnterShort1, signal.Flat, Sell},
		{signal.EnterLong1, signal.Flat, Buy},
		{signal.Exit, signal.Short1, Buy},
		{signal.Exit, signal.Long1, Sell},
	}
	for _, tc := range cases {
		legs, ok := Legs(pair, tc.decision, tc.from, 2)
		if !ok {
			t.Fatalf("%s from %s: expected legs", tc.decision, tc.from)
		}
		if legs[0].Symbol != "TSLA" || legs[0].Side != tc.first {
			t.Fatalf("%s from %s: unexpected leg 1 %+v", tc.decision, tc.from, legs[0])
		}
		if legs[1].Symbol != "NVDA" || legs[1].Side != tc.first.Reverse() || legs[1].Qty != 2 {
			t.Fatalf("%s from %s: unexpected leg 2 %+v", tc.decision, tc.from, legs[1])
		}
	}
	if _, ok := Legs(pair, signal.None, signal.Flat, 1); ok {
		t.Fatalf("NONE must not produce legs")
	}
	if _, ok := Legs(pair, signal.Exit, signal.Flat, 1); ok {
		t.Fatalf("EXIT from FLAT must not produce legs")
	}
}

func TestSubmitLogsOrder(t *testing.T) {
	var buf bytes.Buffer
	exec := NewExecutor(&recordingSubmitter{}, zerolog.New(&buf))
	if err := exec.Submit(context.Background(), Order{Symbol: "AAPL", Side: Buy, Qty: 1}); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "AAPL") || !strings.Contains(out, `"outcome":"ok"`) {
		t.Fatalf("log does not contain order details: %s", out)
	}
}

func TestExecutePairSequentialNoRollback(t *testing.T) {
	sub := &recordingSubmitter{failOn: map[int]error{1: errors.New("rejected")}}
	exec := NewExecutor(sub, zerolog.Nop())
	legs := [2]Order{{Symbol: "KO", Side: Sell, Qty: 1}, {Symbol: "PEP", Side: Buy, Qty: 1}}

	report := exec.ExecutePair(context.Background(), legs)
	if report.Filled != 1 || report.Err == nil || report.Compensated {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(sub.orders) != 2 {
		t.Fatalf("expected exactly two submissions without rollback, got %d", len(sub.orders))
	}
	if sub.orders[0].Symbol != "KO" || sub.orders[1].Symbol != "PEP" {
		t.Fatalf("legs out of order: %+v", sub.orders)
	}
}

func TestExecutePairLegOneFailureSkipsLegTwo(t *testing.T) {
	sub := &recordingSubmitter{failOn: map[int]error{0: errors.New("down")}}
	exec := NewExecutor(sub, zerolog.Nop())
	report := exec.ExecutePair(context.Background(), [2]Order{{Symbol: "A", Side: Buy, Qty: 1}, {Symbol: "B", Side: Sell, Qty: 1}})
	if report.Filled != 0 || report.Err == nil {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(sub.orders) != 1 {
		t.Fatalf("leg 2 must not be sent after leg 1 fails, got %d orders", len(sub.orders))
	}
}

func TestExecutePairCompensates(t *testing.T) {
	sub := &recordingSubmitter{failOn: map[int]error{1: errors.New("rejected")}}
	exec := NewExecutor(sub, zerolog.Nop(), WithCompensation(true))
	report := exec.ExecutePair(context.Background(), [2]Order{{Symbol: "XOM", Side: Sell, Qty: 1}, {Symbol: "CVX", Side: Buy, Qty: 1}})
	if !report.Compensated || report.Filled != 1 {
		t.Fatalf("expected compensated report, got %+v", report)
	}
	if len(sub.orders) != 3 || sub.orders[2].Symbol != "XOM" || sub.orders[2].Side != Buy {
		t.Fatalf("expected reversing XOM buy, got %+v", sub.orders)
	}
}

type slowSubmitter struct{}

func (slowSubmitter) Submit(ctx context.Context, order Order) error {
	select {
	case <-ctx.Done():
		return &OrderError{Order: order, Err: ctx.Err()}
	case <-time.After(2 * time.Second):
		return nil
	}
}

func TestSubmitTimeout(t *testing.T) {
	exec := NewExecutor(slowSubmitter{}, zerolog.Nop(), WithOrderTimeout(20*time.Millisecond))
	err := exec.Submit(context.Background(), Order{Symbol: "SPY", Side: Buy, Qty: 1})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
