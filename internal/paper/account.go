// Package paper simulates a broker account so pairs can be traded without sending real orders.
package paper

import (
	"errors"
	"sync"

	"pairsbot-go/internal/execution"
)

// FillRecorder captures paper fills for later inspection.
type FillRecorder interface {
	Record(execution.Fill) error
}

type position struct {
	Qty     int // negative when short
	AvgCost float64
}

// Account tracks virtual cash, realized PnL, and signed per-symbol positions. Shorts are allowed
// since every pair trade sells one leg.
type Account struct {
	mu           sync.Mutex
	startingCash float64
	cash         float64
	realizedPnL  float64
	positions    map[string]position
}

// PositionSnapshot exposes a read-only view of a single symbol position.
type PositionSnapshot struct {
	Qty         int
	AvgCost     float64
	MarketValue float64
	Unrealized  float64
}

// Snapshot represents a thread-safe view of the account state, optionally marked to market using provided prices.
type Snapshot struct {
	Cash        float64
	RealizedPnL float64
	Equity      float64
	Positions   map[string]PositionSnapshot
}

// NewAccount constructs an account populated with starting cash.
func NewAccount(startingCash float64) *Account {
	return &Account{
		startingCash: startingCash,
		cash:         startingCash,
		positions:    make(map[string]position),
	}
}

// StartingCash returns the initial bankroll.
func (a *Account) StartingCash() float64 { return a.startingCash }

// MarketFill executes a market order at the provided price, mutating balances if successful.
func (a *Account) MarketFill(symbol string, side execution.Side, qty int, price float64) error {
	if qty <= 0 {
		return errors.New("quantity must be positive")
	}
	if price <= 0 {
		return errors.New("price must be positive")
	}
	delta := qty
	switch side {
	case execution.Buy:
	case execution.Sell:
		delta = -qty
	default:
		return errors.New("unknown order side")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	notional := float64(qty) * price
	if side == execution.Buy && notional > a.cash {
		return errors.New("insufficient cash for buy")
	}

	pos := a.positions[symbol]
	next := pos.Qty + delta
	switch {
	case pos.Qty == 0 || sameSign(pos.Qty, delta):
		// opening or adding
		total := abs(pos.Qty) + qty
		pos.AvgCost = (pos.AvgCost*float64(abs(pos.Qty)) + notional) / float64(total)
	default:
		closed := min(abs(pos.Qty), qty)
		pnl := (price - pos.AvgCost) * float64(closed)
		if pos.Qty < 0 {
			pnl = -pnl
		}
		a.realizedPnL += pnl
		if abs(delta) > abs(pos.Qty) {
			// flipped through zero; the remainder opens at this price
			pos.AvgCost = price
		}
	}
	pos.Qty = next
	a.cash -= float64(delta) * price

	if pos.Qty == 0 {
		delete(a.positions, symbol)
	} else {
		a.positions[symbol] = pos
	}
	return nil
}

// Snapshot returns a copy of balances, optionally marked using the supplied prices map.
func (a *Account) Snapshot(prices map[string]float64) Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	positions := make(map[string]PositionSnapshot, len(a.positions))
	equity := a.cash
	for sym, pos := range a.positions {
		mark := prices[sym]
		marketValue := float64(pos.Qty) * mark
		unrealized := (mark - pos.AvgCost) * float64(pos.Qty)
		if mark == 0 {
			marketValue = 0
			unrealized = 0
		}
		positions[sym] = PositionSnapshot{
			Qty:         pos.Qty,
			AvgCost:     pos.AvgCost,
			MarketValue: marketValue,
			Unrealized:  unrealized,
		}
		equity += marketValue
	}

	return Snapshot{
		Cash:        a.cash,
		RealizedPnL: a.realizedPnL,
		Equity:      equity,
		Positions:   positions,
	}
}

// Position returns the signed position size for the supplied symbol.
func (a *Account) Position(symbol string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.positions[symbol].Qty
}

// RealizedPnL returns total closed-trade profit and loss.
func (a *Account) RealizedPnL() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.realizedPnL
}

func sameSign(a, b int) bool { return (a > 0) == (b > 0) }

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
