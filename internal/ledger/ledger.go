// Package ledger tracks the in-memory position state of every configured pair.
package ledger

import (
	"sync"

	"pairsbot-go/internal/signal"
)

// Ledger maps pair keys to position state. Absent keys read as FLAT.
// Each key is only written by its own pair's evaluation; the lock protects the map itself.
type Ledger struct {
	mu        sync.RWMutex
	positions map[string]signal.PositionState
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{positions: make(map[string]signal.PositionState)}
}

// Get returns the state for key, FLAT when the pair has never been touched.
func (l *Ledger) Get(key string) signal.PositionState {
	l.mu.RLock()
	state, ok := l.positions[key]
	l.mu.RUnlock()
	if !ok {
		return signal.Flat
	}
	return state
}

// Set records the new state for key.
func (l *Ledger) Set(key string, state signal.PositionState) {
	l.mu.Lock()
	l.positions[key] = state
	l.mu.Unlock()
}

// Snapshot returns a copy of every tracked pair state.
func (l *Ledger) Snapshot() map[string]signal.PositionState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]signal.PositionState, len(l.positions))
	for k, v := range l.positions {
		out[k] = v
	}
	return out
}

// Open counts pairs currently holding a position.
func (l *Ledger) Open() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, v := range l.positions {
		if v.Open() {
			n++
		}
	}
	return n
}
