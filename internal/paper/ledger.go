package paper

import (
	"sync"

	"pairsbot-go/internal/execution"
)

// Blotter stores paper fills in memory for quick inspection.
type Blotter struct {
	mu    sync.Mutex
	fills []execution.Fill
}

// NewBlotter creates an empty blotter optionally pre-sizing storage.
func NewBlotter(capacity int) *Blotter {
	if capacity < 0 {
		capacity = 0
	}
	return &Blotter{fills: make([]execution.Fill, 0, capacity)}
}

// Record appends a fill.
func (b *Blotter) Record(fill execution.Fill) error {
	b.mu.Lock()
	b.fills = append(b.fills, fill)
	b.mu.Unlock()
	return nil
}

// Len returns the number of fills recorded.
func (b *Blotter) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.fills)
}

// Last returns up to n of the most recent fills, oldest first.
func (b *Blotter) Last(n int) []execution.Fill {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n > len(b.fills) {
		n = len(b.fills)
	}
	if n <= 0 {
		return nil
	}
	out := make([]execution.Fill, n)
	copy(out, b.fills[len(b.fills)-n:])
	return out
}

// Snapshot returns a copy of the recorded fills.
func (b *Blotter) Snapshot() []execution.Fill {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]execution.Fill, len(b.fills))
	copy(out, b.fills)
	return out
}
