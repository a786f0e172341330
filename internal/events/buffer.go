package events

import (
	"sync"

	"clmmLedger/internal/model"
)

// Emitter accepts events.
type Emitter interface {
	Emit(ev model.IncreaseLiquidityEvent)
}

// Buffer holds events emitted inside a transaction until it commits. A
// transaction that is rerun calls Reset first so no event is delivered twice.
type Buffer struct {
	mu     sync.Mutex
	events []model.IncreaseLiquidityEvent
}

func (b *Buffer) Emit(ev model.IncreaseLiquidityEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
}

// Reset drops everything buffered.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
}

// Flush hands the buffered events to to, in emit order, and empties the
// buffer. It returns how many were flushed.
func (b *Buffer) Flush(to Emitter) int {
	b.mu.Lock()
	pending := b.events
	b.events = nil
	b.mu.Unlock()

	for _, ev := range pending {
		to.Emit(ev)
	}
	return len(pending)
}
