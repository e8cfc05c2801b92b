package execution

import (
	"sync"

	"github.com/ducminhle1904/futures-executor/internal/monitoring"
	"github.com/ducminhle1904/futures-executor/pkg/types"
)

// broadcaster fans results out to subscribers without ever blocking the
// publisher. A full subscriber buffer drops the event.
type broadcaster struct {
	mu     sync.RWMutex
	subs   []chan types.ExecutionResult
	closed bool
}

func (b *broadcaster) subscribe(buffer int) <-chan types.ExecutionResult {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan types.ExecutionResult, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

func (b *broadcaster) publish(res types.ExecutionResult) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- res:
		default:
			monitoring.RecordDroppedEvent()
		}
	}
}

func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
}
