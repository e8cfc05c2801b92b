package execution

import (
	"strings"
	"sync"

	"github.com/ducminhle1904/futures-executor/pkg/types"
)

// SlotKey identifies one exchange position slot
type SlotKey struct {
	Symbol string
	Index  types.PositionIndex
}

func NewSlotKey(symbol string, idx types.PositionIndex) SlotKey {
	return SlotKey{Symbol: strings.ToUpper(symbol), Index: idx}
}

func (k SlotKey) String() string {
	return k.Symbol + "/" + k.Index.String()
}

// SlotRegistry allows at most one in-flight execution per slot. Acquisition
// never waits: a busy slot means the caller drops its signal.
type SlotRegistry struct {
	mu    sync.Mutex
	slots map[SlotKey]types.ExecutionState
}

func NewSlotRegistry() *SlotRegistry {
	return &SlotRegistry{slots: make(map[SlotKey]types.ExecutionState)}
}

// TryAcquire claims key and reports whether it was free
func (r *SlotRegistry) TryAcquire(key SlotKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.slots[key]; busy {
		return false
	}
	r.slots[key] = types.StateIdle
	return true
}

// Transition records the state of a held slot
func (r *SlotRegistry) Transition(key SlotKey, state types.ExecutionState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, held := r.slots[key]; held {
		r.slots[key] = state
	}
}

// Release frees key; its state returns to IDLE
func (r *SlotRegistry) Release(key SlotKey) {
	r.mu.Lock()
	delete(r.slots, key)
	r.mu.Unlock()
}

// State returns the current state of key
func (r *SlotRegistry) State(key SlotKey) types.ExecutionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, held := r.slots[key]; held {
		return st
	}
	return types.StateIdle
}

// InFlight returns the number of held slots
func (r *SlotRegistry) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}
