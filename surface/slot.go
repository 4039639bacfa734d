package surface

import (
	"sync"

	sberrors "github.com/wippyai/wasm-surface/errors"
)

// Slot passes one Surface from the spawning goroutine to the guest session.
// It holds at most one surface; Take never fabricates one.
type Slot struct {
	mu      sync.Mutex
	surface *Surface
}

// NewSlot returns an empty slot.
func NewSlot() *Slot {
	return &Slot{}
}

// Deposit stores s. Depositing into a full slot is a handoff violation.
func (sl *Slot) Deposit(s *Surface) error {
	if s == nil {
		return sberrors.InvalidInput(sberrors.PhaseHandoff, "deposit nil surface")
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.surface != nil {
		return sberrors.HandoffViolation("slot already holds a surface")
	}
	sl.surface = s
	return nil
}

// Take removes and returns the deposited surface. Taking from an empty slot
// is a handoff violation.
func (sl *Slot) Take() (*Surface, error) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.surface == nil {
		return nil, sberrors.HandoffViolation("surface slot is empty")
	}
	s := sl.surface
	sl.surface = nil
	return s, nil
}

// Full reports whether a surface is waiting to be taken.
func (sl *Slot) Full() bool {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.surface != nil
}

// Drain empties the slot during teardown and returns what it held, if any.
func (sl *Slot) Drain() *Surface {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	s := sl.surface
	sl.surface = nil
	return s
}
