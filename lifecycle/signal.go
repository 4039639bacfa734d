package lifecycle

import "sync"

// StopSignal is a pair of single-use stop notifications, one for the
// animation pump and one for the input forwarder. Every session gets a new
// pair so a stale stop can never reach a later session.
type StopSignal struct {
	pump   chan struct{}
	helper chan struct{}
	once   sync.Once
}

// NewStopSignal creates an unsignalled pair.
func NewStopSignal() *StopSignal {
	return &StopSignal{
		pump:   make(chan struct{}),
		helper: make(chan struct{}),
	}
}

// Pump is closed when the pump should exit.
func (s *StopSignal) Pump() <-chan struct{} { return s.pump }

// Helper is closed when the input forwarder should exit.
func (s *StopSignal) Helper() <-chan struct{} { return s.helper }

// Notify signals both receivers. It never blocks and may be called any
// number of times, including after the receivers exited.
func (s *StopSignal) Notify() {
	s.once.Do(func() {
		close(s.pump)
		close(s.helper)
	})
}

// Stopped reports whether Notify was called.
func (s *StopSignal) Stopped() bool {
	select {
	case <-s.pump:
		return true
	default:
		return false
	}
}
