// Package lifecycle coordinates guest sessions for an embedding UI.
//
// A Coordinator runs at most one guest at a time. Spawning hands a window to
// a pre-built runtime.Session, starts the guest goroutine, an animation Pump
// and an input forwarder, and records the window as active. Stopping notifies
// the session's StopSignal, hides and detaches the window and builds a fresh
// session for the next spawn. The guest goroutine is never joined: a stopped
// guest finishes on its own and its result is discarded.
//
//	Idle -> Spawning -> Running -> StopRequested -> Idle
package lifecycle
