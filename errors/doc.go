// Package errors provides structured error types for the sandbox host.
//
// Errors are categorized by Phase (where in the session lifecycle the error
// occurred) and Kind (error category). The Error type carries the capability
// involved, the session ID and a cause chain.
//
// The sandbox taxonomy:
//
//	configuration      capability registration failed; no goroutine started
//	module_not_found   guest module missing or not a WebAssembly binary
//	instantiation      import mismatch or ungranted capability
//	guest_trap         guest crashed while running
//	entry_point        entry point missing or guest exited non-zero
//	handoff_violation  surface taken from an empty slot (or deposited twice)
//	channel_closed     signal receiver already gone; benign
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseHost, errors.KindInvalidHandle).
//		Capability("wasi:surface/surface#width").
//		Session(id).
//		Detail("handle %d", h).
//		Build()
//
// All errors implement the standard error interface and support errors.Is/As.
// Sentinels such as ErrHandoffViolation match on Kind regardless of Phase:
//
//	if errors.Is(err, sberrors.ErrHandoffViolation) { ... }
package errors
