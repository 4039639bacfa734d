// Package runtime runs one guest module inside one session.
//
// A Session is a fresh, isolated execution context: its own wazero runtime,
// its own linker with the granted capabilities bound to a fresh
// capability.HostState, and WASI preview1 for guest stdio. Sessions are
// single use; build a new one for every guest run.
//
//	sess, err := runtime.New(ctx, cfg.Runtime, runtime.Options{Logger: log})
//	if err != nil {
//	    return err // configuration error, nothing started
//	}
//	guest, err := sess.Load(ctx, "app.wasm", surf)
//	if err != nil {
//	    return err // module not found or instantiation error
//	}
//	go func() { done <- guest.Call(ctx) }()
//
// # Loading
//
// Load deposits the surface into the session's handoff slot before compiling
// or instantiating anything, so the guest always finds it. Start functions
// are not run at instantiation; the entry point runs only from Call.
//
// # Errors
//
// Call classifies the outcome: nil for a clean return or exit code 0,
// EntryPointFailure for a missing entry point or non-zero exit, GuestTrap
// for a trap, Cancelled when the session was stopped. A handoff violation
// recorded during the call is returned in preference to the trap it caused.
package runtime
