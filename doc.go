// Package wasmsurface is a capability-scoped WebAssembly sandbox host.
//
// A guest module runs in its own session with only the capabilities it was
// granted: a native drawing surface, graphics contexts and frame buffers on
// top of it, and the process-wide GPU instance. The embedding UI owns the
// windows and stays responsive while guests run, spin, trap or misbehave.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	wasmsurface/
//	├── lifecycle/       Spawn and stop coordination, animation pump, stop signal
//	├── runtime/         One session: wazero runtime, linker, WASI stdio, guest thread
//	├── capability/      Per-session host state, capability hosts, UI task dispatch
//	├── surface/         Windows, surfaces, the handoff slot, surface events
//	├── gpu/             Shared software GPU instance and graphics contexts
//	├── resource/        Capability handle table
//	├── linker/          Binds capability hosts into a wazero runtime
//	├── errors/          Structured error taxonomy
//	├── config/          YAML and environment configuration
//	├── logging/         zap logger construction
//	├── metrics/         Prometheus collectors
//	├── tracing/         OpenTelemetry spans
//	├── internal/wasmbin In-process encoder for small guest modules
//	└── cmd/sandbox/     Terminal embedder
//
// # Quick Start
//
// Spawn a guest into a window and drain UI work from the UI loop:
//
//	queue := capability.NewUIQueue(cfg.UI.QueueSize)
//	coord, err := lifecycle.New(ctx, lifecycle.Options{
//	    Config:     cfg,
//	    Logger:     logger,
//	    Dispatcher: queue,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer coord.Close(ctx)
//
//	err = coord.Spawn(ctx, lifecycle.SpawnRequest{
//	    ModulePath: "guest.wasm",
//	    Window:     win,
//	})
//
//	for range frames {
//	    queue.Drain()
//	}
//
// # Thread Safety
//
// Coordinator methods are safe for concurrent use and are serialized
// internally. A Session belongs to one guest goroutine. Capability work that
// must happen on the UI goroutine is queued through a capability.Dispatcher
// and runs when the embedder drains it.
//
// # Stopping
//
// Stopping never waits for the guest. The surface is closed, the pump and
// input forwarder are joined, and a guest that ignores the closed surface
// is abandoned to its goroutine unless runtime cancellation is enabled.
package wasmsurface
