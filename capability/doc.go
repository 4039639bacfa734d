// Package capability implements the host side of a guest session: the store
// state a guest reaches through its imports, and the host modules that expose
// surfaces, graphics contexts, frame buffers and the GPU instance.
//
// A HostState exists once per session. It owns the session's capability
// table, shares the process-wide gpu.Instance and the session's surface.Slot,
// and routes work that must run on the UI goroutine through a Dispatcher.
//
// Guest-visible functions pass only u32 values. Handles index the session's
// capability table. Functions that report a status return one of the Status
// constants; a surface requested before the host deposited one traps the
// guest with a handoff violation.
package capability
