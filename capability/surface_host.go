package capability

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-surface/resource"
	"github.com/wippyai/wasm-surface/surface"
)

// SurfaceHost exposes wasi:surface/surface.
type SurfaceHost struct {
	state *HostState
}

func NewSurfaceHost(state *HostState) *SurfaceHost {
	return &SurfaceHost{state: state}
}

func (h *SurfaceHost) Namespace() string { return NamespaceSurface }

// CreateSurface hands the deposited surface to the guest. The requested size
// is advisory; the window decides. An empty slot traps the guest.
func (h *SurfaceHost) CreateSurface(_ context.Context, _ api.Module, width, height uint32) uint32 {
	handle, err := h.state.CreateSurface()
	if err != nil {
		panic(err)
	}
	h.state.logger.Debug("guest requested surface",
		zap.Uint32("width", width),
		zap.Uint32("height", height))
	return uint32(handle)
}

// Width returns the surface width in pixels, or 0 for an invalid handle.
func (h *SurfaceHost) Width(_ context.Context, _ api.Module, s uint32) uint32 {
	sf, ok := h.state.Surface(s)
	if !ok {
		return 0
	}
	w, _ := sf.Size()
	return uint32(w)
}

// Height returns the surface height in pixels, or 0 for an invalid handle.
func (h *SurfaceHost) Height(_ context.Context, _ api.Module, s uint32) uint32 {
	sf, ok := h.state.Surface(s)
	if !ok {
		return 0
	}
	_, ht := sf.Size()
	return uint32(ht)
}

// PollFrame returns 1 and consumes the pending frame tick if there is one.
func (h *SurfaceHost) PollFrame(_ context.Context, _ api.Module, s uint32) uint32 {
	sf, ok := h.state.Surface(s)
	if !ok || !sf.PollFrame() {
		return 0
	}
	return 1
}

// WaitFrame blocks until the next frame tick and returns 1. It returns 0 once
// the surface closes or the session stops; the guest should then exit.
func (h *SurfaceHost) WaitFrame(ctx context.Context, _ api.Module, s uint32) uint32 {
	sf, ok := h.state.Surface(s)
	if !ok {
		return 0
	}
	h.state.table.Borrow(resource.Handle(s))
	defer h.state.table.ReturnBorrow(resource.Handle(s))
	if !sf.WaitFrame(ctx) {
		return 0
	}
	return 1
}

// PollEvent writes the next input event to ptr and returns 1, or returns 0
// when no event is pending or the write would fall outside guest memory.
func (h *SurfaceHost) PollEvent(_ context.Context, mod api.Module, s, ptr uint32) uint32 {
	sf, ok := h.state.Surface(s)
	if !ok {
		return 0
	}
	if mem := mod.Memory(); mem == nil || uint64(ptr)+surface.EventSize > uint64(mem.Size()) {
		return 0
	}
	e, ok := sf.PollEvent()
	if !ok {
		return 0
	}
	if !writeGuest(mod, ptr, e.Bytes()) {
		return 0
	}
	return 1
}

// DropSurface releases the guest's handle. The surface itself lives until the
// session stops.
func (h *SurfaceHost) DropSurface(_ context.Context, _ api.Module, s uint32) uint32 {
	if _, ok := h.state.Surface(s); !ok {
		return StatusInvalidHandle
	}
	if _, ok := h.state.table.Remove(resource.Handle(s)); !ok {
		return StatusFailed
	}
	return StatusOK
}
