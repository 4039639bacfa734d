package capability

import (
	"context"
	"errors"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-surface/gpu"
	"github.com/wippyai/wasm-surface/resource"
)

// GraphicsContextHost exposes wasi:graphics-context/graphics-context.
type GraphicsContextHost struct {
	state *HostState
}

func NewGraphicsContextHost(state *HostState) *GraphicsContextHost {
	return &GraphicsContextHost{state: state}
}

func (h *GraphicsContextHost) Namespace() string { return NamespaceGraphicsContext }

// CreateContext returns a new graphics context handle.
func (h *GraphicsContextHost) CreateContext(_ context.Context, _ api.Module) uint32 {
	return uint32(h.state.CreateGraphicsContext())
}

// Connect binds context c to surface s.
func (h *GraphicsContextHost) Connect(_ context.Context, _ api.Module, c, s uint32) uint32 {
	gc, ok := h.state.Context(c)
	if !ok {
		return StatusInvalidHandle
	}
	sf, ok := h.state.Surface(s)
	if !ok {
		return StatusInvalidHandle
	}
	if err := gc.Connect(sf); err != nil {
		h.state.logger.Debug("connect failed", zap.Error(err))
		return StatusFailed
	}
	return StatusOK
}

// Present shows the context's current frame buffer.
func (h *GraphicsContextHost) Present(_ context.Context, _ api.Module, c uint32) uint32 {
	gc, ok := h.state.Context(c)
	if !ok {
		return StatusInvalidHandle
	}
	if err := gc.Present(); err != nil {
		if errors.Is(err, gpu.ErrNotConnected) {
			return StatusNotConnected
		}
		h.state.logger.Debug("present failed", zap.Error(err))
		return StatusFailed
	}
	return StatusOK
}

// DropContext releases a context and its frame buffer handle.
func (h *GraphicsContextHost) DropContext(_ context.Context, _ api.Module, c uint32) uint32 {
	if _, ok := h.state.Context(c); !ok {
		return StatusInvalidHandle
	}
	h.state.mu.Lock()
	fb, hasBuffer := h.state.buffers[resource.Handle(c)]
	delete(h.state.buffers, resource.Handle(c))
	h.state.mu.Unlock()

	if hasBuffer {
		h.state.table.Remove(fb)
	}
	if _, ok := h.state.table.Remove(resource.Handle(c)); !ok {
		return StatusFailed
	}
	return StatusOK
}
