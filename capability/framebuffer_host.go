package capability

import (
	"context"
	"errors"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-surface/gpu"
	"github.com/wippyai/wasm-surface/resource"
)

// frameBuffer is the guest's view of a context's current buffer. It resolves
// the buffer on every call so a resized surface never leaves a stale image.
type frameBuffer struct {
	context *gpu.Context
}

// FrameBufferHost exposes wasi:frame-buffer/frame-buffer.
type FrameBufferHost struct {
	state *HostState
}

func NewFrameBufferHost(state *HostState) *FrameBufferHost {
	return &FrameBufferHost{state: state}
}

func (h *FrameBufferHost) Namespace() string { return NamespaceFrameBuffer }

// GetBuffer returns the frame buffer handle of context c. Repeated calls
// return the same handle. It returns 0 for an invalid or unconnected context.
func (h *FrameBufferHost) GetBuffer(_ context.Context, _ api.Module, c uint32) uint32 {
	gc, ok := h.state.Context(c)
	if !ok || !gc.Connected() {
		return 0
	}

	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	if fb, ok := h.state.buffers[resource.Handle(c)]; ok {
		return uint32(fb)
	}
	fb := h.state.table.Insert(resource.KindFrameBuffer, &frameBuffer{context: gc})
	if fb != 0 {
		h.state.buffers[resource.Handle(c)] = fb
	}
	return uint32(fb)
}

// Fill paints the whole buffer with a packed 0xRRGGBBAA color.
func (h *FrameBufferHost) Fill(_ context.Context, _ api.Module, b, rgba uint32) uint32 {
	fb, ok := resource.Typed[*frameBuffer](h.state.table, resource.Handle(b), resource.KindFrameBuffer)
	if !ok {
		return StatusInvalidHandle
	}
	img, err := fb.context.CurrentBuffer()
	if err != nil {
		return bufferStatus(err)
	}
	gpu.Fill(img, rgba)
	return StatusOK
}

// Write copies size bytes of RGBA pixels from guest memory at ptr into the
// buffer at byte offset.
func (h *FrameBufferHost) Write(_ context.Context, mod api.Module, b, offset, ptr, size uint32) uint32 {
	fb, ok := resource.Typed[*frameBuffer](h.state.table, resource.Handle(b), resource.KindFrameBuffer)
	if !ok {
		return StatusInvalidHandle
	}
	img, err := fb.context.CurrentBuffer()
	if err != nil {
		return bufferStatus(err)
	}
	data, ok := readGuest(mod, ptr, size)
	if !ok {
		return StatusOutOfBounds
	}
	if err := gpu.WritePixels(img, int(offset), data); err != nil {
		return StatusOutOfBounds
	}
	return StatusOK
}

func bufferStatus(err error) uint32 {
	if errors.Is(err, gpu.ErrNotConnected) {
		return StatusNotConnected
	}
	return StatusFailed
}
