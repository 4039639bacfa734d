package capability

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-surface/gpu"
	"github.com/wippyai/wasm-surface/resource"
)

// WebGPUHost exposes wasi:webgpu/webgpu backed by the shared instance.
type WebGPUHost struct {
	state *HostState
}

func NewWebGPUHost(state *HostState) *WebGPUHost {
	return &WebGPUHost{state: state}
}

func (h *WebGPUHost) Namespace() string { return NamespaceWebGPU }

// GetGPU returns a handle to the process-wide GPU instance.
func (h *WebGPUHost) GetGPU(_ context.Context, _ api.Module) uint32 {
	return uint32(h.state.table.Insert(resource.KindGPU, h.state.GPUInstance()))
}

// RequestAdapter returns an adapter handle for GPU handle g, or 0.
func (h *WebGPUHost) RequestAdapter(_ context.Context, _ api.Module, g uint32) uint32 {
	inst, ok := resource.Typed[*gpu.Instance](h.state.table, resource.Handle(g), resource.KindGPU)
	if !ok {
		return 0
	}
	adapter, err := inst.RequestAdapter()
	if err != nil {
		h.state.logger.Warn("request adapter failed", zap.Error(err))
		return 0
	}
	return uint32(h.state.table.Insert(resource.KindGPUAdapter, adapter))
}

// RequestDevice opens a device on adapter a. Device creation runs on the UI
// goroutine; the guest blocks until it completes. Returns 0 on failure.
func (h *WebGPUHost) RequestDevice(ctx context.Context, _ api.Module, a uint32) uint32 {
	adapter, ok := resource.Typed[*gpu.Adapter](h.state.table, resource.Handle(a), resource.KindGPUAdapter)
	if !ok {
		return 0
	}
	v, err := h.state.DispatchOnUI(ctx, func() (any, error) {
		return adapter.RequestDevice(fmt.Sprintf("session-%s", h.state.ID()))
	})
	if err != nil {
		h.state.logger.Warn("request device failed", zap.Error(err))
		return 0
	}
	dev, ok := v.(*gpu.Device)
	if !ok {
		return 0
	}
	return uint32(h.state.table.Insert(resource.KindGPUDevice, dev))
}
