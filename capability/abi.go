package capability

import (
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wasm-surface/linker"
)

// Status codes returned to the guest.
const (
	StatusOK            uint32 = 0
	StatusInvalidHandle uint32 = 1
	StatusNotConnected  uint32 = 2
	StatusOutOfBounds   uint32 = 3
	StatusFailed        uint32 = 4
)

// Interfaces a session can grant.
const (
	NamespaceSurface         = "wasi:surface/surface"
	NamespaceGraphicsContext = "wasi:graphics-context/graphics-context"
	NamespaceFrameBuffer     = "wasi:frame-buffer/frame-buffer"
	NamespaceWebGPU          = "wasi:webgpu/webgpu"
)

// Namespaces lists every grantable interface.
func Namespaces() []string {
	return []string{
		NamespaceSurface,
		NamespaceGraphicsContext,
		NamespaceFrameBuffer,
		NamespaceWebGPU,
	}
}

func u32s(n int) []wit.Type {
	out := make([]wit.Type, n)
	for i := range out {
		out[i] = wit.U32{}
	}
	return out
}

func sig(params, results int) linker.Signature {
	return linker.Signature{Params: u32s(params), Results: u32s(results)}
}

// Manifest describes the guest-visible signature of every capability function.
func Manifest() linker.Manifest {
	return linker.Manifest{
		NamespaceSurface: {
			"create-surface": sig(2, 1),
			"width":          sig(1, 1),
			"height":         sig(1, 1),
			"poll-frame":     sig(1, 1),
			"wait-frame":     sig(1, 1),
			"poll-event":     sig(2, 1),
			"drop-surface":   sig(1, 1),
		},
		NamespaceGraphicsContext: {
			"create-context": sig(0, 1),
			"connect":        sig(2, 1),
			"present":        sig(1, 1),
			"drop-context":   sig(1, 1),
		},
		NamespaceFrameBuffer: {
			"get-buffer": sig(1, 1),
			"fill":       sig(2, 1),
			"write":      sig(4, 1),
		},
		NamespaceWebGPU: {
			"get-gpu":         sig(0, 1),
			"request-adapter": sig(1, 1),
			"request-device":  sig(1, 1),
		},
	}
}
