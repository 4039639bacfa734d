package capability

import (
	"github.com/wippyai/wasm-surface/linker"
)

// Hosts returns the host modules for the granted namespaces, in a stable
// order. An empty grant list grants everything.
func Hosts(state *HostState, granted []string) []linker.Host {
	all := []linker.Host{
		NewSurfaceHost(state),
		NewGraphicsContextHost(state),
		NewFrameBufferHost(state),
		NewWebGPUHost(state),
	}
	if len(granted) == 0 {
		return all
	}

	allow := make(map[string]bool, len(granted))
	for _, ns := range granted {
		allow[ns] = true
	}
	hosts := make([]linker.Host, 0, len(all))
	for _, h := range all {
		if allow[h.Namespace()] {
			hosts = append(hosts, h)
		}
	}
	return hosts
}
