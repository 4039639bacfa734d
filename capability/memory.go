package capability

import (
	"github.com/tetratelabs/wazero/api"
)

// readGuest copies size bytes from guest memory at ptr.
func readGuest(mod api.Module, ptr, size uint32) ([]byte, bool) {
	if size == 0 {
		return nil, true
	}
	mem := mod.Memory()
	if mem == nil {
		return nil, false
	}
	buf, ok := mem.Read(ptr, size)
	if !ok {
		return nil, false
	}
	out := make([]byte, size)
	copy(out, buf)
	return out, true
}

// writeGuest copies data into guest memory at ptr.
func writeGuest(mod api.Module, ptr uint32, data []byte) bool {
	mem := mod.Memory()
	if mem == nil {
		return false
	}
	return mem.Write(ptr, data)
}
