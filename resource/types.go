package resource

import "errors"

var (
	ErrClosed            = errors.New("capability table closed")
	ErrFull              = errors.New("capability table full")
	ErrInvalidHandle     = errors.New("invalid capability handle")
	ErrOutstandingBorrow = errors.New("cannot drop capability with outstanding borrows")
)

// Handle is an opaque guest-visible reference to a capability. The low 24
// bits select a slot and the high 8 bits carry the slot's generation, so a
// handle kept after its capability was dropped never resolves to whatever
// reuses the slot. Handle 0 is reserved and always invalid.
type Handle uint32

const (
	indexBits  = 24
	indexMask  = 1<<indexBits - 1
	maxEntries = indexMask
)

func makeHandle(index int, gen uint8) Handle {
	return Handle(uint32(gen)<<indexBits | uint32(index+1))
}

func (h Handle) index() int { return int(h&indexMask) - 1 }
func (h Handle) gen() uint8 { return uint8(h >> indexBits) }
func (h Handle) valid() bool { return h&indexMask != 0 }

// Kind identifies what a handle refers to.
type Kind uint8

const (
	KindSurface Kind = iota + 1
	KindGraphicsContext
	KindFrameBuffer
	KindGPU
	KindGPUAdapter
	KindGPUDevice
)

func (k Kind) String() string {
	switch k {
	case KindSurface:
		return "surface"
	case KindGraphicsContext:
		return "graphics-context"
	case KindFrameBuffer:
		return "frame-buffer"
	case KindGPU:
		return "gpu"
	case KindGPUAdapter:
		return "gpu-adapter"
	case KindGPUDevice:
		return "gpu-device"
	}
	return "unknown"
}

// EventType identifies a capability lifecycle notification.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
	EventBorrowed
	EventBorrowReturned
)

// Event represents a capability lifecycle event.
type Event struct {
	Owner  string
	Handle Handle
	Kind   Kind
	Type   EventType
}

// Observer receives notifications about capability lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// Dropper is optionally implemented by values that need cleanup when their
// handle is dropped or the table closes.
type Dropper interface {
	Drop()
}

// Table is the guest-visible capability store of one session.
type Table interface {
	Insert(kind Kind, value any) Handle
	Get(handle Handle) (any, bool)
	GetTyped(handle Handle, kind Kind) (any, bool)
	Remove(handle Handle) (any, bool)
	Borrow(handle Handle) bool
	ReturnBorrow(handle Handle) bool
	Owner() string
	Len() int
	Close() error
}

// Typed looks up a handle and asserts both its kind and Go type.
func Typed[T any](t Table, handle Handle, kind Kind) (T, bool) {
	var zero T
	v, ok := t.GetTyped(handle, kind)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
