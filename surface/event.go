package surface

import (
	"encoding/binary"
	"fmt"
)

// EventKind identifies an input event delivered to the guest.
type EventKind uint32

const (
	EventNone EventKind = iota
	EventKeyDown
	EventKeyUp
	EventPointerMove
	EventPointerDown
	EventPointerUp
	EventResize
	EventFocus
)

func (k EventKind) String() string {
	switch k {
	case EventNone:
		return "none"
	case EventKeyDown:
		return "key-down"
	case EventKeyUp:
		return "key-up"
	case EventPointerMove:
		return "pointer-move"
	case EventPointerDown:
		return "pointer-down"
	case EventPointerUp:
		return "pointer-up"
	case EventResize:
		return "resize"
	case EventFocus:
		return "focus"
	}
	return fmt.Sprintf("event(%d)", uint32(k))
}

// EventSize is the size of an encoded Event in guest memory.
const EventSize = 16

// Event is an input event forwarded from the UI goroutine to the guest.
type Event struct {
	Kind EventKind
	X    int32
	Y    int32
	Code uint32
}

// Encode writes e into b as four little-endian u32 words: kind, x, y, code.
// b must be at least EventSize bytes.
func (e Event) Encode(b []byte) {
	_ = b[EventSize-1]
	binary.LittleEndian.PutUint32(b[0:], uint32(e.Kind))
	binary.LittleEndian.PutUint32(b[4:], uint32(e.X))
	binary.LittleEndian.PutUint32(b[8:], uint32(e.Y))
	binary.LittleEndian.PutUint32(b[12:], e.Code)
}

// Bytes returns the guest encoding of e.
func (e Event) Bytes() []byte {
	b := make([]byte, EventSize)
	e.Encode(b)
	return b
}

// DecodeEvent reads an Event previously written by Encode.
func DecodeEvent(b []byte) (Event, error) {
	if len(b) < EventSize {
		return Event{}, fmt.Errorf("event: need %d bytes, have %d", EventSize, len(b))
	}
	return Event{
		Kind: EventKind(binary.LittleEndian.Uint32(b[0:])),
		X:    int32(binary.LittleEndian.Uint32(b[4:])),
		Y:    int32(binary.LittleEndian.Uint32(b[8:])),
		Code: binary.LittleEndian.Uint32(b[12:]),
	}, nil
}
