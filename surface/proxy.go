package surface

import (
	"go.uber.org/zap"

	sberrors "github.com/wippyai/wasm-surface/errors"
)

// Proxy wakes and feeds a Surface from other goroutines. Copies are
// independent clones referring to the same surface.
type Proxy struct {
	s *Surface
}

// Valid reports whether p refers to a surface.
func (p Proxy) Valid() bool { return p.s != nil }

// ID returns the window identity of the proxied surface.
func (p Proxy) ID() WindowID {
	if p.s == nil {
		return 0
	}
	return p.s.ID()
}

// TickFrame schedules a redraw. Ticks coalesce: at most one is pending.
func (p Proxy) TickFrame() error {
	if p.s == nil || p.s.Closed() {
		return sberrors.ChannelClosed("surface frame queue")
	}
	select {
	case p.s.frames <- struct{}{}:
		p.s.ticks.Add(1)
	default:
	}
	return nil
}

// ForwardEvent queues an input event for the guest. It never blocks.
// Pointer motion past the configured rate and events arriving while the
// queue is full return ErrEventDropped.
func (p Proxy) ForwardEvent(e Event) error {
	if p.s == nil || p.s.Closed() {
		return sberrors.ChannelClosed("surface event queue")
	}
	if e.Kind == EventPointerMove && p.s.limiter != nil && !p.s.limiter.Allow() {
		return ErrEventDropped
	}
	select {
	case p.s.events <- e:
		return nil
	default:
		p.s.logger.Debug("event queue full", zap.Stringer("kind", e.Kind))
		return ErrEventDropped
	}
}
