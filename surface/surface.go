package surface

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	sberrors "github.com/wippyai/wasm-surface/errors"
)

// ErrEventDropped is returned by ForwardEvent when an event was discarded
// because the queue was full or pointer motion exceeded its rate.
var ErrEventDropped = errors.New("surface: event dropped")

// Options configures a Surface.
type Options struct {
	Logger *zap.Logger

	// EventQueue bounds the pending input events. 0 means 64.
	EventQueue int

	// PointerRate limits pointer-move events per second. 0 disables the limit.
	PointerRate float64

	// PointerBurst is the pointer-move burst size. 0 means 1.
	PointerBurst int
}

// DefaultOptions returns the options used by the sandbox host.
func DefaultOptions() Options {
	return Options{
		EventQueue:   64,
		PointerRate:  120,
		PointerBurst: 8,
	}
}

// Surface is a drawing target bound to one Window.
type Surface struct {
	window    Window
	logger    *zap.Logger
	limiter   *rate.Limiter
	frames    chan struct{}
	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
	presented atomic.Uint64
	ticks     atomic.Uint64
}

// New creates a surface for w. Call it on the UI goroutine.
func New(w Window, opts Options) (*Surface, error) {
	if w == nil {
		return nil, sberrors.InvalidInput(sberrors.PhaseHandoff, "surface needs a window")
	}
	if opts.EventQueue <= 0 {
		opts.EventQueue = 64
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Surface{
		window: w,
		logger: opts.Logger.With(zap.Uint64("window", uint64(w.ID()))),
		frames: make(chan struct{}, 1),
		events: make(chan Event, opts.EventQueue),
		done:   make(chan struct{}),
	}
	if opts.PointerRate > 0 {
		burst := opts.PointerBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.PointerRate), burst)
	}
	return s, nil
}

// Window returns the backing window.
func (s *Surface) Window() Window { return s.window }

// ID returns the backing window's identity.
func (s *Surface) ID() WindowID { return s.window.ID() }

// Size returns the current window size in pixels.
func (s *Surface) Size() (int, int) { return s.window.Size() }

// WaitFrame blocks until a frame tick arrives. It returns false once the
// surface is closed or ctx is done.
func (s *Surface) WaitFrame(ctx context.Context) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case <-s.frames:
		return true
	case <-s.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// PollFrame consumes a pending frame tick without blocking.
func (s *Surface) PollFrame() bool {
	select {
	case <-s.frames:
		return true
	default:
		return false
	}
}

// PollEvent returns the next queued input event without blocking.
func (s *Surface) PollEvent() (Event, bool) {
	select {
	case e := <-s.events:
		return e, true
	default:
		return Event{}, false
	}
}

// Present shows img in the backing window.
func (s *Surface) Present(img *image.RGBA) error {
	if s.Closed() {
		return sberrors.ChannelClosed("surface")
	}
	if err := s.window.Present(img); err != nil {
		return err
	}
	s.presented.Add(1)
	return nil
}

// Presented returns the number of frames shown so far.
func (s *Surface) Presented() uint64 { return s.presented.Load() }

// Ticks returns the number of frame ticks accepted so far.
func (s *Surface) Ticks() uint64 { return s.ticks.Load() }

// Proxy returns a handle the host keeps after the surface moves to the guest.
func (s *Surface) Proxy() Proxy { return Proxy{s: s} }

// Done is closed when the surface closes.
func (s *Surface) Done() <-chan struct{} { return s.done }

// Closed reports whether Close was called.
func (s *Surface) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Close detaches the surface. Blocked WaitFrame calls return false and
// further proxy calls report ChannelClosed. Safe to call more than once.
func (s *Surface) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.logger.Debug("surface closed",
			zap.Uint64("ticks", s.ticks.Load()),
			zap.Uint64("presented", s.presented.Load()))
	})
}

// Drop implements resource.Dropper. Dropping a guest handle does not close
// the surface; the session owns its lifetime.
func (s *Surface) Drop() {}
