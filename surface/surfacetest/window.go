// Package surfacetest provides an in-memory Window for tests and headless
// embedders.
package surfacetest

import (
	"image"
	"sync"
	"sync/atomic"

	"github.com/wippyai/wasm-surface/surface"
)

var nextID atomic.Uint64

// Window is a surface.Window that records visibility and presented frames.
type Window struct {
	mu       sync.Mutex
	id       surface.WindowID
	width    int
	height   int
	visible  bool
	frames   int
	last     *image.RGBA
	presentC chan struct{}
	err      error
}

// NewWindow creates a visible window with a process-unique ID.
func NewWindow(width, height int) *Window {
	return &Window{
		id:       surface.WindowID(nextID.Add(1)),
		width:    width,
		height:   height,
		visible:  true,
		presentC: make(chan struct{}, 1),
	}
}

func (w *Window) ID() surface.WindowID { return w.id }

func (w *Window) Size() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width, w.height
}

// Resize changes the reported size.
func (w *Window) Resize(width, height int) {
	w.mu.Lock()
	w.width, w.height = width, height
	w.mu.Unlock()
}

func (w *Window) SetVisible(visible bool) {
	w.mu.Lock()
	w.visible = visible
	w.mu.Unlock()
}

// Visible reports the last SetVisible value.
func (w *Window) Visible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible
}

// FailPresent makes subsequent Present calls return err.
func (w *Window) FailPresent(err error) {
	w.mu.Lock()
	w.err = err
	w.mu.Unlock()
}

func (w *Window) Present(img *image.RGBA) error {
	w.mu.Lock()
	if w.err != nil {
		err := w.err
		w.mu.Unlock()
		return err
	}
	cp := image.NewRGBA(img.Rect)
	copy(cp.Pix, img.Pix)
	w.last = cp
	w.frames++
	w.mu.Unlock()

	select {
	case w.presentC <- struct{}{}:
	default:
	}
	return nil
}

// Frames returns how many frames were presented.
func (w *Window) Frames() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}

// Last returns a copy of the most recently presented frame, or nil.
func (w *Window) Last() *image.RGBA {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// Presented is signalled after each Present, coalesced.
func (w *Window) Presented() <-chan struct{} { return w.presentC }

var _ surface.Window = (*Window)(nil)
