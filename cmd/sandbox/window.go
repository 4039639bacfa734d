package main

import (
	"image"
	"sync"
	"sync/atomic"

	"github.com/wippyai/wasm-surface/surface"
)

var nextWindowID atomic.Uint64

// window is the child window a guest draws into. The terminal UI renders its
// last frame; headless mode only counts frames.
type window struct {
	id surface.WindowID

	mu      sync.Mutex
	width   int
	height  int
	visible bool
	frame   *image.RGBA
	frames  uint64
}

func newWindow(width, height int) *window {
	return &window{
		id:     surface.WindowID(nextWindowID.Add(1)),
		width:  width,
		height: height,
	}
}

func (w *window) ID() surface.WindowID { return w.id }

func (w *window) Size() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width, w.height
}

func (w *window) SetVisible(visible bool) {
	w.mu.Lock()
	w.visible = visible
	w.mu.Unlock()
}

// Present keeps a copy of img; the guest reuses its buffer.
func (w *window) Present(img *image.RGBA) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.frame == nil || w.frame.Rect != img.Rect {
		w.frame = image.NewRGBA(img.Rect)
	}
	copy(w.frame.Pix, img.Pix)
	w.frames++
	return nil
}

func (w *window) resize(width, height int) {
	w.mu.Lock()
	w.width, w.height = width, height
	w.mu.Unlock()
}

// snapshot returns a copy of the last frame and whether the window is shown.
func (w *window) snapshot() (*image.RGBA, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.frame == nil {
		return nil, w.visible
	}
	cp := image.NewRGBA(w.frame.Rect)
	copy(cp.Pix, w.frame.Pix)
	return cp, w.visible
}

func (w *window) presented() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}
