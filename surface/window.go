package surface

import "image"

// WindowID identifies a native window owned by the embedder.
type WindowID uint64

// Window is the embedder's native window that backs a Surface.
// SetVisible and Present may be called from any goroutine.
type Window interface {
	ID() WindowID
	Size() (width, height int)
	SetVisible(visible bool)
	Present(img *image.RGBA) error
}
