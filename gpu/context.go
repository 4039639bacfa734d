package gpu

import (
	"image"
	"sync"

	sberrors "github.com/wippyai/wasm-surface/errors"
	"github.com/wippyai/wasm-surface/surface"
)

// Context is a graphics context bound to an Instance. It draws into a frame
// buffer sized to the connected surface and presents it on request.
type Context struct {
	instance *Instance
	mu       sync.Mutex
	target   *surface.Surface
	buf      *image.RGBA
	frames   uint64
}

// NewContext creates a context bound to inst.
func NewContext(inst *Instance) *Context {
	return &Context{instance: inst}
}

// Instance returns the instance the context was created against.
func (c *Context) Instance() *Instance { return c.instance }

// Connect binds the context to s. Reconnecting replaces the previous target.
func (c *Context) Connect(s *surface.Surface) error {
	if s == nil {
		return sberrors.InvalidInput(sberrors.PhaseHost, "connect nil surface")
	}
	if s.Closed() {
		return sberrors.ChannelClosed("surface")
	}
	c.mu.Lock()
	c.target = s
	c.buf = nil
	c.mu.Unlock()
	return nil
}

// Connected reports whether a surface is bound.
func (c *Context) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target != nil
}

// CurrentBuffer returns the frame buffer for the next Present, reallocating
// it when the surface size changed.
func (c *Context) CurrentBuffer() (*image.RGBA, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bufferLocked()
}

func (c *Context) bufferLocked() (*image.RGBA, error) {
	if c.target == nil {
		return nil, ErrNotConnected
	}
	w, h := c.target.Size()
	if w <= 0 || h <= 0 || w > MaxTextureDimension || h > MaxTextureDimension {
		return nil, ErrInvalidTexture
	}
	if c.buf == nil || c.buf.Rect.Dx() != w || c.buf.Rect.Dy() != h {
		c.buf = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	return c.buf, nil
}

// Present shows the current frame buffer on the connected surface.
func (c *Context) Present() error {
	c.mu.Lock()
	buf, err := c.bufferLocked()
	target := c.target
	if err == nil {
		c.frames++
	}
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return target.Present(buf)
}

// Frames returns the number of Present calls that reached the surface.
func (c *Context) Frames() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

// Drop implements resource.Dropper.
func (c *Context) Drop() {
	c.mu.Lock()
	c.target = nil
	c.buf = nil
	c.mu.Unlock()
}
