package gpu

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Backend names the rendering backend behind an Instance.
type Backend string

const BackendSoftware Backend = "software"

// MaxTextureDimension bounds texture and frame buffer edges.
const MaxTextureDimension = 8192

var (
	ErrNotConnected   = errors.New("gpu: graphics context not connected to a surface")
	ErrDeviceLost     = errors.New("gpu: device destroyed")
	ErrInvalidTexture = errors.New("gpu: invalid texture size")
)

var (
	shared     *Instance
	sharedOnce sync.Once
)

// Shared returns the process-wide instance, creating it on first use.
func Shared() *Instance {
	sharedOnce.Do(func() {
		shared = NewInstance(BackendSoftware)
	})
	return shared
}

// Instance is a GPU instance. Its identity never changes after creation.
type Instance struct {
	id       string
	backend  Backend
	adapters atomic.Int64
	devices  atomic.Int64
}

// NewInstance creates an instance. Most callers want Shared.
func NewInstance(backend Backend) *Instance {
	return &Instance{
		id:      uuid.NewString(),
		backend: backend,
	}
}

// ID returns the instance identity.
func (i *Instance) ID() string { return i.id }

// Backend returns the rendering backend.
func (i *Instance) Backend() Backend { return i.backend }

// Stats returns the number of adapters and devices handed out.
func (i *Instance) Stats() (adapters, devices int64) {
	return i.adapters.Load(), i.devices.Load()
}

// RequestAdapter returns an adapter for this instance.
func (i *Instance) RequestAdapter() (*Adapter, error) {
	n := i.adapters.Add(1)
	return &Adapter{
		instance: i,
		name:     fmt.Sprintf("%s-adapter-%d", i.backend, n),
	}, nil
}

// Adapter represents a physical or software adapter.
type Adapter struct {
	instance *Instance
	name     string
}

// Instance returns the owning instance.
func (a *Adapter) Instance() *Instance { return a.instance }

// Name returns a human-readable adapter name.
func (a *Adapter) Name() string { return a.name }

// RequestDevice opens a logical device on the adapter.
func (a *Adapter) RequestDevice(label string) (*Device, error) {
	a.instance.devices.Add(1)
	return &Device{adapter: a, label: label}, nil
}

// Device is a logical device used to allocate textures.
type Device struct {
	adapter   *Adapter
	label     string
	destroyed atomic.Bool
}

// Adapter returns the adapter the device was opened on.
func (d *Device) Adapter() *Adapter { return d.adapter }

// Label returns the label given at creation.
func (d *Device) Label() string { return d.label }

// CreateTexture allocates a width x height RGBA texture.
func (d *Device) CreateTexture(width, height int) (*image.RGBA, error) {
	if d.destroyed.Load() {
		return nil, ErrDeviceLost
	}
	if width <= 0 || height <= 0 || width > MaxTextureDimension || height > MaxTextureDimension {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidTexture, width, height)
	}
	return image.NewRGBA(image.Rect(0, 0, width, height)), nil
}

// Destroy releases the device. Further allocations fail with ErrDeviceLost.
func (d *Device) Destroy() {
	d.destroyed.Store(true)
}

// Drop implements resource.Dropper.
func (d *Device) Drop() { d.Destroy() }
