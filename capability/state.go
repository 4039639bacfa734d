package capability

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	sberrors "github.com/wippyai/wasm-surface/errors"
	"github.com/wippyai/wasm-surface/gpu"
	"github.com/wippyai/wasm-surface/resource"
	"github.com/wippyai/wasm-surface/surface"
)

// Options configures a HostState.
type Options struct {
	Logger *zap.Logger

	// Dispatcher runs UI-bound work. nil means Inline.
	Dispatcher Dispatcher

	// GPU overrides the process-wide instance. nil means gpu.Shared().
	GPU *gpu.Instance

	// OnViolation is called once per recorded handoff violation.
	OnViolation func(error)

	// MaxCapabilities caps live handles in the table. 0 means no limit.
	MaxCapabilities int

	// Observer receives the table's capability lifecycle events.
	Observer resource.Observer
}

// HostState is the per-session store state guest imports operate on.
type HostState struct {
	id          string
	table       *resource.UnifiedTable
	gpu         *gpu.Instance
	slot        *surface.Slot
	dispatcher  Dispatcher
	logger      *zap.Logger
	onViolation func(error)

	mu        sync.Mutex
	violation error
	buffers   map[resource.Handle]resource.Handle
}

// NewHostState creates the state for session id. The slot is shared with the
// spawner, which deposits the surface before the guest runs.
func NewHostState(id string, slot *surface.Slot, opts Options) *HostState {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = Inline{}
	}
	if opts.GPU == nil {
		opts.GPU = gpu.Shared()
	}
	if slot == nil {
		slot = surface.NewSlot()
	}
	return &HostState{
		id:          id,
		table:       resource.New(id, resource.WithLimit(opts.MaxCapabilities), resource.WithObserver(opts.Observer)),
		gpu:         opts.GPU,
		slot:        slot,
		dispatcher:  opts.Dispatcher,
		logger:      opts.Logger,
		onViolation: opts.OnViolation,
		buffers:     make(map[resource.Handle]resource.Handle),
	}
}

// ID returns the owning session ID.
func (h *HostState) ID() string { return h.id }

// Table returns the session's capability table.
func (h *HostState) Table() *resource.UnifiedTable { return h.table }

// Slot returns the surface handoff slot.
func (h *HostState) Slot() *surface.Slot { return h.slot }

// GPUInstance returns the shared GPU instance.
func (h *HostState) GPUInstance() *gpu.Instance { return h.gpu }

// Logger returns the session logger.
func (h *HostState) Logger() *zap.Logger { return h.logger }

// CreateSurface takes the deposited surface and registers it in the table.
// An empty slot is a handoff violation; it is recorded and returned.
func (h *HostState) CreateSurface() (resource.Handle, error) {
	s, err := h.slot.Take()
	if err != nil {
		h.recordViolation(err)
		return 0, err
	}
	handle, err := h.table.TryInsert(resource.KindSurface, s)
	switch {
	case errors.Is(err, resource.ErrFull):
		return 0, sberrors.New(sberrors.PhaseHost, sberrors.KindInvalidInput).
			Capability("surface").
			Session(h.id).
			Cause(err).
			Detail("capability limit reached").
			Build()
	case err != nil:
		return 0, sberrors.ChannelClosed("capability table")
	}
	h.logger.Debug("surface created",
		zap.Uint32("handle", uint32(handle)),
		zap.Uint64("window", uint64(s.ID())))
	return handle, nil
}

// CreateGraphicsContext registers a graphics context bound to the shared
// GPU instance.
func (h *HostState) CreateGraphicsContext() resource.Handle {
	return h.table.Insert(resource.KindGraphicsContext, gpu.NewContext(h.gpu))
}

// DispatchOnUI runs task on the UI goroutine and returns its result.
func (h *HostState) DispatchOnUI(ctx context.Context, task Task) (any, error) {
	return h.dispatcher.Dispatch(ctx, task)
}

// Violation returns the first handoff violation recorded, if any.
func (h *HostState) Violation() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.violation
}

func (h *HostState) recordViolation(err error) {
	h.mu.Lock()
	first := h.violation == nil
	if first {
		h.violation = err
	}
	h.mu.Unlock()

	h.logger.Error("surface handoff violation", zap.Error(err))
	if first && h.onViolation != nil {
		h.onViolation(err)
	}
}

// Surface resolves a surface handle.
func (h *HostState) Surface(handle uint32) (*surface.Surface, bool) {
	return resource.Typed[*surface.Surface](h.table, resource.Handle(handle), resource.KindSurface)
}

// Context resolves a graphics context handle.
func (h *HostState) Context(handle uint32) (*gpu.Context, bool) {
	return resource.Typed[*gpu.Context](h.table, resource.Handle(handle), resource.KindGraphicsContext)
}

// Close releases every capability the guest still holds.
func (h *HostState) Close() error {
	h.mu.Lock()
	clear(h.buffers)
	h.mu.Unlock()
	return h.table.Close()
}
