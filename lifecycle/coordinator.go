package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-surface/capability"
	"github.com/wippyai/wasm-surface/config"
	sberrors "github.com/wippyai/wasm-surface/errors"
	"github.com/wippyai/wasm-surface/gpu"
	"github.com/wippyai/wasm-surface/metrics"
	"github.com/wippyai/wasm-surface/runtime"
	"github.com/wippyai/wasm-surface/surface"
	"github.com/wippyai/wasm-surface/tracing"
)

// Exit describes how a guest finished.
type Exit struct {
	Session string
	Module  string
	Err     error
}

// Options configures a Coordinator.
type Options struct {
	Config  config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	// Dispatcher runs UI-bound capability work. nil means capability.Inline.
	Dispatcher capability.Dispatcher

	// GPU overrides the process-wide instance.
	GPU *gpu.Instance

	// OnExit is called from the guest goroutine when the active guest
	// finishes. Results of stopped sessions are not reported.
	OnExit func(Exit)
}

// SpawnRequest asks the coordinator to run a guest in a window.
type SpawnRequest struct {
	// ModulePath is the guest module on disk. Ignored when Module is set.
	ModulePath string

	// Module is an in-memory guest binary.
	Module []byte

	// Name labels an in-memory module. Defaults to "inline".
	Name string

	// Window is the child window created by the UI for this guest.
	Window surface.Window
}

func (r SpawnRequest) label() string {
	if r.Module != nil {
		if r.Name != "" {
			return r.Name
		}
		return "inline"
	}
	return r.ModulePath
}

// active is everything that belongs to the running session.
type active struct {
	gen     uint64
	module  string
	session *runtime.Session
	surface *surface.Surface
	window  surface.Window
	stop    *StopSignal
	pump    *Pump
	input   *forwarder
	cancel  context.CancelFunc
}

// Coordinator owns the single guest slot of an embedding UI. Its methods are
// meant to be called from the UI goroutine; none of them wait on the guest.
type Coordinator struct {
	cfg        config.Config
	logger     *zap.Logger
	metrics    *metrics.Metrics
	dispatcher capability.Dispatcher
	gpu        *gpu.Instance
	onExit     func(Exit)

	mu      sync.Mutex
	state   State
	gen     uint64
	next    *runtime.Session
	current *active
	lastErr error
}

// New creates an idle coordinator with its first session already built.
// A session that cannot be built is a configuration error.
func New(ctx context.Context, opts Options) (*Coordinator, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = capability.Inline{}
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}

	c := &Coordinator{
		cfg:        opts.Config,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		dispatcher: countingDispatcher{next: opts.Dispatcher, metrics: opts.Metrics},
		gpu:        opts.GPU,
		onExit:     opts.OnExit,
	}

	sess, err := c.newSession(ctx)
	if err != nil {
		return nil, err
	}
	c.next = sess
	return c, nil
}

func (c *Coordinator) newSession(ctx context.Context) (*runtime.Session, error) {
	return runtime.New(ctx, c.cfg.Runtime, runtime.Options{
		Logger:     c.logger,
		Dispatcher: c.dispatcher,
		GPU:        c.gpu,
		OnViolation: func(error) {
			c.metrics.HandoffViolations.Inc()
		},
		Observer: c.metrics,
	})
}

// Spawn starts a guest in req.Window. A running guest is stopped first. Load
// errors are returned and leave the coordinator Idle with nothing running;
// errors raised while the guest runs are reported later through Status and
// OnExit.
func (c *Coordinator) Spawn(ctx context.Context, req SpawnRequest) (err error) {
	if req.Window == nil {
		return sberrors.InvalidInput(sberrors.PhaseLifecycle, "spawn without a window")
	}
	if req.Module == nil && req.ModulePath == "" {
		return sberrors.InvalidInput(sberrors.PhaseLifecycle, "spawn without a module")
	}

	ctx, span := tracing.StartSpan(ctx, "coordinator.spawn", tracing.Module(req.label()))
	defer func() { tracing.End(span, err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateRunning {
		c.stopLocked(ctx, "replaced")
	}

	start := time.Now()
	c.state = StateSpawning
	c.gen++
	gen := c.gen

	defer func() {
		if err != nil {
			c.lastErr = err
			c.state = StateIdle
			c.metrics.SpawnFailed(string(sberrors.KindOf(err)))
			c.logger.Warn("spawn failed", zap.String("module", req.label()), zap.Error(err))
		}
	}()

	sess := c.next
	c.next = nil
	if sess == nil {
		if sess, err = c.newSession(ctx); err != nil {
			return err
		}
	}

	surf, err := surface.New(req.Window, surface.Options{
		Logger:       c.logger,
		EventQueue:   c.cfg.Input.QueueSize,
		PointerRate:  c.cfg.Input.PointerRate,
		PointerBurst: c.cfg.Input.PointerBurst,
	})
	if err != nil {
		_ = sess.Close(ctx)
		c.rebuildLocked(ctx)
		return err
	}

	var guest *runtime.Guest
	if req.Module != nil {
		guest, err = sess.LoadBinary(ctx, req.label(), req.Module, surf)
	} else {
		guest, err = sess.Load(ctx, req.ModulePath, surf)
	}
	if err != nil {
		surf.Close()
		req.Window.SetVisible(false)
		c.rebuildLocked(ctx)
		return err
	}

	stop := NewStopSignal()
	proxy := surf.Proxy()
	logger := c.logger.With(zap.String("session", sess.ID()))

	a := &active{
		gen:     gen,
		module:  req.label(),
		session: sess,
		surface: surf,
		window:  req.Window,
		stop:    stop,
		pump:    NewPump(proxy, c.cfg.Pump.Interval, stop.Pump(), logger, c.metrics.FramesTicked.Inc),
		input:   newForwarder(proxy, c.cfg.Input.QueueSize, stop.Helper(), logger, c.metrics),
	}

	guestCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancel = cancel

	req.Window.SetVisible(true)
	c.current = a
	c.lastErr = nil
	c.state = StateRunning

	go c.runGuest(guestCtx, a, guest)
	go a.pump.Run()
	go a.input.run()

	c.metrics.ObserveSpawn(time.Since(start))
	logger.Info("guest spawned",
		zap.String("module", a.module),
		zap.Uint64("generation", a.gen),
		zap.Uint64("window", uint64(req.Window.ID())))
	return nil
}

func (c *Coordinator) runGuest(ctx context.Context, a *active, g *runtime.Guest) {
	err := g.Call(ctx)
	a.cancel()

	c.mu.Lock()
	if c.current != a {
		c.mu.Unlock()
		c.metrics.GuestExited("abandoned")
		c.logger.Debug("ignoring result of stopped session",
			zap.String("session", a.session.ID()),
			zap.Error(err))
		return
	}

	c.metrics.GuestExited(exitResult(err))
	c.lastErr = err
	c.teardownLocked(a)
	c.state = StateIdle
	c.rebuildLocked(context.WithoutCancel(ctx))
	onExit := c.onExit
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("guest failed", zap.String("session", a.session.ID()), zap.Error(err))
	} else {
		c.logger.Info("guest exited", zap.String("session", a.session.ID()))
	}
	if onExit != nil {
		onExit(Exit{Session: a.session.ID(), Module: a.module, Err: err})
	}
}

func exitResult(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := sberrors.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}

// Stop ends the running session. It returns once the pump and the input
// forwarder have exited; the guest goroutine is left to finish on its own.
// Stopping an idle coordinator is a no-op.
func (c *Coordinator) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRunning {
		return nil
	}
	c.stopLocked(ctx, "stopped")
	return nil
}

func (c *Coordinator) stopLocked(ctx context.Context, reason string) {
	a := c.current
	c.state = StateStopRequested

	c.teardownLocked(a)
	if c.cfg.Runtime.CloseOnStop {
		a.cancel()
	}

	c.rebuildLocked(ctx)
	c.state = StateIdle
	c.logger.Info("guest "+reason, zap.String("session", a.session.ID()))
}

// teardownLocked stops the helpers, hides the window and detaches the
// surface. It does not touch the guest goroutine.
func (c *Coordinator) teardownLocked(a *active) {
	a.stop.Notify()
	a.window.SetVisible(false)
	a.session.Slot().Drain()
	a.surface.Close()
	<-a.pump.Done()
	<-a.input.done

	c.current = nil
	c.metrics.Stopped()
}

// rebuildLocked prepares the session the next spawn will use. A failure is
// logged; Spawn retries and reports it.
func (c *Coordinator) rebuildLocked(ctx context.Context) {
	if c.next != nil {
		return
	}
	sess, err := c.newSession(ctx)
	if err != nil {
		c.logger.Error("build next session", zap.Error(err))
		return
	}
	c.next = sess
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns a one-line description for the UI: the state, or the error
// that ended the last session.
func (c *Coordinator) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateIdle && c.lastErr != nil {
		return fmt.Sprintf("error: %v", c.lastErr)
	}
	return c.state.String()
}

// Err returns the error that ended the last session or spawn, if any.
func (c *Coordinator) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Active reports whether a guest is running.
func (c *Coordinator) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

// SessionID returns the ID of the running session, or "".
func (c *Coordinator) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return ""
	}
	return c.current.session.ID()
}

// ChildWindow returns the identity of the active window.
func (c *Coordinator) ChildWindow() (surface.WindowID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return 0, false
	}
	return c.current.window.ID(), true
}

// Proxy returns the active surface proxy.
func (c *Coordinator) Proxy() (surface.Proxy, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return surface.Proxy{}, false
	}
	return c.current.surface.Proxy(), true
}

// Forward queues an input event for the running guest without blocking.
// With no guest running it returns a ChannelClosed error, which callers may
// ignore.
func (c *Coordinator) Forward(e surface.Event) error {
	c.mu.Lock()
	a := c.current
	c.mu.Unlock()
	if a == nil {
		return sberrors.ChannelClosed("input forwarder")
	}
	return a.input.offer(e)
}

// Pump returns the running session's animation pump.
func (c *Coordinator) Pump() (*Pump, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil, false
	}
	return c.current.pump, true
}

// Metrics returns the coordinator's collectors.
func (c *Coordinator) Metrics() *metrics.Metrics { return c.metrics }

// Close stops the running guest and releases the spare session.
func (c *Coordinator) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateRunning {
		c.stopLocked(ctx, "closed")
	}
	if c.next != nil {
		err := c.next.Close(ctx)
		c.next = nil
		return err
	}
	return nil
}
