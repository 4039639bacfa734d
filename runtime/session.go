package runtime

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-surface/capability"
	"github.com/wippyai/wasm-surface/config"
	sberrors "github.com/wippyai/wasm-surface/errors"
	"github.com/wippyai/wasm-surface/gpu"
	"github.com/wippyai/wasm-surface/linker"
	"github.com/wippyai/wasm-surface/resource"
	"github.com/wippyai/wasm-surface/surface"
	"github.com/wippyai/wasm-surface/tracing"
)

var (
	sharedCache     wazero.CompilationCache
	sharedCacheOnce sync.Once
)

// SharedCache returns the process-wide compilation cache. Sessions are
// isolated runtimes but reuse compiled code for identical modules.
func SharedCache() wazero.CompilationCache {
	sharedCacheOnce.Do(func() {
		sharedCache = wazero.NewCompilationCache()
	})
	return sharedCache
}

// Options carries a session's collaborators.
type Options struct {
	Logger *zap.Logger

	// Dispatcher runs UI-bound capability work. nil means capability.Inline.
	Dispatcher capability.Dispatcher

	// GPU overrides the process-wide instance. nil means gpu.Shared().
	GPU *gpu.Instance

	// Cache overrides the shared compilation cache.
	Cache wazero.CompilationCache

	// OnViolation is called when the guest breaks the surface handoff.
	OnViolation func(error)

	// Observer receives capability lifecycle events of the session's table.
	Observer resource.Observer
}

// Session is a single-use guest execution context.
type Session struct {
	id        string
	cfg       config.RuntimeConfig
	runtime   wazero.Runtime
	linker    *linker.Linker
	state     *capability.HostState
	logger    *zap.Logger
	stdio     *stdio
	used      atomic.Bool
	closeOnce sync.Once
}

// New builds a fresh session with every granted capability bound. A failed
// registration is a configuration error and leaves nothing running.
func New(ctx context.Context, cfg config.RuntimeConfig, opts Options) (*Session, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Cache == nil {
		opts.Cache = SharedCache()
	}
	if len(cfg.EntryPoints) == 0 {
		cfg.EntryPoints = config.Defaults().Runtime.EntryPoints
	}

	id := uuid.NewString()
	logger := opts.Logger.With(zap.String("session", id))

	known := capability.Namespaces()
	for _, ns := range cfg.Capabilities {
		if !slices.Contains(known, ns) {
			return nil, sberrors.Configuration(fmt.Sprintf("unknown capability %q", ns), nil)
		}
	}

	state := capability.NewHostState(id, surface.NewSlot(), capability.Options{
		Logger:          logger,
		Dispatcher:      opts.Dispatcher,
		GPU:             opts.GPU,
		OnViolation:     opts.OnViolation,
		MaxCapabilities: cfg.MaxCapabilities,
		Observer:        opts.Observer,
	})

	l := linker.New(capability.Manifest(), linker.DefaultOptions())
	if err := l.RegisterAll(capability.Hosts(state, cfg.Capabilities)...); err != nil {
		_ = state.Close()
		return nil, err
	}

	rtCfg := wazero.NewRuntimeConfig().
		WithCloseOnContextDone(true).
		WithCompilationCache(opts.Cache)
	if cfg.MemoryLimitPages > 0 {
		rtCfg = rtCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, rtCfg)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		_ = state.Close()
		return nil, sberrors.Configuration("instantiate wasi_snapshot_preview1", err)
	}

	logger.Debug("session created", zap.Strings("capabilities", l.Namespaces()))

	return &Session{
		id:      id,
		cfg:     cfg,
		runtime: rt,
		linker:  l,
		state:   state,
		logger:  logger,
		stdio:   newStdio(cfg.Stdio, logger),
	}, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// State returns the capability host state.
func (s *Session) State() *capability.HostState { return s.state }

// Slot returns the surface handoff slot.
func (s *Session) Slot() *surface.Slot { return s.state.Slot() }

// Linker returns the session's capability linker.
func (s *Session) Linker() *linker.Linker { return s.linker }

// Load reads the module at path and prepares it to run with surf.
func (s *Session) Load(ctx context.Context, path string, surf *surface.Surface) (*Guest, error) {
	ctx, span := tracing.StartSpan(ctx, "session.load", tracing.Session(s.id), tracing.Module(path))
	g, err := s.load(ctx, path, surf, func() ([]byte, error) {
		bin, err := os.ReadFile(path)
		if err != nil {
			return nil, sberrors.ModuleNotFound(path, err)
		}
		return bin, nil
	})
	tracing.End(span, err)
	return g, err
}

// LoadBinary is Load for a module already in memory. name labels the guest
// in logs and errors.
func (s *Session) LoadBinary(ctx context.Context, name string, bin []byte, surf *surface.Surface) (*Guest, error) {
	ctx, span := tracing.StartSpan(ctx, "session.load", tracing.Session(s.id), tracing.Module(name))
	g, err := s.load(ctx, name, surf, func() ([]byte, error) { return bin, nil })
	tracing.End(span, err)
	return g, err
}

// load performs deposit, compile, import check and instantiation in that
// order. Any failure drains the slot and closes the session.
func (s *Session) load(ctx context.Context, name string, surf *surface.Surface, read func() ([]byte, error)) (g *Guest, err error) {
	if !s.used.CompareAndSwap(false, true) {
		return nil, sberrors.New(sberrors.PhaseLifecycle, sberrors.KindInvalidInput).
			Session(s.id).
			Detail("session already used").
			Build()
	}

	defer func() {
		if err != nil {
			s.state.Slot().Drain()
			_ = s.Close(context.WithoutCancel(ctx))
		}
	}()

	if surf != nil {
		if err := s.state.Slot().Deposit(surf); err != nil {
			return nil, err
		}
	}

	bin, err := read()
	if err != nil {
		return nil, err
	}

	compiled, err := s.runtime.CompileModule(ctx, bin)
	if err != nil {
		return nil, sberrors.ModuleNotFound(name, fmt.Errorf("not a valid WebAssembly module: %w", err))
	}

	if err := s.linker.Instantiate(ctx, s.runtime, compiled); err != nil {
		return nil, err
	}

	modCfg := wazero.NewModuleConfig().
		WithName(filepath.Base(name)).
		WithArgs(filepath.Base(name)).
		WithStartFunctions().
		WithStdout(s.stdio.stdout).
		WithStderr(s.stdio.stderr).
		WithSysWalltime().
		WithSysNanotime()

	mod, err := s.runtime.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		return nil, sberrors.Instantiation(err)
	}

	s.logger.Info("guest loaded", zap.String("module", name))
	return &Guest{session: s, module: mod, name: name}, nil
}

// Run loads the module at path and calls its entry point.
func (s *Session) Run(ctx context.Context, path string, surf *surface.Surface) error {
	g, err := s.Load(ctx, path, surf)
	if err != nil {
		return err
	}
	return g.Call(ctx)
}

// Close tears down the engine and releases every capability. It does not
// close the surface; the coordinator owns it.
func (s *Session) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		err = s.runtime.Close(ctx)
		_ = s.state.Close()
		_ = s.stdio.Close()
		s.state.Slot().Drain()
		s.logger.Debug("session closed")
	})
	return err
}
