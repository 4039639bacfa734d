package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/wasm-surface/capability"
	"github.com/wippyai/wasm-surface/config"
	"github.com/wippyai/wasm-surface/internal/wasmbin"
	"github.com/wippyai/wasm-surface/lifecycle"
	"github.com/wippyai/wasm-surface/logging"
	"github.com/wippyai/wasm-surface/metrics"
	"github.com/wippyai/wasm-surface/tracing"
)

type options struct {
	configPath string
	modulePath string
	demo       bool
	writeDemo  string
	headless   bool
	watch      bool
	duration   time.Duration
	width      int
	height     int
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to YAML config file")
	flag.BoolVar(&opts.demo, "demo", false, "Run the built-in demo guest")
	flag.StringVar(&opts.writeDemo, "write-demo", "", "Write the demo guest module to this path and exit")
	flag.BoolVar(&opts.headless, "headless", false, "Run without the terminal UI")
	flag.BoolVar(&opts.watch, "watch", false, "Respawn the guest when the module file changes")
	flag.DurationVar(&opts.duration, "duration", 0, "Headless: stop the guest after this long (0 waits for it to exit)")
	flag.IntVar(&opts.width, "width", 64, "Headless: window width in pixels")
	flag.IntVar(&opts.height, "height", 48, "Headless: window height in pixels")
	flag.Parse()

	if opts.writeDemo != "" {
		if err := os.WriteFile(opts.writeDemo, wasmbin.Demo(), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	opts.modulePath = flag.Arg(0)
	if opts.modulePath == "" && !opts.demo {
		fmt.Fprintln(os.Stderr, "Usage: sandbox [flags] <module.wasm>")
		fmt.Fprintln(os.Stderr, "       sandbox -demo [flags]")
		fmt.Fprintln(os.Stderr, "       sandbox -write-demo <path>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app wires the coordinator to its embedder.
type app struct {
	cfg        config.Config
	logger     *zap.Logger
	coord      *lifecycle.Coordinator
	queue      *capability.UIQueue
	exits      chan lifecycle.Exit
	watch      *watcher
	modulePath string
}

func (a *app) label() string {
	if a.modulePath == "" {
		return "demo"
	}
	return a.modulePath
}

func (a *app) spawn(ctx context.Context, win *window) error {
	req := lifecycle.SpawnRequest{ModulePath: a.modulePath, Window: win}
	if a.modulePath == "" {
		req.Module = wasmbin.Demo()
		req.Name = "demo"
	}
	return a.coord.Spawn(ctx, req)
}

func run(opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	interactive := !opts.headless && term.IsTerminal(int(os.Stdout.Fd()))
	if interactive && (cfg.Log.Output == "" || cfg.Log.Output == "stderr" || cfg.Log.Output == "stdout") {
		// The terminal belongs to the UI.
		cfg.Log.Output = filepath.Join(os.TempDir(), "wasm-surface.log")
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Trace)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		srv := serveMetrics(cfg.Metrics.Addr, m, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	a := &app{
		cfg:        cfg,
		logger:     logger,
		queue:      capability.NewUIQueue(cfg.UI.QueueSize),
		exits:      make(chan lifecycle.Exit, 4),
		modulePath: opts.modulePath,
	}
	defer a.queue.Close()

	a.coord, err = lifecycle.New(ctx, lifecycle.Options{
		Config:     cfg,
		Logger:     logger,
		Metrics:    m,
		Dispatcher: a.queue,
		OnExit: func(e lifecycle.Exit) {
			select {
			case a.exits <- e:
			default:
			}
		},
	})
	if err != nil {
		return err
	}
	defer func() { _ = a.coord.Close(context.Background()) }()

	if opts.watch && opts.modulePath != "" {
		if a.watch, err = newWatcher(opts.modulePath, logger); err != nil {
			return fmt.Errorf("watch %s: %w", opts.modulePath, err)
		}
		defer a.watch.Close()
	}

	if interactive {
		cols, rows, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil {
			cols, rows = 80, 24
		}
		return runInteractive(a, cols, rows)
	}
	return runHeadless(ctx, a, opts)
}

func serveMetrics(addr string, m *metrics.Metrics, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))
	return srv
}

// runHeadless is the embedder loop without a terminal UI. The calling
// goroutine acts as the UI goroutine and drains the task queue every frame.
func runHeadless(ctx context.Context, a *app, opts options) error {
	win := newWindow(opts.width, opts.height)
	if err := a.spawn(ctx, win); err != nil {
		return err
	}

	var deadline <-chan time.Time
	if opts.duration > 0 {
		timer := time.NewTimer(opts.duration)
		defer timer.Stop()
		deadline = timer.C
	}

	frame := time.NewTicker(a.cfg.Pump.Interval)
	defer frame.Stop()

	for {
		select {
		case <-frame.C:
			a.queue.Drain()

		case <-ctx.Done():
			a.logger.Info("interrupted", zap.Uint64("frames", win.presented()))
			return a.coord.Stop(context.Background())

		case <-deadline:
			a.logger.Info("duration elapsed", zap.Uint64("frames", win.presented()))
			return a.coord.Stop(context.Background())

		case e := <-a.exits:
			a.logger.Info("guest finished",
				zap.String("session", e.Session),
				zap.Uint64("frames", win.presented()),
				zap.Error(e.Err))
			if a.watch == nil {
				return e.Err
			}

		case _, ok := <-a.watch.Events():
			if !ok {
				return nil
			}
			a.logger.Info("module changed, respawning")
			win = newWindow(opts.width, opts.height)
			if err := a.spawn(ctx, win); err != nil {
				a.logger.Warn("respawn failed", zap.Error(err))
			}
		}
	}
}
