package runtime

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-surface/capability"
	"github.com/wippyai/wasm-surface/config"
	sberrors "github.com/wippyai/wasm-surface/errors"
	"github.com/wippyai/wasm-surface/internal/wasmbin"
	"github.com/wippyai/wasm-surface/surface"
	"github.com/wippyai/wasm-surface/surface/surfacetest"
)

func testConfig() config.RuntimeConfig {
	cfg := config.Defaults().Runtime
	cfg.Stdio = config.StdioDiscard
	return cfg
}

func newSession(t *testing.T, cfg config.RuntimeConfig, opts Options) *Session {
	t.Helper()
	s, err := New(context.Background(), cfg, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func newSurface(t *testing.T) (*surface.Surface, *surfacetest.Window) {
	t.Helper()
	win := surfacetest.NewWindow(8, 4)
	s, err := surface.New(win, surface.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, win
}

func writeModule(t *testing.T, bin []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "guest.wasm")
	require.NoError(t, os.WriteFile(path, bin, 0o600))
	return path
}

func TestSessionsAreIsolated(t *testing.T) {
	a := newSession(t, testConfig(), Options{})
	b := newSession(t, testConfig(), Options{})

	assert.NotEqual(t, a.ID(), b.ID())
	assert.NotSame(t, a.State(), b.State())
	assert.NotSame(t, a.Slot(), b.Slot())
	assert.NotSame(t, a.State().Table(), b.State().Table())
	assert.Same(t, a.State().GPUInstance(), b.State().GPUInstance(), "the GPU instance is process-wide")
	assert.ElementsMatch(t, capability.Namespaces(), a.Linker().Namespaces())
}

func TestNewRejectsUnknownCapability(t *testing.T) {
	cfg := testConfig()
	cfg.Capabilities = []string{"wasi:surface/surface", "wasi:keyboard/keyboard"}

	_, err := New(context.Background(), cfg, Options{})
	assert.ErrorIs(t, err, sberrors.ErrConfiguration)
}

func TestLoadMissingModule(t *testing.T) {
	sess := newSession(t, testConfig(), Options{})
	surf, _ := newSurface(t)

	_, err := sess.Load(context.Background(), filepath.Join(t.TempDir(), "nope.wasm"), surf)
	require.Error(t, err)
	assert.ErrorIs(t, err, sberrors.ErrModuleNotFound)
	assert.False(t, sess.Slot().Full(), "a failed load must not leave the surface in the slot")

	_, err = sess.LoadBinary(context.Background(), "again", wasmbin.Idle(), nil)
	assert.Equal(t, sberrors.KindInvalidInput, sberrors.KindOf(err), "a session is single use")
}

func TestLoadInvalidBinary(t *testing.T) {
	sess := newSession(t, testConfig(), Options{})
	path := writeModule(t, []byte("definitely not wasm"))

	_, err := sess.Load(context.Background(), path, nil)
	assert.ErrorIs(t, err, sberrors.ErrModuleNotFound)
}

func TestLoadUngrantedCapability(t *testing.T) {
	cfg := testConfig()
	cfg.Capabilities = []string{capability.NamespaceSurface}
	sess := newSession(t, cfg, Options{})
	surf, _ := newSurface(t)

	_, err := sess.LoadBinary(context.Background(), "demo", wasmbin.Demo(), surf)
	require.Error(t, err)
	assert.ErrorIs(t, err, sberrors.ErrInstantiation)

	var missing *sberrors.MissingImportsError
	require.True(t, errors.As(err, &missing))
	namespaces := map[string]bool{}
	for _, imp := range missing.Imports {
		namespaces[imp.Namespace] = true
	}
	assert.True(t, namespaces[capability.NamespaceWebGPU])
	assert.False(t, namespaces[capability.NamespaceSurface])
	assert.False(t, sess.Slot().Full())
}

func TestLoadDoesNotRunStart(t *testing.T) {
	sess := newSession(t, testConfig(), Options{})

	// Exit(7) would fail if _start ran during instantiation.
	g, err := sess.LoadBinary(context.Background(), "exit", wasmbin.Exit(7), nil)
	require.NoError(t, err)
	assert.Equal(t, "_start", g.EntryPoint())
}

func TestCallOutcomes(t *testing.T) {
	tests := []struct {
		name string
		bin  []byte
		want *sberrors.Error
	}{
		{"clean return", wasmbin.Idle(), nil},
		{"run entry", wasmbin.Named("run"), nil},
		{"main entry", wasmbin.Named("main"), nil},
		{"exit zero", wasmbin.Exit(0), nil},
		{"exit non-zero", wasmbin.Exit(3), sberrors.ErrEntryPoint},
		{"no entry point", wasmbin.NoEntry(), sberrors.ErrEntryPoint},
		{"trap", wasmbin.Trap(), sberrors.ErrGuestTrap},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := newSession(t, testConfig(), Options{})
			g, err := sess.LoadBinary(context.Background(), tt.name, tt.bin, nil)
			require.NoError(t, err)

			err = g.Call(context.Background())
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}

			assert.Equal(t, sberrors.KindInvalidInput, sberrors.KindOf(g.Call(context.Background())), "a guest runs once")
		})
	}
}

func TestRunFromFile(t *testing.T) {
	sess := newSession(t, testConfig(), Options{})
	surf, _ := newSurface(t)

	err := sess.Run(context.Background(), writeModule(t, wasmbin.SurfaceGrab()), surf)
	assert.NoError(t, err)
	assert.False(t, sess.Slot().Full(), "the guest took the surface")
}

func TestHandoffViolation(t *testing.T) {
	var reported atomic.Int32
	sess := newSession(t, testConfig(), Options{
		OnViolation: func(error) { reported.Add(1) },
	})

	// No surface deposited: the guest asks for one that does not exist.
	g, err := sess.LoadBinary(context.Background(), "grab", wasmbin.SurfaceGrab(), nil)
	require.NoError(t, err)

	err = g.Call(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, sberrors.ErrHandoffViolation)
	assert.Equal(t, int32(1), reported.Load())
	assert.ErrorIs(t, sess.State().Violation(), sberrors.ErrHandoffViolation)
}

func TestGuestExitsWhenSurfaceCloses(t *testing.T) {
	sess := newSession(t, testConfig(), Options{})
	surf, _ := newSurface(t)

	g, err := sess.LoadBinary(context.Background(), "loop", wasmbin.SurfaceLoop(), surf)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- g.Call(context.Background()) }()

	proxy := surf.Proxy()
	for i := 0; i < 3; i++ {
		require.NoError(t, proxy.TickFrame())
		time.Sleep(2 * time.Millisecond)
	}
	surf.Close()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("guest did not exit after its surface closed")
	}
}

func TestCancelStopsGuest(t *testing.T) {
	sess := newSession(t, testConfig(), Options{})
	surf, _ := newSurface(t)

	g, err := sess.LoadBinary(context.Background(), "loop", wasmbin.SurfaceLoop(), surf)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Call(ctx) }()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			assert.ErrorIs(t, err, sberrors.ErrCancelled)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("guest did not stop after cancel")
	}
}

func TestTrapAfterFrame(t *testing.T) {
	sess := newSession(t, testConfig(), Options{})
	surf, _ := newSurface(t)

	g, err := sess.LoadBinary(context.Background(), "trap", wasmbin.SurfaceTrapAfterFrame(), surf)
	require.NoError(t, err)
	require.NoError(t, surf.Proxy().TickFrame())

	assert.ErrorIs(t, g.Call(context.Background()), sberrors.ErrGuestTrap)
}

func TestDemoGuestPresentsFrames(t *testing.T) {
	sess := newSession(t, testConfig(), Options{})
	surf, win := newSurface(t)

	g, err := sess.LoadBinary(context.Background(), "demo", wasmbin.Demo(), surf)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- g.Call(context.Background()) }()

	proxy := surf.Proxy()
	deadline := time.After(5 * time.Second)
	for win.Frames() < 3 {
		require.NoError(t, proxy.TickFrame())
		select {
		case <-win.Presented():
		case <-time.After(20 * time.Millisecond):
		case <-deadline:
			t.Fatal("demo guest did not present frames")
		}
	}

	last := win.Last()
	require.NotNil(t, last)
	assert.Equal(t, uint8(0xff), last.Pix[3], "demo fills with opaque colors")

	surf.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("demo guest did not exit")
	}

	adapters, devices := sess.State().GPUInstance().Stats()
	assert.GreaterOrEqual(t, adapters, int64(1))
	assert.GreaterOrEqual(t, devices, int64(1))
}

func TestDeviceRequestUsesDispatcher(t *testing.T) {
	queue := capability.NewUIQueue(4)
	defer queue.Close()

	sess := newSession(t, testConfig(), Options{Dispatcher: queue})
	surf, win := newSurface(t)

	g, err := sess.LoadBinary(context.Background(), "demo", wasmbin.Demo(), surf)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- g.Call(context.Background()) }()

	// Nothing is presented until the UI goroutine services the device request.
	require.NoError(t, surf.Proxy().TickFrame())
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 0, win.Frames())

	deadline := time.After(5 * time.Second)
	for queue.Drain() == 0 {
		select {
		case <-deadline:
			t.Fatal("device request never reached the UI queue")
		case <-time.After(time.Millisecond):
		}
	}

	select {
	case <-win.Presented():
	case <-time.After(5 * time.Second):
		t.Fatal("guest did not present after the device request completed")
	}

	surf.Close()
	<-done
}
