package surface_test

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sberrors "github.com/wippyai/wasm-surface/errors"
	"github.com/wippyai/wasm-surface/surface"
	"github.com/wippyai/wasm-surface/surface/surfacetest"
)

func newSurface(t *testing.T, opts surface.Options) (*surface.Surface, *surfacetest.Window) {
	t.Helper()
	win := surfacetest.NewWindow(32, 16)
	s, err := surface.New(win, opts)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, win
}

func TestNewRequiresWindow(t *testing.T) {
	_, err := surface.New(nil, surface.DefaultOptions())
	require.Error(t, err)
	assert.Equal(t, sberrors.KindInvalidInput, sberrors.KindOf(err))
}

func TestSurfaceIdentity(t *testing.T) {
	s, win := newSurface(t, surface.DefaultOptions())

	assert.Equal(t, win.ID(), s.ID())
	assert.Equal(t, win.ID(), s.Proxy().ID())
	w, h := s.Size()
	assert.Equal(t, 32, w)
	assert.Equal(t, 16, h)
}

func TestTickFrameCoalesces(t *testing.T) {
	s, _ := newSurface(t, surface.DefaultOptions())
	p := s.Proxy()

	require.NoError(t, p.TickFrame())
	require.NoError(t, p.TickFrame())
	require.NoError(t, p.TickFrame())

	assert.True(t, s.PollFrame())
	assert.False(t, s.PollFrame(), "ticks should coalesce into one pending frame")
	assert.Equal(t, uint64(1), s.Ticks())
}

func TestWaitFrame(t *testing.T) {
	s, _ := newSurface(t, surface.DefaultOptions())
	p := s.Proxy()

	go func() {
		time.Sleep(5 * time.Millisecond)
		_ = p.TickFrame()
	}()
	assert.True(t, s.WaitFrame(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.False(t, s.WaitFrame(ctx), "WaitFrame should give up when ctx is done")
}

func TestCloseReleasesWaiter(t *testing.T) {
	s, _ := newSurface(t, surface.DefaultOptions())

	result := make(chan bool, 1)
	go func() { result <- s.WaitFrame(context.Background()) }()

	time.Sleep(5 * time.Millisecond)
	s.Close()

	select {
	case ok := <-result:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("WaitFrame did not return after Close")
	}

	// A tick queued before close must not keep the guest alive.
	assert.False(t, s.WaitFrame(context.Background()))
}

func TestProxyAfterCloseIsChannelClosed(t *testing.T) {
	s, _ := newSurface(t, surface.DefaultOptions())
	p := s.Proxy()
	s.Close()
	s.Close()

	assert.True(t, errors.Is(p.TickFrame(), sberrors.ErrChannelClosed))
	assert.True(t, errors.Is(p.ForwardEvent(surface.Event{Kind: surface.EventKeyDown}), sberrors.ErrChannelClosed))
	assert.True(t, errors.Is(s.Present(image.NewRGBA(image.Rect(0, 0, 1, 1))), sberrors.ErrChannelClosed))

	var zero surface.Proxy
	assert.False(t, zero.Valid())
	assert.True(t, errors.Is(zero.TickFrame(), sberrors.ErrChannelClosed))
}

func TestForwardEvent(t *testing.T) {
	opts := surface.DefaultOptions()
	opts.EventQueue = 2
	opts.PointerRate = 0
	s, _ := newSurface(t, opts)
	p := s.Proxy()

	require.NoError(t, p.ForwardEvent(surface.Event{Kind: surface.EventKeyDown, Code: 'a'}))
	require.NoError(t, p.ForwardEvent(surface.Event{Kind: surface.EventKeyUp, Code: 'a'}))
	assert.ErrorIs(t, p.ForwardEvent(surface.Event{Kind: surface.EventFocus}), surface.ErrEventDropped)

	e, ok := s.PollEvent()
	require.True(t, ok)
	assert.Equal(t, surface.EventKeyDown, e.Kind)
	assert.Equal(t, uint32('a'), e.Code)

	e, ok = s.PollEvent()
	require.True(t, ok)
	assert.Equal(t, surface.EventKeyUp, e.Kind)

	_, ok = s.PollEvent()
	assert.False(t, ok)
}

func TestPointerMoveRateLimited(t *testing.T) {
	opts := surface.DefaultOptions()
	opts.PointerRate = 1
	opts.PointerBurst = 2
	s, _ := newSurface(t, opts)
	p := s.Proxy()

	move := surface.Event{Kind: surface.EventPointerMove, X: 1, Y: 2}
	require.NoError(t, p.ForwardEvent(move))
	require.NoError(t, p.ForwardEvent(move))
	assert.ErrorIs(t, p.ForwardEvent(move), surface.ErrEventDropped)

	// Other kinds are never throttled.
	require.NoError(t, p.ForwardEvent(surface.Event{Kind: surface.EventPointerDown}))
}

func TestPresent(t *testing.T) {
	s, win := newSurface(t, surface.DefaultOptions())

	img := image.NewRGBA(image.Rect(0, 0, 32, 16))
	img.Pix[0] = 0xff
	require.NoError(t, s.Present(img))
	assert.Equal(t, 1, win.Frames())
	assert.Equal(t, uint64(1), s.Presented())
	assert.Equal(t, uint8(0xff), win.Last().Pix[0])

	win.FailPresent(errors.New("lost"))
	assert.Error(t, s.Present(img))
	assert.Equal(t, uint64(1), s.Presented())
}

func TestProxyConcurrentUse(t *testing.T) {
	s, _ := newSurface(t, surface.Options{EventQueue: 1024})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(p surface.Proxy) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = p.TickFrame()
				_ = p.ForwardEvent(surface.Event{Kind: surface.EventKeyDown})
			}
		}(s.Proxy())
	}
	wg.Wait()

	n := 0
	for {
		if _, ok := s.PollEvent(); !ok {
			break
		}
		n++
	}
	assert.Equal(t, 400, n)
}
