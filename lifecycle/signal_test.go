package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/wippyai/wasm-surface/surface"
	"github.com/wippyai/wasm-surface/surface/surfacetest"
)

func TestStopSignalNotify(t *testing.T) {
	s := NewStopSignal()
	assert.False(t, s.Stopped())

	s.Notify()
	s.Notify()
	assert.True(t, s.Stopped())

	for _, ch := range []<-chan struct{}{s.Pump(), s.Helper()} {
		select {
		case <-ch:
		default:
			t.Fatal("notify must close both channels")
		}
	}
}

func TestStopSignalsAreIndependent(t *testing.T) {
	old, fresh := NewStopSignal(), NewStopSignal()
	old.Notify()
	assert.False(t, fresh.Stopped(), "a stale signal must not reach a new session")
}

func pumpSurface(t *testing.T) *surface.Surface {
	t.Helper()
	s, err := surface.New(surfacetest.NewWindow(4, 4), surface.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestPumpTicks(t *testing.T) {
	surf := pumpSurface(t)
	stop := NewStopSignal()
	var seen int
	p := NewPump(surf.Proxy(), 2*time.Millisecond, stop.Pump(), zaptest.NewLogger(t), func() { seen++ })
	go p.Run()

	require.Eventually(t, func() bool {
		surf.PollFrame()
		return p.Ticks() >= 3
	}, time.Second, time.Millisecond)

	stop.Notify()
	<-p.Done()
	assert.Equal(t, p.Ticks(), uint64(seen))
}

func TestPumpStopsWithinOneInterval(t *testing.T) {
	const interval = 16 * time.Millisecond
	surf := pumpSurface(t)
	stop := NewStopSignal()
	p := NewPump(surf.Proxy(), interval, stop.Pump(), nil, nil)
	go p.Run()

	require.Eventually(t, func() bool { return p.Ticks() >= 2 }, time.Second, time.Millisecond)

	before := p.Ticks()
	start := time.Now()
	stop.Notify()

	select {
	case <-p.Done():
	case <-time.After(20 * time.Millisecond):
		t.Fatal("pump did not exit within one tick interval")
	}
	assert.Less(t, time.Since(start), 20*time.Millisecond)
	assert.LessOrEqual(t, p.Ticks(), before+1, "at most one tick after stop")
}

func TestPumpExitsWhenSurfaceCloses(t *testing.T) {
	surf := pumpSurface(t)
	stop := NewStopSignal()
	p := NewPump(surf.Proxy(), time.Millisecond, stop.Pump(), nil, nil)
	go p.Run()

	surf.Close()
	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("pump kept running after its surface closed")
	}
	assert.False(t, stop.Stopped())
}

func TestPumpDefaultInterval(t *testing.T) {
	p := NewPump(surface.Proxy{}, 0, nil, nil, nil)
	assert.Equal(t, DefaultInterval, p.interval)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "spawning", StateSpawning.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "stopping", StateStopRequested.String())
	assert.Equal(t, "state(9)", State(9).String())
}
