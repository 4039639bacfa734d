package lifecycle

import (
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	sberrors "github.com/wippyai/wasm-surface/errors"
	"github.com/wippyai/wasm-surface/surface"
)

// DefaultInterval is the animation frame period.
const DefaultInterval = 16 * time.Millisecond

// Pump requests one animation frame per interval until stopped.
type Pump struct {
	proxy    surface.Proxy
	interval time.Duration
	stop     <-chan struct{}
	logger   *zap.Logger
	onTick   func()
	ticks    atomic.Uint64
	done     chan struct{}
}

// NewPump creates a pump ticking proxy every interval until stop closes.
// onTick, if set, runs after every delivered tick.
func NewPump(proxy surface.Proxy, interval time.Duration, stop <-chan struct{}, logger *zap.Logger, onTick func()) *Pump {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pump{
		proxy:    proxy,
		interval: interval,
		stop:     stop,
		logger:   logger,
		onTick:   onTick,
		done:     make(chan struct{}),
	}
}

// Run ticks until the stop channel closes or the surface goes away. After
// stop is signalled at most one more tick is delivered.
func (p *Pump) Run() {
	defer close(p.done)

	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for {
		select {
		case <-p.stop:
			p.logger.Debug("pump stopped", zap.Uint64("ticks", p.ticks.Load()))
			return
		default:
		}

		if err := p.proxy.TickFrame(); err != nil {
			if errors.Is(err, sberrors.ErrChannelClosed) {
				p.logger.Debug("pump target closed", zap.Uint64("ticks", p.ticks.Load()))
				return
			}
			p.logger.Warn("tick frame failed", zap.Error(err))
		} else {
			p.ticks.Add(1)
			if p.onTick != nil {
				p.onTick()
			}
		}

		timer.Reset(p.interval)
		select {
		case <-p.stop:
			p.logger.Debug("pump stopped", zap.Uint64("ticks", p.ticks.Load()))
			return
		case <-timer.C:
		}
	}
}

// Ticks returns the number of frames requested so far.
func (p *Pump) Ticks() uint64 { return p.ticks.Load() }

// Done is closed when Run returns.
func (p *Pump) Done() <-chan struct{} { return p.done }
