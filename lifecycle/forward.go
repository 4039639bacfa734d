package lifecycle

import (
	"errors"

	"go.uber.org/zap"

	sberrors "github.com/wippyai/wasm-surface/errors"
	"github.com/wippyai/wasm-surface/metrics"
	"github.com/wippyai/wasm-surface/surface"
)

// forwarder relays input events from the UI goroutine into the guest's
// surface on its own goroutine, so the UI never waits on the surface.
type forwarder struct {
	proxy   surface.Proxy
	in      chan surface.Event
	stop    <-chan struct{}
	logger  *zap.Logger
	metrics *metrics.Metrics
	done    chan struct{}
}

func newForwarder(proxy surface.Proxy, size int, stop <-chan struct{}, logger *zap.Logger, m *metrics.Metrics) *forwarder {
	return &forwarder{
		proxy:   proxy,
		in:      make(chan surface.Event, size),
		stop:    stop,
		logger:  logger,
		metrics: m,
		done:    make(chan struct{}),
	}
}

// offer queues e without blocking.
func (f *forwarder) offer(e surface.Event) error {
	select {
	case <-f.stop:
		return sberrors.ChannelClosed("input forwarder")
	default:
	}
	select {
	case f.in <- e:
		return nil
	default:
		f.metrics.EventsDropped.Inc()
		return surface.ErrEventDropped
	}
}

func (f *forwarder) run() {
	defer close(f.done)
	for {
		select {
		case <-f.stop:
			return
		case e := <-f.in:
			err := f.proxy.ForwardEvent(e)
			switch {
			case err == nil:
				f.metrics.EventsForwarded.Inc()
			case errors.Is(err, surface.ErrEventDropped):
				f.metrics.EventsDropped.Inc()
			case errors.Is(err, sberrors.ErrChannelClosed):
				return
			default:
				f.logger.Debug("forward event failed", zap.Error(err))
			}
		}
	}
}
