package lifecycle

import (
	"context"

	"github.com/wippyai/wasm-surface/capability"
	"github.com/wippyai/wasm-surface/metrics"
)

// countingDispatcher counts tasks handed to the UI goroutine.
type countingDispatcher struct {
	next    capability.Dispatcher
	metrics *metrics.Metrics
}

func (d countingDispatcher) Dispatch(ctx context.Context, task capability.Task) (any, error) {
	d.metrics.UITasks.Inc()
	return d.next.Dispatch(ctx, task)
}
