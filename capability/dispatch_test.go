package capability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sberrors "github.com/wippyai/wasm-surface/errors"
)

func TestInlineDispatch(t *testing.T) {
	v, err := Inline{}.Dispatch(context.Background(), func() (any, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ran := false
	_, err = Inline{}.Dispatch(ctx, func() (any, error) { ran = true; return nil, nil })
	assert.ErrorIs(t, err, sberrors.ErrCancelled)
	assert.False(t, ran)
}

func TestUIQueueDrainRunsOnCaller(t *testing.T) {
	q := NewUIQueue(4)
	defer q.Close()

	type result struct {
		v   any
		err error
	}
	got := make(chan result, 1)
	go func() {
		v, err := q.Dispatch(context.Background(), func() (any, error) { return "device", nil })
		got <- result{v, err}
	}()

	require.Eventually(t, func() bool { return q.Pending() == 1 }, time.Second, time.Millisecond)
	select {
	case <-got:
		t.Fatal("dispatch returned before the UI goroutine ran the task")
	default:
	}

	assert.Equal(t, 1, q.Drain())
	r := <-got
	require.NoError(t, r.err)
	assert.Equal(t, "device", r.v)
	assert.Equal(t, 0, q.Drain())
}

func TestUIQueueRun(t *testing.T) {
	q := NewUIQueue(0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- q.Run(ctx) }()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := q.Dispatch(context.Background(), func() (any, error) { return i * 2, nil })
			assert.NoError(t, err)
			assert.Equal(t, i*2, v)
		}(i)
	}
	wg.Wait()

	q.Close()
	assert.NoError(t, <-runDone)
}

func TestUIQueueTaskErrorAndPanic(t *testing.T) {
	q := NewUIQueue(2)
	defer q.Close()
	go func() { _ = q.Run(context.Background()) }()

	boom := errors.New("boom")
	_, err := q.Dispatch(context.Background(), func() (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	_, err = q.Dispatch(context.Background(), func() (any, error) { panic("bad task") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad task")
}

func TestUIQueueCancelAndClose(t *testing.T) {
	q := NewUIQueue(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := q.Dispatch(ctx, func() (any, error) { return nil, nil })
	assert.ErrorIs(t, err, sberrors.ErrCancelled, "nobody drains the queue")

	waiting := make(chan error, 1)
	go func() {
		_, err := q.Dispatch(context.Background(), func() (any, error) { return nil, nil })
		waiting <- err
	}()
	time.Sleep(5 * time.Millisecond)
	q.Close()

	select {
	case err := <-waiting:
		assert.ErrorIs(t, err, sberrors.ErrChannelClosed)
	case <-time.After(time.Second):
		t.Fatal("Close did not release the waiting caller")
	}

	_, err = q.Dispatch(context.Background(), func() (any, error) { return nil, nil })
	assert.ErrorIs(t, err, sberrors.ErrChannelClosed)
	q.Close()
}
