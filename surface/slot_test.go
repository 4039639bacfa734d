package surface_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sberrors "github.com/wippyai/wasm-surface/errors"
	"github.com/wippyai/wasm-surface/surface"
)

func TestSlotTakeEmptyIsViolation(t *testing.T) {
	slot := surface.NewSlot()

	s, err := slot.Take()
	assert.Nil(t, s, "an empty slot must never yield a placeholder surface")
	require.Error(t, err)
	assert.ErrorIs(t, err, sberrors.ErrHandoffViolation)
}

func TestSlotDepositTake(t *testing.T) {
	slot := surface.NewSlot()
	s, _ := newSurface(t, surface.DefaultOptions())

	require.NoError(t, slot.Deposit(s))
	assert.True(t, slot.Full())

	got, err := slot.Take()
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.False(t, slot.Full())

	_, err = slot.Take()
	assert.ErrorIs(t, err, sberrors.ErrHandoffViolation, "a surface is handed over at most once")
}

func TestSlotDoubleDeposit(t *testing.T) {
	slot := surface.NewSlot()
	a, _ := newSurface(t, surface.DefaultOptions())
	b, _ := newSurface(t, surface.DefaultOptions())

	require.NoError(t, slot.Deposit(a))
	assert.ErrorIs(t, slot.Deposit(b), sberrors.ErrHandoffViolation)

	got, err := slot.Take()
	require.NoError(t, err)
	assert.Same(t, a, got)

	assert.Equal(t, sberrors.KindInvalidInput, sberrors.KindOf(slot.Deposit(nil)))
}

func TestSlotDrain(t *testing.T) {
	slot := surface.NewSlot()
	assert.Nil(t, slot.Drain())

	s, _ := newSurface(t, surface.DefaultOptions())
	require.NoError(t, slot.Deposit(s))
	assert.Same(t, s, slot.Drain())
	assert.False(t, slot.Full())
}

func TestSlotConcurrentTake(t *testing.T) {
	slot := surface.NewSlot()
	s, _ := newSurface(t, surface.DefaultOptions())
	require.NoError(t, slot.Deposit(s))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := slot.Take(); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}
