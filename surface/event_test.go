package surface_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-surface/surface"
)

func TestEventEncoding(t *testing.T) {
	e := surface.Event{Kind: surface.EventPointerDown, X: -3, Y: 40, Code: 1}
	b := e.Bytes()
	require.Len(t, b, surface.EventSize)

	assert.Equal(t, []byte{4, 0, 0, 0}, b[0:4])
	assert.Equal(t, []byte{0xfd, 0xff, 0xff, 0xff}, b[4:8])
	assert.Equal(t, []byte{40, 0, 0, 0}, b[8:12])

	got, err := surface.DecodeEvent(b)
	require.NoError(t, err)
	assert.Equal(t, e, got)

	_, err = surface.DecodeEvent(b[:8])
	assert.Error(t, err)
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "pointer-move", surface.EventPointerMove.String())
	assert.Equal(t, "event(99)", surface.EventKind(99).String())
}
