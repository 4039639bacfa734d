package main

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRenderFrameShape(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.SetRGBA(0, 0, color.RGBA{R: 0xff, A: 0xff})
	img.SetRGBA(0, 1, color.RGBA{B: 0xff, A: 0xff})

	r := newFrameRenderer()
	out := r.render(img, 4, 2)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Equal(t, 4, strings.Count(line, halfBlock))
	}
	assert.Len(t, r.cells, 2, "one red-over-blue cell and the black ones")
	_, ok := r.cells[cellColors{top: color.RGBA{R: 0xff, A: 0xff}, bottom: color.RGBA{B: 0xff, A: 0xff}}]
	assert.True(t, ok)
}

func TestRenderFrameScales(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	out := newFrameRenderer().render(img, 8, 3)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, 8, strings.Count(lines[0], halfBlock))
}

func TestRenderFrameEmpty(t *testing.T) {
	r := newFrameRenderer()
	assert.Empty(t, r.render(nil, 4, 4))
	assert.Empty(t, r.render(image.NewRGBA(image.Rect(0, 0, 4, 4)), 0, 4))
}

func TestHexColor(t *testing.T) {
	assert.EqualValues(t, "#1a2b3c", hexColor(color.RGBA{R: 0x1a, G: 0x2b, B: 0x3c}))
}

func TestWindowPresentCopies(t *testing.T) {
	w := newWindow(2, 2)
	assert.NotEqual(t, newWindow(1, 1).ID(), w.ID())

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Pix[0] = 9
	require.NoError(t, w.Present(img))
	img.Pix[0] = 1

	w.SetVisible(true)
	snap, visible := w.snapshot()
	assert.True(t, visible)
	assert.Equal(t, uint8(9), snap.Pix[0])
	assert.Equal(t, uint64(1), w.presented())

	w.resize(8, 6)
	width, height := w.Size()
	assert.Equal(t, 8, width)
	assert.Equal(t, 6, height)
}

func TestWatcherSignalsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guest.wasm")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	w, err := newWatcher(path, zap.NewNop())
	require.NoError(t, err)
	defer w.Close()

	// Unrelated files in the same directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))
	select {
	case <-w.Events():
		t.Fatal("change to another file triggered a reload")
	case <-time.After(3 * reloadDebounce):
	}

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
	select {
	case _, ok := <-w.Events():
		assert.True(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after the module changed")
	}

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}

func TestNilWatcher(t *testing.T) {
	var w *watcher
	assert.Nil(t, w.Events())
	assert.NoError(t, w.Close())
}
