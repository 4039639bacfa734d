package main

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const halfBlock = "▀"

type cellColors struct {
	top, bottom color.RGBA
}

// frameRenderer draws frames with one upper half block per cell: the
// foreground is the upper pixel and the background the lower one.
type frameRenderer struct {
	cells map[cellColors]string
}

func newFrameRenderer() *frameRenderer {
	return &frameRenderer{cells: make(map[cellColors]string)}
}

// render scales img to cols x rows cells, nearest neighbour.
func (r *frameRenderer) render(img *image.RGBA, cols, rows int) string {
	if img == nil || cols <= 0 || rows <= 0 {
		return ""
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return ""
	}

	var sb strings.Builder
	for row := 0; row < rows; row++ {
		ty := b.Min.Y + (2*row)*h/(2*rows)
		by := b.Min.Y + (2*row+1)*h/(2*rows)
		for col := 0; col < cols; col++ {
			x := b.Min.X + col*w/cols
			sb.WriteString(r.cell(cellColors{
				top:    img.RGBAAt(x, ty),
				bottom: img.RGBAAt(x, by),
			}))
		}
		if row < rows-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func (r *frameRenderer) cell(c cellColors) string {
	if s, ok := r.cells[c]; ok {
		return s
	}
	// Frames shift colour continuously; keep the cache bounded.
	if len(r.cells) > 4096 {
		clear(r.cells)
	}
	s := lipgloss.NewStyle().
		Foreground(hexColor(c.top)).
		Background(hexColor(c.bottom)).
		Render(halfBlock)
	r.cells[c] = s
	return s
}

func hexColor(c color.RGBA) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
}
