package gpu

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// RGBA unpacks a 0xRRGGBBAA color.
func RGBA(packed uint32) color.RGBA {
	return color.RGBA{
		R: uint8(packed >> 24),
		G: uint8(packed >> 16),
		B: uint8(packed >> 8),
		A: uint8(packed),
	}
}

// Fill paints img with a packed 0xRRGGBBAA color.
func Fill(img *image.RGBA, packed uint32) {
	draw.Draw(img, img.Bounds(), &image.Uniform{C: RGBA(packed)}, image.Point{}, draw.Src)
}

// WritePixels copies raw RGBA bytes into img starting at byte offset.
func WritePixels(img *image.RGBA, offset int, data []byte) error {
	if offset < 0 || offset > len(img.Pix) || len(data) > len(img.Pix)-offset {
		return fmt.Errorf("gpu: write of %d bytes at %d exceeds %d byte buffer", len(data), offset, len(img.Pix))
	}
	copy(img.Pix[offset:], data)
	return nil
}
