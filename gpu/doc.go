// Package gpu provides the process-wide graphics instance shared by every
// guest session, and the graphics contexts guests draw through.
//
// The backend is a software target: textures and frame buffers are
// *image.RGBA and presenting copies the buffer to the connected surface's
// window. The Instance is created once per process by Shared and is never
// replaced; sessions hold it by pointer.
package gpu
