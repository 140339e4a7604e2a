// Package display presents snapshots of a drawing surface.
//
// A Display only ever receives finished frames; it never reads a surface's
// pixel buffer directly.
package display

import (
	"image"
	"sync"
)

// Display receives frames from a surface's refresh schedule.
type Display interface {
	// Show presents frame. The display may keep the image; callers must not
	// modify it afterwards.
	Show(frame image.Image)
	// Close releases the display. Frames shown after Close are dropped.
	Close() error
}

// Headless is a Display with no visible output. It keeps the most recent
// frame, which makes it useful for tests and scripted runs.
type Headless struct {
	mu     sync.Mutex
	last   image.Image
	frames int
	closed bool
}

// NewHeadless returns an empty headless display.
func NewHeadless() *Headless {
	return &Headless{}
}

// Show records frame.
func (h *Headless) Show(frame image.Image) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.last = frame
	h.frames++
}

// Close marks the display closed.
func (h *Headless) Close() error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	return nil
}

// Frame returns the last frame shown, or nil.
func (h *Headless) Frame() image.Image {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

// Frames returns how many frames have been shown.
func (h *Headless) Frames() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frames
}

// Closed reports whether Close has been called.
func (h *Headless) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}
