package ingest

import (
	"sync"

	"github.com/ayusman/handmirror/internal/protocol"
)

// Handoff is the single-slot cell that carries the latest decoded frame from
// the receive goroutine to foreground consumers. Publish overwrites any
// unread frame: for live mirroring, staleness matters more than
// completeness, so there is no queue and no backpressure.
//
// The mutex is held only for the pointer swap. Frames are immutable once
// published, so multiple consumers may read the same frame concurrently.
type Handoff struct {
	mu    sync.Mutex
	frame *protocol.MultiHandFrame
}

// NewHandoff returns an empty handoff cell.
func NewHandoff() *Handoff {
	return &Handoff{}
}

// Publish replaces the slot contents unconditionally.
func (h *Handoff) Publish(frame *protocol.MultiHandFrame) {
	h.mu.Lock()
	h.frame = frame
	h.mu.Unlock()
}

// Consume returns the current slot contents without removing them, or nil if
// no frame has been published yet. Independent consumers (visualization,
// actuation) each call this at their own cadence and may observe the same
// frame more than once.
func (h *Handoff) Consume() *protocol.MultiHandFrame {
	h.mu.Lock()
	frame := h.frame
	h.mu.Unlock()
	return frame
}
