package telemetry

import "sync"

// DefaultHistorySize is the number of frames kept per session.
const DefaultHistorySize = 300

// History is a fixed size ring of frames, oldest dropped first.
type History struct {
	lock   sync.RWMutex
	frames []Frame
	start  int
	size   int
}

// NewHistory creates a History holding up to size frames.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{frames: make([]Frame, size)}
}

// Push appends a frame.
func (h *History) Push(f Frame) {
	h.lock.Lock()
	defer h.lock.Unlock()
	capacity := len(h.frames)
	if h.size < capacity {
		h.frames[(h.start+h.size)%capacity] = f
		h.size++
		return
	}
	h.frames[h.start] = f
	h.start = (h.start + 1) % capacity
}

// Len returns the number of frames held.
func (h *History) Len() int {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return h.size
}

// Last returns up to n most recent frames, oldest first.
// n <= 0 returns everything.
func (h *History) Last(n int) []Frame {
	h.lock.RLock()
	defer h.lock.RUnlock()
	if n <= 0 || n > h.size {
		n = h.size
	}
	out := make([]Frame, 0, n)
	for i := h.size - n; i < h.size; i++ {
		out = append(out, h.frames[(h.start+i)%len(h.frames)])
	}
	return out
}

// Reset drops all frames.
func (h *History) Reset() {
	h.lock.Lock()
	for n := range h.frames {
		h.frames[n] = Frame{}
	}
	h.start, h.size = 0, 0
	h.lock.Unlock()
}
