package telemetry

import (
	"math"
	"sync"
	"time"
)

// Reducer decides which samples are worth the radio airtime.
//
// A sample is sent when it's the first one, when any channel moved by at
// least its threshold against the last sent frame, or when Heartbeat
// elapsed since the last sent frame. Faulted values never force a frame;
// they ride in the next one sent. A sent frame becomes the baseline for
// all channels. Stats are updated
// from every sample whether sent or not.
type Reducer struct {
	Layout    Layout
	Heartbeat time.Duration

	lock     sync.Mutex
	lastSent *Frame
	stats    *StatsSet
}

// NewReducer creates a Reducer.
func NewReducer(layout Layout) *Reducer {
	return &Reducer{
		Layout:    layout,
		Heartbeat: DefaultHeartbeat,
		stats:     NewStatsSet(layout.Len()),
	}
}

// Reduce accumulates the sample and reports whether it should be sent.
func (r *Reducer) Reduce(sample Frame) (Frame, bool) {
	r.stats.Add(sample)

	r.lock.Lock()
	defer r.lock.Unlock()
	if !r.shouldSend(sample) {
		return Frame{}, false
	}
	sent := sample.Clone()
	r.lastSent = &sent
	return sent, true
}

func (r *Reducer) shouldSend(sample Frame) bool {
	last := r.lastSent
	if last == nil {
		return true
	}
	if r.Heartbeat > 0 && sample.Elapsed-last.Elapsed >= r.Heartbeat {
		return true
	}
	for n, ch := range r.Layout.Channels {
		cur, prev := sample.Value(n), last.Value(n)
		if cur.IsFault() || prev.IsFault() {
			continue
		}
		if math.Abs(cur.Num-prev.Num) >= ch.Threshold {
			return true
		}
	}
	return false
}

// Stats returns a snapshot of per-channel stats.
func (r *Reducer) Stats() []Stats {
	return r.stats.Snapshot()
}

// ResetStats clears the running stats; the send baseline is kept.
func (r *Reducer) ResetStats() {
	r.stats.Reset()
}
