package telemetry

import (
	"math"
	"sync"
)

// Stats is the running summary of one channel.
type Stats struct {
	Min   float64
	Max   float64
	Sum   float64
	Count int
}

// Add accumulates a value.
func (s *Stats) Add(v float64) {
	if s.Count == 0 || v < s.Min {
		s.Min = v
	}
	if s.Count == 0 || v > s.Max {
		s.Max = v
	}
	s.Sum += v
	s.Count++
}

// Avg returns the mean, NaN if empty.
func (s Stats) Avg() float64 {
	if s.Count == 0 {
		return math.NaN()
	}
	return s.Sum / float64(s.Count)
}

// Reset clears the summary.
func (s *Stats) Reset() {
	*s = Stats{}
}

// StatsSet keeps per-channel Stats. It's safe for concurrent use.
type StatsSet struct {
	lock  sync.Mutex
	stats []Stats
}

// NewStatsSet creates a StatsSet for n channels.
func NewStatsSet(n int) *StatsSet {
	return &StatsSet{stats: make([]Stats, n)}
}

// Add accumulates every non-fault value of the frame.
func (s *StatsSet) Add(f Frame) {
	s.lock.Lock()
	defer s.lock.Unlock()
	for n := range s.stats {
		if v := f.Value(n); !v.IsFault() {
			s.stats[n].Add(v.Num)
		}
	}
}

// Snapshot returns a copy of the current stats.
func (s *StatsSet) Snapshot() []Stats {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]Stats(nil), s.stats...)
}

// Reset clears all channels.
func (s *StatsSet) Reset() {
	s.lock.Lock()
	for n := range s.stats {
		s.stats[n].Reset()
	}
	s.lock.Unlock()
}
