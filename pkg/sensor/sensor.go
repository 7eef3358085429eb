package sensor

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/triton/esclink/pkg/telemetry"
)

// ErrReadFailed is returned by simulated faults.
var ErrReadFailed = errors.New("sensor read failed")

// Reader reads one channel value.
type Reader interface {
	ReadChannel(name string) (float64, error)
}

// ReadFrame samples every channel of layout. A failed read becomes a
// fault marker in the frame.
func ReadFrame(r Reader, layout telemetry.Layout, now time.Time, elapsed time.Duration) telemetry.Frame {
	f := telemetry.Frame{
		Timestamp: now,
		Elapsed:   elapsed,
		Values:    make([]telemetry.Value, layout.Len()),
	}
	for n, ch := range layout.Channels {
		v, err := r.ReadChannel(ch.Name)
		if err != nil {
			glog.V(1).Infof("read %s: %v", ch.Name, err)
			f.Values[n] = telemetry.Fault(telemetry.FaultMarker)
			continue
		}
		f.Values[n] = telemetry.Num(v)
	}
	return f
}

// walk is a bounded random walk.
type walk struct {
	value, step, min, max float64
}

// Simulated produces plausible readings for bench runs.
type Simulated struct {
	// FaultRate is the probability of a failed read, in [0, 1].
	FaultRate float64

	lock  sync.Mutex
	rand  *rand.Rand
	walks map[string]*walk
}

// NewSimulated creates a Simulated reader seeded with seed.
func NewSimulated(seed int64) *Simulated {
	return &Simulated{
		rand: rand.New(rand.NewSource(seed)),
		walks: map[string]*walk{
			"temp_bme280": {value: 21, step: 0.05, min: -20, max: 60},
			"humidity":    {value: 45, step: 0.2, min: 0, max: 100},
			"pressure":    {value: 1013.25, step: 0.1, min: 900, max: 1100},
			"altitude":    {value: 120, step: 0.1, min: -100, max: 3000},
			"acc_x":       {value: 0, step: 0.05, min: -20, max: 20},
			"acc_y":       {value: 0, step: 0.05, min: -20, max: 20},
			"acc_z":       {value: 9.81, step: 0.05, min: -20, max: 20},
			"gyro_x":      {value: 0, step: 1, min: -250, max: 250},
			"gyro_y":      {value: 0, step: 1, min: -250, max: 250},
			"gyro_z":      {value: 0, step: 1, min: -250, max: 250},
			"temp_mpu":    {value: 24, step: 0.05, min: -20, max: 85},
		},
	}
}

// ReadChannel implements Reader.
func (s *Simulated) ReadChannel(name string) (float64, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	w := s.walks[name]
	if w == nil {
		return 0, fmt.Errorf("unknown channel %q", name)
	}
	if s.FaultRate > 0 && s.rand.Float64() < s.FaultRate {
		return 0, ErrReadFailed
	}
	w.value += (s.rand.Float64()*2 - 1) * w.step
	if w.value < w.min {
		w.value = w.min
	} else if w.value > w.max {
		w.value = w.max
	}
	return w.value, nil
}
