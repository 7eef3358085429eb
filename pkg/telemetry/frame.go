package telemetry

import (
	"fmt"
	"time"
)

// FaultMarker is the raw value carried for a failed read.
const FaultMarker = "ERR"

// Value is either a number or a raw fault string.
type Value struct {
	Num float64
	Raw string
}

// Num creates a numeric Value.
func Num(v float64) Value {
	return Value{Num: v}
}

// Fault creates a fault Value carrying raw text.
func Fault(raw string) Value {
	if raw == "" {
		raw = FaultMarker
	}
	return Value{Raw: raw}
}

// IsFault indicates the channel read failed.
func (v Value) IsFault() bool {
	return v.Raw != ""
}

// String implements fmt.Stringer.
func (v Value) String() string {
	if v.IsFault() {
		return v.Raw
	}
	return fmt.Sprintf("%g", v.Num)
}

// Frame is one sample of all channels in layout order.
type Frame struct {
	Timestamp time.Time
	// Elapsed is the sensor time axis, from sampler start.
	Elapsed time.Duration
	Values  []Value
}

// Value returns the value at index n, a fault if out of range.
func (f Frame) Value(n int) Value {
	if n < 0 || n >= len(f.Values) {
		return Fault("")
	}
	return f.Values[n]
}

// Clone returns a deep copy.
func (f Frame) Clone() Frame {
	c := f
	c.Values = append([]Value(nil), f.Values...)
	return c
}
