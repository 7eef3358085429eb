package controller

import (
	"time"

	"github.com/triton/esclink/pkg/motor"
	"github.com/triton/esclink/pkg/protocol"
	"github.com/triton/esclink/pkg/telemetry"
)

// Event is posted to a Sink: *TelemetryEvent, *AckEvent or *StatusEvent.
type Event interface{}

// TelemetryEvent carries a received frame with running stats.
type TelemetryEvent struct {
	Layout telemetry.Layout
	Frame  telemetry.Frame
	Stats  []telemetry.Stats
}

// AckEvent carries a received acknowledgment.
type AckEvent struct {
	Ack     protocol.Ack
	Latency time.Duration
}

// StatusEvent carries the controller view of motor state.
type StatusEvent struct {
	State motor.State
}

// Sink receives events fire-and-forget. Errors are logged by the
// caller and otherwise ignored.
type Sink interface {
	Post(Event) error
}

// SinkFunc is the func form of Sink.
type SinkFunc func(Event) error

// Post implements Sink.
func (f SinkFunc) Post(ev Event) error {
	return f(ev)
}
