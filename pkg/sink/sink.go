// Package sink publishes controller events to an MQTT broker.
package sink

import (
	"errors"
	"fmt"

	"github.com/golang/protobuf/proto"

	"github.com/triton/esclink/pkg/controller"
	"github.com/triton/esclink/pkg/sink/mqtt"
	"github.com/triton/esclink/pkg/sink/msgs"
)

// ErrNotConnected indicates the broker connection is down.
var ErrNotConnected = errors.New("broker not connected")

// Publisher is the part of mqtt.Queue used by the sink.
type Publisher interface {
	Connected() bool
	Pub(topic string, payload []byte) mqtt.Token
}

// MQTTSink publishes events under <prefix><node>/<kind>.
type MQTTSink struct {
	Queue Publisher
	Node  string
}

// New creates an MQTTSink.
func New(q Publisher, node string) *MQTTSink {
	return &MQTTSink{Queue: q, Node: node}
}

// Post implements controller.Sink. It doesn't wait for delivery.
func (s *MQTTSink) Post(ev controller.Event) error {
	suffix, msg, err := EventMessage(ev)
	if err != nil {
		return err
	}
	if !s.Queue.Connected() {
		return ErrNotConnected
	}
	data, err := proto.Marshal(msg)
	if err != nil {
		return err
	}
	s.Queue.Pub(s.Node+"/"+suffix, data)
	return nil
}

// EventMessage converts an event to its topic suffix and message.
func EventMessage(ev controller.Event) (string, proto.Message, error) {
	switch e := ev.(type) {
	case *controller.TelemetryEvent:
		return msgs.TopicTelemetry, telemetryMessage(e), nil
	case *controller.AckEvent:
		return msgs.TopicAck, &msgs.AckEvent{
			Kind:      e.Ack.KindName(),
			Value:     int32(e.Ack.Value),
			Mode:      string(e.Ack.Mode),
			Status:    e.Ack.Status.String(),
			LatencyMs: e.Latency.Milliseconds(),
		}, nil
	case *controller.StatusEvent:
		return msgs.TopicStatus, &msgs.MotorStatus{
			Phase:     e.State.Phase.String(),
			Target:    int32(e.State.Target),
			Confirmed: int32(e.State.Confirmed),
			Armed:     e.State.Armed,
			Estop:     e.State.Estop,
			Mode:      string(e.State.Mode),
		}, nil
	}
	return "", nil, fmt.Errorf("unsupported event %T", ev)
}

func telemetryMessage(e *controller.TelemetryEvent) *msgs.TelemetryEvent {
	m := &msgs.TelemetryEvent{
		TimestampMs: e.Frame.Timestamp.UnixMilli(),
		ElapsedMs:   e.Frame.Elapsed.Milliseconds(),
	}
	for n, ch := range e.Layout.Channels {
		v := e.Frame.Value(n)
		cv := &msgs.ChannelValue{Name: ch.Name}
		if v.IsFault() {
			cv.Fault = v.Raw
		} else {
			cv.Value = v.Num
		}
		m.Values = append(m.Values, cv)
		if n < len(e.Stats) && e.Stats[n].Count > 0 {
			st := e.Stats[n]
			m.Stats = append(m.Stats, &msgs.ChannelStats{
				Name:  ch.Name,
				Min:   st.Min,
				Max:   st.Max,
				Avg:   st.Avg(),
				Count: uint32(st.Count),
			})
		}
	}
	return m
}
