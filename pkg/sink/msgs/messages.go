// Package msgs defines the protobuf messages published to the
// telemetry broker.
package msgs

import (
	"fmt"

	"github.com/golang/protobuf/proto"
)

// Topic suffixes, appended to the node topic.
const (
	TopicTelemetry = "telemetry"
	TopicAck       = "ack"
	TopicStatus    = "status"
)

// ChannelValue is one channel of a telemetry frame.
type ChannelValue struct {
	Name  string  `protobuf:"bytes,1,opt,name=name,proto3" json:"name,omitempty"`
	Value float64 `protobuf:"fixed64,2,opt,name=value,proto3" json:"value,omitempty"`
	Fault string  `protobuf:"bytes,3,opt,name=fault,proto3" json:"fault,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *ChannelValue) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ChannelValue) Reset() { *m = ChannelValue{} }

// String implements proto.Message.
func (m *ChannelValue) String() string { return proto.CompactTextString(m) }

// ChannelStats is the running summary of one channel.
type ChannelStats struct {
	Name  string  `protobuf:"bytes,1,opt,name=name,proto3" json:"name,omitempty"`
	Min   float64 `protobuf:"fixed64,2,opt,name=min,proto3" json:"min,omitempty"`
	Max   float64 `protobuf:"fixed64,3,opt,name=max,proto3" json:"max,omitempty"`
	Avg   float64 `protobuf:"fixed64,4,opt,name=avg,proto3" json:"avg,omitempty"`
	Count uint32  `protobuf:"varint,5,opt,name=count,proto3" json:"count,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *ChannelStats) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ChannelStats) Reset() { *m = ChannelStats{} }

// String implements proto.Message.
func (m *ChannelStats) String() string { return proto.CompactTextString(m) }

// TelemetryEvent is a received telemetry frame.
type TelemetryEvent struct {
	TimestampMs int64           `protobuf:"varint,1,opt,name=timestamp_ms,proto3" json:"timestamp_ms,omitempty"`
	ElapsedMs   int64           `protobuf:"varint,2,opt,name=elapsed_ms,proto3" json:"elapsed_ms,omitempty"`
	Values      []*ChannelValue `protobuf:"bytes,3,rep,name=values,proto3" json:"values,omitempty"`
	Stats       []*ChannelStats `protobuf:"bytes,4,rep,name=stats,proto3" json:"stats,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *TelemetryEvent) ProtoMessage() {}

// Reset implements proto.Message.
func (m *TelemetryEvent) Reset() { *m = TelemetryEvent{} }

// String implements proto.Message.
func (m *TelemetryEvent) String() string { return proto.CompactTextString(m) }

// AckEvent is a received acknowledgment.
type AckEvent struct {
	Kind      string `protobuf:"bytes,1,opt,name=kind,proto3" json:"kind,omitempty"`
	Value     int32  `protobuf:"varint,2,opt,name=value,proto3" json:"value,omitempty"`
	Mode      string `protobuf:"bytes,3,opt,name=mode,proto3" json:"mode,omitempty"`
	Status    string `protobuf:"bytes,4,opt,name=status,proto3" json:"status,omitempty"`
	LatencyMs int64  `protobuf:"varint,5,opt,name=latency_ms,proto3" json:"latency_ms,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *AckEvent) ProtoMessage() {}

// Reset implements proto.Message.
func (m *AckEvent) Reset() { *m = AckEvent{} }

// String implements proto.Message.
func (m *AckEvent) String() string { return proto.CompactTextString(m) }

// MotorStatus is the controller view of the motor.
type MotorStatus struct {
	Phase     string `protobuf:"bytes,1,opt,name=phase,proto3" json:"phase,omitempty"`
	Target    int32  `protobuf:"varint,2,opt,name=target,proto3" json:"target,omitempty"`
	Confirmed int32  `protobuf:"varint,3,opt,name=confirmed,proto3" json:"confirmed,omitempty"`
	Armed     bool   `protobuf:"varint,4,opt,name=armed,proto3" json:"armed,omitempty"`
	Estop     bool   `protobuf:"varint,5,opt,name=estop,proto3" json:"estop,omitempty"`
	Mode      string `protobuf:"bytes,6,opt,name=mode,proto3" json:"mode,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *MotorStatus) ProtoMessage() {}

// Reset implements proto.Message.
func (m *MotorStatus) Reset() { *m = MotorStatus{} }

// String implements proto.Message.
func (m *MotorStatus) String() string { return proto.CompactTextString(m) }

// MessageTypes maps topic suffixes to message factories.
var MessageTypes = map[string]func() proto.Message{
	TopicTelemetry: func() proto.Message { return &TelemetryEvent{} },
	TopicAck:       func() proto.Message { return &AckEvent{} },
	TopicStatus:    func() proto.Message { return &MotorStatus{} },
}

// ErrUnknownTopic indicates no message type is registered for a topic.
type ErrUnknownTopic struct {
	Topic string
}

// Error implements error.
func (e *ErrUnknownTopic) Error() string {
	return fmt.Sprintf("unknown topic: %q", e.Topic)
}

// Decode decodes payload according to the topic suffix.
func Decode(suffix string, payload []byte) (proto.Message, error) {
	factory, ok := MessageTypes[suffix]
	if !ok {
		return nil, &ErrUnknownTopic{Topic: suffix}
	}
	msg := factory()
	if err := proto.Unmarshal(payload, msg); err != nil {
		return nil, err
	}
	return msg, nil
}
