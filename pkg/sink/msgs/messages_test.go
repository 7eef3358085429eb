package msgs

import (
	"testing"

	"github.com/golang/protobuf/proto"
	"github.com/stretchr/testify/require"
)

func TestDecodeByTopic(t *testing.T) {
	ev := &TelemetryEvent{
		TimestampMs: 1760000000000,
		ElapsedMs:   1500,
		Values:      []*ChannelValue{{Name: "temp", Value: 20.5}, {Name: "hum", Fault: "ERR"}},
		Stats:       []*ChannelStats{{Name: "temp", Min: 20, Max: 21, Avg: 20.5, Count: 4}},
	}
	data, err := proto.Marshal(ev)
	require.NoError(t, err)

	msg, err := Decode(TopicTelemetry, data)
	require.NoError(t, err)
	require.True(t, proto.Equal(ev, msg))

	_, err = Decode("nope", data)
	var unknown *ErrUnknownTopic
	require.ErrorAs(t, err, &unknown)
}
