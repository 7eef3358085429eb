package sensor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/triton/esclink/pkg/telemetry"
)

func TestReadFrame(t *testing.T) {
	layout := telemetry.DefaultLayout()
	layout.Channels = append(layout.Channels, telemetry.Channel{Name: "missing"})
	now := time.Now()
	f := ReadFrame(NewSimulated(1), layout, now, time.Second)
	require.Equal(t, now, f.Timestamp)
	require.Equal(t, time.Second, f.Elapsed)
	require.Len(t, f.Values, layout.Len())
	for n := 0; n < layout.Len()-1; n++ {
		require.False(t, f.Values[n].IsFault())
	}
	require.Equal(t, telemetry.Fault(""), f.Values[layout.Len()-1])
}

func TestSimulatedFaults(t *testing.T) {
	s := NewSimulated(1)
	s.FaultRate = 1
	_, err := s.ReadChannel("temp_bme280")
	require.ErrorIs(t, err, ErrReadFailed)

	s.FaultRate = 0
	v, err := s.ReadChannel("temp_bme280")
	require.NoError(t, err)
	require.InDelta(t, 21, v, 0.05)
}
