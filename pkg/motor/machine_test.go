package motor

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/triton/esclink/pkg/protocol"
	"github.com/triton/esclink/pkg/telemetry"
)

type recordingActuator struct {
	writes []int
}

func (a *recordingActuator) SetPulseWidth(channel int, us int) error {
	a.writes = append(a.writes, us)
	return nil
}

func armedMachine(t *testing.T) (*Machine, *recordingActuator) {
	act := &recordingActuator{}
	m := NewMachine(act)
	m.SettleDelay = 0
	require.NoError(t, m.Arm(context.Background()))
	require.Equal(t, PhaseArmed, m.Phase())
	return m, act
}

func TestPulseWidth(t *testing.T) {
	testCases := []struct {
		percent, us int
	}{
		{-5, 1500}, {0, 1500}, {25, 1625}, {50, 1750}, {75, 1875}, {100, 2000}, {150, 2000},
	}
	for _, tc := range testCases {
		require.Equalf(t, tc.us, PulseWidth(tc.percent), "percent %d", tc.percent)
	}
}

func TestThrottleClamp(t *testing.T) {
	m, _ := armedMachine(t)
	for _, r := range []int{math.MinInt, -10, 0, 30, 74, 75, 76, 90, 100, 1000, math.MaxInt} {
		ack := m.SetThrottle(r)
		require.Equal(t, protocol.StatusOK, ack.Status)
		require.GreaterOrEqual(t, ack.Value, 0)
		require.LessOrEqual(t, ack.Value, m.SafetyMax)
	}
	ack := m.Apply(protocol.ThrottleCommand(90))
	require.Equal(t, "ACK:THROTTLE:75:OK", ack.String())
	require.Equal(t, PulseWidth(75), m.PulseWidth())

	codec := protocol.NewCodec(telemetry.Layout{})
	for _, line := range []string{"CMD:THROTTLE:99999999999999999999", "CMD:THROTTLE:1e30"} {
		cmd := codec.DecodeLine(line).(*protocol.Command)
		require.Equalf(t, "ACK:THROTTLE:75:OK", m.Apply(*cmd).String(), "line %s", line)
	}
	cmd := codec.DecodeLine("CMD:THROTTLE:-1e30").(*protocol.Command)
	require.Equal(t, "ACK:THROTTLE:0:OK", m.Apply(*cmd).String())
}

func TestSafetyMaxBelowFull(t *testing.T) {
	testCases := []struct {
		max, applied int
	}{
		{50, 50}, {99, 99}, {100, DefaultSafetyMax}, {150, DefaultSafetyMax}, {0, DefaultSafetyMax}, {-1, DefaultSafetyMax},
	}
	for _, tc := range testCases {
		m, _ := armedMachine(t)
		m.SafetyMax = tc.max
		require.Equalf(t, tc.applied, m.SetThrottle(100).Value, "safety max %d", tc.max)
	}
}

func TestThrottleIdempotent(t *testing.T) {
	m, act := armedMachine(t)
	first := m.SetThrottle(40)
	writes := len(act.writes)
	second := m.SetThrottle(40)
	require.Equal(t, first, second)
	require.Equal(t, 40, m.State().Target)
	require.Len(t, act.writes, writes)
}

func TestThrottleBeforeArmed(t *testing.T) {
	m := NewMachine(nil)
	ack := m.Apply(protocol.ThrottleCommand(20))
	require.Equal(t, "ACK:THROTTLE:0:FAIL", ack.String())
	require.Equal(t, PhaseDisarmed, m.Phase())

	ack = m.Apply(protocol.StopCommand())
	require.Equal(t, protocol.StatusOK, ack.Status)
}

func TestEstop(t *testing.T) {
	m, _ := armedMachine(t)
	m.SetThrottle(50)

	first := m.Apply(protocol.EstopCommand())
	second := m.Apply(protocol.EstopCommand())
	require.Equal(t, first, second)
	require.Equal(t, "ACK:ESTOP:0:OK", first.String())
	require.Equal(t, PhaseEstop, m.Phase())
	require.Equal(t, PulseNeutral, m.PulseWidth())

	rejected := []protocol.Command{
		protocol.ThrottleCommand(30),
		protocol.StopCommand(),
		protocol.ModeCommand(protocol.ModeActive),
		{Kind: protocol.KindUnknown, RawKind: "BOOST"},
	}
	for _, cmd := range rejected {
		ack := m.Apply(cmd)
		require.Equalf(t, protocol.StatusEstopActive, ack.Status, "%s", cmd)
		require.Equal(t, 0, ack.Value)
	}
	require.Equal(t, PhaseEstop, m.Phase())

	ack := m.Apply(protocol.ThrottleCommand(0))
	require.Equal(t, "ACK:THROTTLE:0:OK", ack.String())
	require.Equal(t, PhaseArmed, m.Phase())
	require.Equal(t, protocol.StatusOK, m.SetThrottle(20).Status)
}

func TestEstopDuringArming(t *testing.T) {
	m := NewMachine(nil)
	m.SettleDelay = 50 * time.Millisecond
	done := make(chan error, 1)
	go func() { done <- m.Arm(context.Background()) }()
	require.Eventually(t, func() bool { return m.Phase() == PhaseArming }, time.Second, time.Millisecond)
	m.Estop()
	require.NoError(t, <-done)
	require.Equal(t, PhaseEstop, m.Phase())
	require.True(t, m.State().Armed)
}

func TestArmCanceled(t *testing.T) {
	m := NewMachine(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, m.Arm(ctx), context.Canceled)
	require.Equal(t, PhaseDisarmed, m.Phase())
}

func TestSetMode(t *testing.T) {
	m, _ := armedMachine(t)
	require.Equal(t, protocol.StatusOK, m.SetMode(protocol.ModeActive).Status)
	ack := m.SetMode("TURBO")
	require.Equal(t, "ACK:MODE:TURBO:INVALID", ack.String())
	require.Equal(t, protocol.ModeActive, m.State().Mode)
}

func TestUnknownCommand(t *testing.T) {
	m, _ := armedMachine(t)
	ack := m.Apply(protocol.Command{Kind: protocol.KindUnknown, RawKind: "BOOST", Value: 3})
	require.Equal(t, "ACK:BOOST:0:UNKNOWN", ack.String())
}
