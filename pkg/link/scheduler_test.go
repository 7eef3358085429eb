package link

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/triton/esclink/pkg/motor"
	"github.com/triton/esclink/pkg/protocol"
	"github.com/triton/esclink/pkg/telemetry"
)

type testChannel struct {
	written []string
	windows []time.Duration
	inbound [][]string
	listen  func()
}

func (c *testChannel) WriteLine(line string) error {
	c.written = append(c.written, line)
	return nil
}

func (c *testChannel) Listen(ctx context.Context, window time.Duration) ([]string, error) {
	c.windows = append(c.windows, window)
	if c.listen != nil {
		c.listen()
	}
	if len(c.inbound) == 0 {
		return nil, nil
	}
	lines := c.inbound[0]
	c.inbound = c.inbound[1:]
	return lines, nil
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func newTestScheduler() (*Scheduler, *testChannel, *motor.Intent, *testClock) {
	clock := &testClock{now: time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)}
	intent := motor.NewIntent()
	intent.Now = clock.Now
	ch := &testChannel{}
	codec := protocol.NewCodec(telemetry.Layout{Channels: []telemetry.Channel{{Name: "temp", Decimals: 1}}})
	s := NewScheduler(ch, codec, intent)
	s.Now = clock.Now
	return s, ch, intent, clock
}

func TestSchedulerCadence(t *testing.T) {
	s, ch, intent, clock := newTestScheduler()
	// idle since epoch; the first tick is a heartbeat
	clock.now = clock.now.Add(time.Hour)

	w, err := s.Tick(context.Background())
	require.NoError(t, err)
	require.False(t, w.Active)
	require.Equal(t, 2*time.Second, w.Cadence)
	require.Equal(t, []time.Duration{500 * time.Millisecond}, ch.windows)
	require.Equal(t, []string{"CMD:THROTTLE:0\n"}, ch.written)

	// idle, heartbeat not yet due
	clock.now = clock.now.Add(time.Second)
	_, err = s.Tick(context.Background())
	require.NoError(t, err)
	require.Len(t, ch.written, 1)

	clock.now = clock.now.Add(time.Second)
	_, err = s.Tick(context.Background())
	require.NoError(t, err)
	require.Len(t, ch.written, 2)

	// throttle change makes every tick transmit
	_, err = intent.SetThrottle(30)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		clock.now = clock.now.Add(150 * time.Millisecond)
		w, err = s.Tick(context.Background())
		require.NoError(t, err)
		require.True(t, w.Active)
		require.Equal(t, 100*time.Millisecond, w.Listen)
		require.Equal(t, 150*time.Millisecond, w.Cadence)
	}
	require.Len(t, ch.written, 5)
	require.Equal(t, "CMD:THROTTLE:30\n", ch.written[4])

	// dwell expired
	clock.now = intent.LastThrottleChange().Add(3 * time.Second)
	require.False(t, s.Window(clock.now).Active)
}

func TestSchedulerTransmitsBeforeListening(t *testing.T) {
	s, ch, _, _ := newTestScheduler()
	var writtenAtListen int
	ch.listen = func() { writtenAtListen = len(ch.written) }
	_, err := s.Tick(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, writtenAtListen)
}

func TestSchedulerRoutesLines(t *testing.T) {
	s, ch, intent, _ := newTestScheduler()
	var acks []protocol.Ack
	var frames []*protocol.Telemetry
	s.Acks = HandleAckFunc(func(ctx context.Context, ack protocol.Ack) {
		acks = append(acks, ack)
		intent.ApplyAck(ack)
	})
	s.Telemetry = HandleTelemetryFunc(func(ctx context.Context, tm *protocol.Telemetry) {
		frames = append(frames, tm)
	})
	ch.inbound = [][]string{{
		"ACK:THROTTLE:75:OK",
		"CMD:THR",
		"2026-10-16T00:00:00.000Z,1.000,20.5",
		"CMD:THROTTLE:10",
		"ACK:ESTOP",
	}}
	_, err := intent.SetThrottle(90)
	require.NoError(t, err)
	_, err = s.Tick(context.Background())
	require.NoError(t, err)

	require.Len(t, acks, 1)
	require.Equal(t, 75, acks[0].Value)
	require.Equal(t, 75, intent.State().Confirmed)
	require.Equal(t, 90, intent.State().Target)
	require.Len(t, frames, 1)
	require.Equal(t, []telemetry.Value{telemetry.Num(20.5)}, frames[0].Values)
}

func TestSchedulerRetransmitConverges(t *testing.T) {
	s, ch, intent, clock := newTestScheduler()
	_, err := intent.SetThrottle(40)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		clock.now = clock.now.Add(150 * time.Millisecond)
		_, err = s.Tick(context.Background())
		require.NoError(t, err)
	}
	for _, line := range ch.written {
		require.Equal(t, "CMD:THROTTLE:40\n", line)
	}
	require.NotZero(t, intent.State().LastCommand)
}

func TestSchedulerWake(t *testing.T) {
	s, ch, _, _ := newTestScheduler()
	s.Now = time.Now
	s.Timing.IdleCadence = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	ticks := make(chan struct{}, 4)
	ch.listen = func() { ticks <- struct{}{} }
	go func() { done <- s.Run(ctx) }()
	<-ticks
	s.Wake()
	select {
	case <-ticks:
	case <-time.After(time.Second):
		t.Fatal("wake didn't trigger a tick")
	}
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

// busyChannel models a Conn whose lock is held by a listen window.
type busyChannel struct {
	busy    sync.Mutex
	lock    sync.Mutex
	written []string
}

func (c *busyChannel) WriteLine(line string) error {
	c.busy.Lock()
	defer c.busy.Unlock()
	c.lock.Lock()
	c.written = append(c.written, line)
	c.lock.Unlock()
	return nil
}

func (c *busyChannel) Listen(ctx context.Context, window time.Duration) ([]string, error) {
	return nil, nil
}

type signalingSource struct {
	*motor.Intent
	read chan struct{}
}

func (s *signalingSource) TargetCommand() protocol.Command {
	cmd := s.Intent.TargetCommand()
	select {
	case s.read <- struct{}{}:
	default:
	}
	return cmd
}

func TestSchedulerEstopNotOvertakenByStaleTarget(t *testing.T) {
	intent := motor.NewIntent()
	src := &signalingSource{Intent: intent, read: make(chan struct{}, 1)}
	ch := &busyChannel{}
	s := NewScheduler(ch, protocol.NewCodec(telemetry.Layout{}), src)

	ch.busy.Lock()
	heartbeat := make(chan error, 1)
	go func() { heartbeat <- s.TransmitTarget() }()
	<-src.read

	intent.Estop()
	estop := make(chan error, 1)
	go func() { estop <- s.Send(protocol.EstopCommand()) }()
	time.Sleep(20 * time.Millisecond)
	ch.busy.Unlock()

	require.NoError(t, <-heartbeat)
	require.NoError(t, <-estop)
	require.Equal(t, []string{"CMD:THROTTLE:0\n", "CMD:ESTOP:0\n"}, ch.written)
}
