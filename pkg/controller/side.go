package controller

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/triton/esclink/pkg/link"
	"github.com/triton/esclink/pkg/metrics"
	"github.com/triton/esclink/pkg/motor"
	"github.com/triton/esclink/pkg/protocol"
	"github.com/triton/esclink/pkg/telemetry"
)

// DefaultStatusInterval is how often the motor status is posted.
const DefaultStatusInterval = time.Second

// Side is the operator facing end of the link.
type Side struct {
	Intent         *motor.Intent
	Scheduler      *link.Scheduler
	Layout         telemetry.Layout
	History        *telemetry.History
	Stats          *telemetry.StatsSet
	Sink           Sink
	StatusInterval time.Duration
}

// New creates a Side running the scheduler on ch.
func New(ch link.Channel, layout telemetry.Layout) *Side {
	s := &Side{
		Intent:         motor.NewIntent(),
		Layout:         layout,
		History:        telemetry.NewHistory(telemetry.DefaultHistorySize),
		Stats:          telemetry.NewStatsSet(layout.Len()),
		StatusInterval: DefaultStatusInterval,
	}
	s.Scheduler = link.NewScheduler(ch, protocol.NewCodec(layout), s.Intent)
	s.Scheduler.Acks = s
	s.Scheduler.Telemetry = s
	return s
}

// Name implements Named.
func (s *Side) Name() string {
	return "controller"
}

// Run implements Runnable.
func (s *Side) Run(ctx context.Context) error {
	if s.Sink != nil && s.StatusInterval > 0 {
		go s.postStatus(ctx)
	}
	return s.Scheduler.Run(ctx)
}

// SetThrottle sets the target throttle and starts the active cadence.
func (s *Side) SetThrottle(percent int) (int, error) {
	v, err := s.Intent.SetThrottle(percent)
	if err != nil {
		return v, err
	}
	s.updateGauges()
	s.Scheduler.Wake()
	return v, nil
}

// Stop zeroes the target and sends STOP right away.
func (s *Side) Stop() error {
	if err := s.Intent.Stop(); err != nil {
		return err
	}
	s.updateGauges()
	return s.Scheduler.Send(protocol.StopCommand())
}

// Estop latches the emergency stop and sends ESTOP right away. The
// ESTOP is retransmitted until released with throttle 0.
func (s *Side) Estop() error {
	s.Intent.Estop()
	s.updateGauges()
	err := s.Scheduler.Send(protocol.EstopCommand())
	s.Scheduler.Wake()
	return err
}

// SetMode sends a MODE command.
func (s *Side) SetMode(mode protocol.Mode) error {
	if err := s.Intent.SetMode(mode); err != nil {
		return err
	}
	return s.Scheduler.Send(protocol.ModeCommand(mode))
}

// Status returns the controller view of motor state.
func (s *Side) Status() motor.State {
	return s.Intent.State()
}

// ChannelStats returns running stats of received telemetry.
func (s *Side) ChannelStats() []telemetry.Stats {
	return s.Stats.Snapshot()
}

// ResetSession clears history and stats.
func (s *Side) ResetSession() {
	s.History.Reset()
	s.Stats.Reset()
	glog.Info("session reset")
}

// HandleAck implements link.AckHandler.
func (s *Side) HandleAck(ctx context.Context, ack protocol.Ack) {
	var latency time.Duration
	if sent := s.Intent.State().LastCommand; !sent.IsZero() {
		latency = s.Scheduler.Now().Sub(sent)
	}
	s.Intent.ApplyAck(ack)
	s.updateGauges()
	metrics.ObserveAck(ack.KindName(), ack.Status.String(), latency)
	if ack.Status != protocol.StatusOK {
		glog.Warningf("vehicle rejected: %s", ack)
	}
	s.post(&AckEvent{Ack: ack, Latency: latency})
}

// HandleTelemetry implements link.TelemetryHandler.
func (s *Side) HandleTelemetry(ctx context.Context, t *protocol.Telemetry) {
	s.History.Push(t.Frame)
	s.Stats.Add(t.Frame)
	metrics.ObserveTelemetry(false)
	s.post(&TelemetryEvent{Layout: s.Layout, Frame: t.Frame, Stats: s.Stats.Snapshot()})
}

func (s *Side) post(ev Event) {
	if s.Sink == nil {
		return
	}
	if err := s.Sink.Post(ev); err != nil {
		glog.Warningf("sink: %v", err)
	}
}

func (s *Side) postStatus(ctx context.Context) {
	ticker := time.NewTicker(s.StatusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.post(&StatusEvent{State: s.Status()})
		}
	}
}

func (s *Side) updateGauges() {
	st := s.Intent.State()
	metrics.SetThrottle(st.Target, st.Confirmed)
}
