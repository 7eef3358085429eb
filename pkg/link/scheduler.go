package link

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/triton/esclink/pkg/metrics"
	"github.com/triton/esclink/pkg/protocol"
)

// Channel is the half-duplex channel used by Scheduler and Receiver.
// It's implemented by Conn.
type Channel interface {
	WriteLine(line string) error
	Listen(ctx context.Context, window time.Duration) ([]string, error)
}

// TargetSource provides the idempotent command to (re)transmit.
type TargetSource interface {
	TargetCommand() protocol.Command
	LastThrottleChange() time.Time
	MarkSent(protocol.Command)
}

// AckHandler receives decoded acknowledgments.
type AckHandler interface {
	HandleAck(context.Context, protocol.Ack)
}

// HandleAckFunc is the func form of AckHandler.
type HandleAckFunc func(context.Context, protocol.Ack)

// HandleAck implements AckHandler.
func (f HandleAckFunc) HandleAck(ctx context.Context, ack protocol.Ack) {
	f(ctx, ack)
}

// TelemetryHandler receives decoded telemetry.
type TelemetryHandler interface {
	HandleTelemetry(context.Context, *protocol.Telemetry)
}

// HandleTelemetryFunc is the func form of TelemetryHandler.
type HandleTelemetryFunc func(context.Context, *protocol.Telemetry)

// HandleTelemetry implements TelemetryHandler.
func (f HandleTelemetryFunc) HandleTelemetry(ctx context.Context, t *protocol.Telemetry) {
	f(ctx, t)
}

// Timing configures the scheduler cadence.
type Timing struct {
	ActiveDwell   time.Duration `yaml:"active_dwell"`
	IdleHeartbeat time.Duration `yaml:"idle_heartbeat"`
	ActiveListen  time.Duration `yaml:"active_listen"`
	IdleListen    time.Duration `yaml:"idle_listen"`
	ActiveCadence time.Duration `yaml:"active_cadence"`
	IdleCadence   time.Duration `yaml:"idle_cadence"`
}

// DefaultTiming returns the default cadence.
func DefaultTiming() Timing {
	return Timing{
		ActiveDwell:   3 * time.Second,
		IdleHeartbeat: 2 * time.Second,
		ActiveListen:  100 * time.Millisecond,
		IdleListen:    500 * time.Millisecond,
		ActiveCadence: 150 * time.Millisecond,
		IdleCadence:   2 * time.Second,
	}
}

// Window is the listen window and sleep of one tick.
type Window struct {
	Active  bool
	Listen  time.Duration
	Cadence time.Duration
}

// Scheduler time-shares the channel on the controller side: each tick
// transmits the target command (always while active, as a heartbeat while
// idle), then listens and routes inbound lines, then sleeps the cadence.
type Scheduler struct {
	Channel   Channel
	Codec     *protocol.Codec
	Source    TargetSource
	Acks      AckHandler
	Telemetry TelemetryHandler
	Timing    Timing
	Now       func() time.Time

	// txLock orders transmissions, the target is read under it
	txLock       sync.Mutex
	lock         sync.Mutex
	lastTransmit time.Time
	wakeCh       chan struct{}
}

// NewScheduler creates a Scheduler with default timing.
func NewScheduler(ch Channel, codec *protocol.Codec, src TargetSource) *Scheduler {
	return &Scheduler{
		Channel: ch,
		Codec:   codec,
		Source:  src,
		Timing:  DefaultTiming(),
		Now:     time.Now,
		wakeCh:  make(chan struct{}, 1),
	}
}

// Window computes the window for now.
func (s *Scheduler) Window(now time.Time) Window {
	if now.Sub(s.Source.LastThrottleChange()) < s.Timing.ActiveDwell {
		return Window{Active: true, Listen: s.Timing.ActiveListen, Cadence: s.Timing.ActiveCadence}
	}
	return Window{Listen: s.Timing.IdleListen, Cadence: s.Timing.IdleCadence}
}

// Tick runs one transmit then listen cycle.
func (s *Scheduler) Tick(ctx context.Context) (Window, error) {
	now := s.Now()
	w := s.Window(now)
	metrics.SetLinkActive(w.Active)

	s.lock.Lock()
	due := w.Active || now.Sub(s.lastTransmit) >= s.Timing.IdleHeartbeat
	s.lock.Unlock()
	if due {
		if err := s.TransmitTarget(); err != nil {
			return w, err
		}
	}

	lines, err := s.Channel.Listen(ctx, w.Listen)
	for _, line := range lines {
		s.route(ctx, line)
	}
	return w, err
}

// TransmitTarget sends the current target command. It's idempotent and
// safe to call any number of times. The target is read under the same
// lock as Send, so it's never older than a command already sent.
func (s *Scheduler) TransmitTarget() error {
	s.txLock.Lock()
	defer s.txLock.Unlock()
	return s.send(s.Source.TargetCommand())
}

// Send transmits a command immediately.
func (s *Scheduler) Send(cmd protocol.Command) error {
	s.txLock.Lock()
	defer s.txLock.Unlock()
	return s.send(cmd)
}

func (s *Scheduler) send(cmd protocol.Command) error {
	if err := s.Channel.WriteLine(s.Codec.EncodeCommand(cmd)); err != nil {
		return err
	}
	s.lock.Lock()
	s.lastTransmit = s.Now()
	s.lock.Unlock()
	s.Source.MarkSent(cmd)
	metrics.ObserveFrameSent(metrics.LineCommand)
	return nil
}

// Wake cuts the current cadence sleep short.
func (s *Scheduler) Wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

// Run implements Runnable.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.wakeCh == nil {
		s.wakeCh = make(chan struct{}, 1)
	}
	for {
		w, err := s.Tick(ctx)
		if err != nil {
			glog.Warningf("tick: %v", err)
		}
		timer := time.NewTimer(w.Cadence)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-s.wakeCh:
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (s *Scheduler) route(ctx context.Context, line string) {
	switch msg := s.Codec.DecodeLine(line).(type) {
	case *protocol.Ack:
		glog.V(2).Infof("RX %s", msg)
		metrics.ObserveLineReceived(metrics.LineAck)
		if s.Acks != nil {
			s.Acks.HandleAck(ctx, *msg)
		}
	case *protocol.Telemetry:
		metrics.ObserveLineReceived(metrics.LineTelemetry)
		if s.Telemetry != nil {
			s.Telemetry.HandleTelemetry(ctx, msg)
		}
	case *protocol.Command:
		glog.V(2).Infof("discard command %s", msg)
		metrics.ObserveLineReceived(metrics.LineCommand)
	case *protocol.Malformed:
		glog.Warning(msg)
		metrics.ObserveLineReceived(metrics.LineMalformed)
	}
}
