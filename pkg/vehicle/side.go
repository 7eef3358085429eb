package vehicle

import (
	"context"
	"io"
	"time"

	"github.com/golang/glog"

	fx "github.com/triton/esclink/pkg/framework"
	"github.com/triton/esclink/pkg/link"
	"github.com/triton/esclink/pkg/metrics"
	"github.com/triton/esclink/pkg/motor"
	"github.com/triton/esclink/pkg/protocol"
	"github.com/triton/esclink/pkg/sensor"
	"github.com/triton/esclink/pkg/telemetry"
)

const neutralHold = 100 * time.Millisecond

type commandMsg struct {
	cmd protocol.Command
}

// Side is the vehicle end of the link. It's added to a control loop:
// a receiver posts decoded commands, the command controller applies
// them and acknowledges, the reporter samples telemetry, and a refresher
// drives the PWM output independently of the link.
type Side struct {
	Machine         *motor.Machine
	Channel         link.Channel
	Codec           *protocol.Codec
	Actuator        motor.Actuator
	PWMChannel      int
	RefreshInterval time.Duration
	Sensors         sensor.Reader
	Reducer         *telemetry.Reducer
	SampleInterval  time.Duration
	PollWindow      time.Duration

	start      time.Time
	lastSample time.Time
}

// New creates a Side.
func New(m *motor.Machine, ch link.Channel, layout telemetry.Layout, sensors sensor.Reader) *Side {
	return &Side{
		Machine:         m,
		Channel:         ch,
		Codec:           protocol.NewCodec(layout),
		Actuator:        m.Actuator,
		PWMChannel:      m.Channel,
		RefreshInterval: motor.DefaultPeriod,
		Sensors:         sensors,
		Reducer:         telemetry.NewReducer(layout),
		SampleInterval:  100 * time.Millisecond,
		PollWindow:      link.DefaultPollWindow,
	}
}

// AddToLoop implements LoopAdder.
func (s *Side) AddToLoop(loop *fx.Loop) {
	receiver := link.NewReceiver(s.Channel, s.Codec, link.HandleCommandFunc(s.postCommand))
	receiver.Window = s.PollWindow
	loop.AddRunnable(
		receiver,
		fx.NamedRun("arm", fx.RunFunc(s.arm)),
		fx.NamedRun("refresh", fx.RunFunc(s.refresh)),
	)
	loop.AddController(fx.PrLvControl, fx.ControlFunc(s.applyCommands))
	if s.Sensors != nil {
		loop.AddController(fx.PrLvReport, fx.ControlFunc(s.report))
	}
}

func (s *Side) postCommand(ctx context.Context, cmd protocol.Command) {
	ctl := fx.LoopCtlFrom(ctx)
	ctl.PostMessage(&commandMsg{cmd: cmd})
	ctl.TriggerNext()
}

func (s *Side) arm(ctx context.Context) error {
	if err := s.Machine.Arm(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *Side) applyCommands(cc fx.ControlContext) error {
	var acks []protocol.Ack
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
		if msg, ok := mctx.CurrentMessage().(*commandMsg); ok {
			mctx.MessageTaken()
			acks = append(acks, s.Machine.Apply(msg.cmd))
		}
	}))
	for _, ack := range acks {
		glog.V(1).Infof("%s", ack)
		metrics.ObserveAck(ack.KindName(), ack.Status.String(), 0)
		if err := s.Channel.WriteLine(s.Codec.EncodeAck(ack)); err != nil {
			return err
		}
		metrics.ObserveFrameSent(metrics.LineAck)
	}
	if len(acks) > 0 {
		st := s.Machine.State()
		metrics.SetThrottle(st.Target, st.Confirmed)
	}
	return nil
}

func (s *Side) report(cc fx.ControlContext) error {
	now := cc.Time()
	if s.start.IsZero() {
		s.start = now
	} else if now.Sub(s.lastSample) < s.SampleInterval {
		return nil
	}
	s.lastSample = now
	sample := sensor.ReadFrame(s.Sensors, s.Reducer.Layout, now, now.Sub(s.start))
	frame, send := s.Reducer.Reduce(sample)
	metrics.ObserveTelemetry(send)
	if !send {
		return nil
	}
	if err := s.Channel.WriteLine(s.Codec.EncodeTelemetry(frame)); err != nil {
		return err
	}
	metrics.ObserveFrameSent(metrics.LineTelemetry)
	return nil
}

// refresh rewrites the pulse width at a fixed rate. It reads the
// machine only, so link I/O never delays it.
func (s *Side) refresh(ctx context.Context) error {
	if s.Actuator == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	interval := s.RefreshInterval
	if interval <= 0 {
		interval = motor.DefaultPeriod
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.shutdownOutput()
			return ctx.Err()
		case <-ticker.C:
			if err := s.Actuator.SetPulseWidth(s.PWMChannel, s.Machine.PulseWidth()); err != nil {
				glog.V(1).Infof("refresh pwm%d: %v", s.PWMChannel, err)
			}
		}
	}
}

func (s *Side) shutdownOutput() {
	s.Machine.Stop()
	if err := s.Actuator.SetPulseWidth(s.PWMChannel, motor.PulseNeutral); err != nil {
		glog.Warningf("neutral on shutdown: %v", err)
	}
	time.Sleep(neutralHold)
	if closer, ok := s.Actuator.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			glog.Warningf("close pwm: %v", err)
		}
	}
	glog.Info("pwm output stopped")
}
