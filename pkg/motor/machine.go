package motor

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/triton/esclink/pkg/protocol"
)

// Defaults of the vehicle state machine.
const (
	DefaultSafetyMax   = 75
	DefaultSettleDelay = 2 * time.Second
	DefaultChannel     = 0
)

// Machine is the vehicle side motor state machine:
//
//	DISARMED -> ARMING -> ARMED <-> ESTOP
//
// It clamps every throttle request to SafetyMax and reports the
// value actually applied in the returned Ack.
type Machine struct {
	Actuator    Actuator
	Channel     int
	SafetyMax   int
	SettleDelay time.Duration
	Now         func() time.Time

	lock        sync.Mutex
	phase       Phase
	estop       bool
	throttle    int
	mode        protocol.Mode
	pulse       int
	lastCommand time.Time
}

// NewMachine creates a DISARMED Machine.
func NewMachine(act Actuator) *Machine {
	return &Machine{
		Actuator:    act,
		Channel:     DefaultChannel,
		SafetyMax:   DefaultSafetyMax,
		SettleDelay: DefaultSettleDelay,
		Now:         time.Now,
		mode:        protocol.ModePassive,
		pulse:       PulseNeutral,
	}
}

// Arm outputs neutral, waits for the ESC to settle and moves to ARMED.
// An ESTOP latched meanwhile stays in effect.
func (m *Machine) Arm(ctx context.Context) error {
	m.lock.Lock()
	if m.phase != PhaseDisarmed {
		m.lock.Unlock()
		return nil
	}
	m.phase = PhaseArming
	m.throttle, m.pulse = 0, PulseNeutral
	var err error
	if m.Actuator != nil {
		err = m.Actuator.SetPulseWidth(m.Channel, PulseNeutral)
	}
	m.lock.Unlock()
	if err != nil {
		glog.Warningf("arm: neutral output failed: %v", err)
	}
	glog.Infof("arming, settle %s", m.SettleDelay)

	timer := time.NewTimer(m.SettleDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		m.lock.Lock()
		if m.phase == PhaseArming {
			m.phase = PhaseDisarmed
		}
		m.lock.Unlock()
		return ctx.Err()
	case <-timer.C:
	}

	m.lock.Lock()
	m.phase = PhaseArmed
	estop := m.estop
	m.lock.Unlock()
	glog.Infof("armed (estop=%v)", estop)
	return nil
}

// Apply executes a decoded command and returns its Ack.
func (m *Machine) Apply(cmd protocol.Command) protocol.Ack {
	switch cmd.Kind {
	case protocol.KindThrottle:
		return m.SetThrottle(cmd.Value)
	case protocol.KindStop:
		return m.Stop()
	case protocol.KindEstop:
		return m.Estop()
	case protocol.KindMode:
		return m.SetMode(cmd.Mode)
	}

	m.lock.Lock()
	defer m.lock.Unlock()
	m.lastCommand = m.Now()
	if m.estop {
		return protocol.AckFor(cmd, m.throttle, protocol.StatusEstopActive)
	}
	return protocol.AckFor(cmd, 0, protocol.StatusUnknown)
}

// SetThrottle applies a throttle request. While ESTOP only 0 is
// accepted, which releases the emergency stop.
func (m *Machine) SetThrottle(percent int) protocol.Ack {
	cmd := protocol.ThrottleCommand(percent)
	m.lock.Lock()
	defer m.lock.Unlock()
	m.lastCommand = m.Now()

	if m.estop {
		if percent != 0 {
			return protocol.AckFor(cmd, m.throttle, protocol.StatusEstopActive)
		}
		m.estop = false
		glog.Info("estop released")
		return m.ackApplied(cmd, 0)
	}
	if m.phase != PhaseArmed {
		return protocol.AckFor(cmd, m.throttle, protocol.StatusFail)
	}
	return m.ackApplied(cmd, clamp(percent, 0, m.safetyMax()))
}

// Stop brings the throttle to neutral. Allowed before ARMED.
func (m *Machine) Stop() protocol.Ack {
	cmd := protocol.StopCommand()
	m.lock.Lock()
	defer m.lock.Unlock()
	m.lastCommand = m.Now()
	if m.estop {
		return protocol.AckFor(cmd, m.throttle, protocol.StatusEstopActive)
	}
	return m.ackApplied(cmd, 0)
}

// Estop latches the emergency stop. It's unconditional and idempotent.
func (m *Machine) Estop() protocol.Ack {
	cmd := protocol.EstopCommand()
	m.lock.Lock()
	defer m.lock.Unlock()
	m.lastCommand = m.Now()
	if !m.estop {
		glog.Warning("estop latched")
	}
	m.estop = true
	return m.ackApplied(cmd, 0)
}

// SetMode switches the operating mode.
func (m *Machine) SetMode(mode protocol.Mode) protocol.Ack {
	cmd := protocol.ModeCommand(mode)
	m.lock.Lock()
	defer m.lock.Unlock()
	m.lastCommand = m.Now()
	switch {
	case m.estop:
		return protocol.AckFor(cmd, m.throttle, protocol.StatusEstopActive)
	case !cmd.Mode.Valid():
		return protocol.AckFor(cmd, m.throttle, protocol.StatusInvalid)
	}
	m.mode = cmd.Mode
	return protocol.AckFor(cmd, m.throttle, protocol.StatusOK)
}

// PulseWidth is the pulse width the output should carry now.
func (m *Machine) PulseWidth() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.pulse
}

// Phase returns the effective phase.
func (m *Machine) Phase() Phase {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.phaseLocked()
}

// State returns a snapshot.
func (m *Machine) State() State {
	m.lock.Lock()
	defer m.lock.Unlock()
	return State{
		Phase:       m.phaseLocked(),
		Target:      m.throttle,
		Confirmed:   m.throttle,
		Armed:       m.phase == PhaseArmed,
		Estop:       m.estop,
		Mode:        m.mode,
		LastCommand: m.lastCommand,
	}
}

func (m *Machine) phaseLocked() Phase {
	if m.estop {
		return PhaseEstop
	}
	return m.phase
}

func (m *Machine) safetyMax() int {
	if !ValidSafetyMax(m.SafetyMax) {
		return DefaultSafetyMax
	}
	return m.SafetyMax
}

func (m *Machine) ackApplied(cmd protocol.Command, percent int) protocol.Ack {
	if err := m.applyLocked(percent); err != nil {
		glog.Warningf("output pwm%d: %v", m.Channel, err)
	}
	return protocol.AckFor(cmd, percent, protocol.StatusOK)
}

// applyLocked updates the throttle, writing the actuator only on change.
func (m *Machine) applyLocked(percent int) error {
	pulse := PulseWidth(percent)
	changed := pulse != m.pulse
	m.throttle, m.pulse = percent, pulse
	if !changed || m.Actuator == nil {
		return nil
	}
	glog.V(2).Infof("throttle %d%% -> %dus", percent, pulse)
	return m.Actuator.SetPulseWidth(m.Channel, pulse)
}

// ValidSafetyMax reports whether max is a usable ceiling, strictly
// below full throttle.
func ValidSafetyMax(max int) bool {
	return max > 0 && max < 100
}
