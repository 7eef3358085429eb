package motor

import (
	"sync"
	"time"

	"github.com/triton/esclink/pkg/protocol"
)

// Intent is the controller side view of the motor: what the operator
// wants (target) and what the vehicle last acknowledged (confirmed).
// Confirmed is only ever updated from an Ack.
type Intent struct {
	Now func() time.Time

	lock               sync.Mutex
	target             int
	confirmed          int
	armed              bool
	estop              bool
	mode               protocol.Mode
	lastCommand        time.Time
	lastAck            time.Time
	lastThrottleChange time.Time
}

// NewIntent creates an Intent.
func NewIntent() *Intent {
	return &Intent{Now: time.Now, mode: protocol.ModePassive}
}

// SetThrottle sets the target percentage, clamped to [0, 100]. The
// vehicle applies its own safety limit. While ESTOP only 0 is accepted,
// which requests the vehicle to release the emergency stop.
func (i *Intent) SetThrottle(percent int) (int, error) {
	percent = clamp(percent, 0, 100)
	i.lock.Lock()
	defer i.lock.Unlock()
	if i.estop {
		if percent != 0 {
			return i.target, ErrEstopActive
		}
		i.estop = false
		i.lastThrottleChange = i.Now()
		return 0, nil
	}
	if percent != i.target {
		i.target = percent
		i.lastThrottleChange = i.Now()
	}
	return percent, nil
}

// Stop sets the target to 0.
func (i *Intent) Stop() error {
	i.lock.Lock()
	defer i.lock.Unlock()
	if i.estop {
		return ErrEstopActive
	}
	i.target = 0
	i.lastThrottleChange = i.Now()
	return nil
}

// Estop latches the emergency stop locally and zeroes the target.
func (i *Intent) Estop() {
	i.lock.Lock()
	i.estop, i.target = true, 0
	i.lastThrottleChange = i.Now()
	i.lock.Unlock()
}

// SetMode validates and records the requested mode.
func (i *Intent) SetMode(mode protocol.Mode) error {
	if !mode.Valid() {
		return ErrInvalidMode
	}
	i.lock.Lock()
	defer i.lock.Unlock()
	if i.estop {
		return ErrEstopActive
	}
	i.mode = mode
	return nil
}

// TargetCommand is the idempotent command carrying the current intent.
func (i *Intent) TargetCommand() protocol.Command {
	i.lock.Lock()
	defer i.lock.Unlock()
	if i.estop {
		return protocol.EstopCommand()
	}
	return protocol.ThrottleCommand(i.target)
}

// LastThrottleChange is when the target last changed.
func (i *Intent) LastThrottleChange() time.Time {
	i.lock.Lock()
	defer i.lock.Unlock()
	return i.lastThrottleChange
}

// MarkSent records a transmission.
func (i *Intent) MarkSent(protocol.Command) {
	i.lock.Lock()
	i.lastCommand = i.Now()
	i.lock.Unlock()
}

// ApplyAck updates confirmed state from an Ack.
func (i *Intent) ApplyAck(ack protocol.Ack) {
	i.lock.Lock()
	defer i.lock.Unlock()
	i.lastAck = i.Now()
	switch ack.Status {
	case protocol.StatusOK:
		switch ack.Kind {
		case protocol.KindThrottle:
			i.confirmed, i.armed = ack.Value, true
		case protocol.KindStop, protocol.KindEstop:
			i.confirmed = ack.Value
		case protocol.KindMode:
			i.mode = ack.Mode
		}
	case protocol.StatusFail:
		if ack.Kind == protocol.KindThrottle {
			i.confirmed, i.armed = ack.Value, false
		}
	case protocol.StatusEstopActive:
		i.confirmed = ack.Value
	}
}

// State returns a snapshot.
func (i *Intent) State() State {
	i.lock.Lock()
	defer i.lock.Unlock()
	s := State{
		Phase:              PhaseDisarmed,
		Target:             i.target,
		Confirmed:          i.confirmed,
		Armed:              i.armed,
		Estop:              i.estop,
		Mode:               i.mode,
		LastCommand:        i.lastCommand,
		LastAck:            i.lastAck,
		LastThrottleChange: i.lastThrottleChange,
	}
	switch {
	case i.estop:
		s.Phase = PhaseEstop
	case i.armed:
		s.Phase = PhaseArmed
	}
	return s
}
