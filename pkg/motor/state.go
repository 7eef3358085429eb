package motor

import (
	"time"

	"github.com/triton/esclink/pkg/protocol"
)

// Phase is the motor safety state.
type Phase int

// Phases.
const (
	PhaseDisarmed Phase = iota
	PhaseArming
	PhaseArmed
	PhaseEstop
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseDisarmed:
		return "DISARMED"
	case PhaseArming:
		return "ARMING"
	case PhaseArmed:
		return "ARMED"
	case PhaseEstop:
		return "ESTOP"
	default:
		return "INVALID"
	}
}

// State is a snapshot of motor state on either side of the link.
// On the vehicle Target and Confirmed are both the applied throttle.
type State struct {
	Phase     Phase
	Target    int
	Confirmed int
	Armed     bool
	Estop     bool
	Mode      protocol.Mode

	LastCommand        time.Time
	LastAck            time.Time
	LastThrottleChange time.Time
}
