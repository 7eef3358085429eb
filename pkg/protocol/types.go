package protocol

import (
	"strconv"
	"strings"
)

// Kind is the command kind.
type Kind int

// Command kinds.
const (
	KindUnknown Kind = iota
	KindThrottle
	KindStop
	KindEstop
	KindMode
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindThrottle:
		return "THROTTLE"
	case KindStop:
		return "STOP"
	case KindEstop:
		return "ESTOP"
	case KindMode:
		return "MODE"
	default:
		return "UNKNOWN"
	}
}

// ParseKind parses a kind name, case-insensitive.
func ParseKind(s string) Kind {
	switch strings.ToUpper(s) {
	case "THROTTLE":
		return KindThrottle
	case "STOP":
		return KindStop
	case "ESTOP":
		return KindEstop
	case "MODE":
		return KindMode
	default:
		return KindUnknown
	}
}

// Status is the outcome carried by an Ack.
type Status int

// Ack statuses.
const (
	StatusOK Status = iota
	StatusFail
	StatusUnknown
	StatusInvalid
	StatusEstopActive
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusFail:
		return "FAIL"
	case StatusUnknown:
		return "UNKNOWN"
	case StatusInvalid:
		return "INVALID"
	case StatusEstopActive:
		return "ESTOP_ACTIVE"
	default:
		return "Status(" + strconv.Itoa(int(s)) + ")"
	}
}

// ParseStatus parses a status name.
func ParseStatus(s string) (Status, bool) {
	switch s {
	case "OK":
		return StatusOK, true
	case "FAIL":
		return StatusFail, true
	case "UNKNOWN":
		return StatusUnknown, true
	case "INVALID":
		return StatusInvalid, true
	case "ESTOP_ACTIVE":
		return StatusEstopActive, true
	}
	return StatusUnknown, false
}

// Mode is the vehicle operating mode tag.
type Mode string

// Known modes.
const (
	ModePassive Mode = "PASSIVE"
	ModeActive  Mode = "ACTIVE"
)

// Valid reports whether the mode is one the vehicle accepts.
func (m Mode) Valid() bool {
	return m == ModePassive || m == ModeActive
}

// Command is an operator intent sent to the vehicle.
type Command struct {
	Kind Kind
	// RawKind keeps the received kind text of an unknown command
	// so it can be echoed back.
	RawKind string
	Value   int
	Mode    Mode
}

// ThrottleCommand creates a THROTTLE command.
func ThrottleCommand(percent int) Command {
	return Command{Kind: KindThrottle, Value: percent}
}

// StopCommand creates a STOP command.
func StopCommand() Command {
	return Command{Kind: KindStop}
}

// EstopCommand creates an ESTOP command.
func EstopCommand() Command {
	return Command{Kind: KindEstop}
}

// ModeCommand creates a MODE command. Tags are upper case on the wire.
func ModeCommand(mode Mode) Command {
	return Command{Kind: KindMode, Mode: Mode(strings.ToUpper(string(mode)))}
}

// KindName is the kind as it appears on the wire.
func (c Command) KindName() string {
	return kindName(c.Kind, c.RawKind)
}

// String implements fmt.Stringer.
func (c Command) String() string {
	return PrefixCommand + c.KindName() + ":" + valueField(c.Kind, c.Value, c.Mode)
}

// Ack is the vehicle's response, carrying the value actually applied.
type Ack struct {
	Kind    Kind
	RawKind string
	Value   int
	Mode    Mode
	Status  Status
}

// AckFor creates an Ack replying to cmd.
func AckFor(cmd Command, value int, status Status) Ack {
	return Ack{
		Kind:    cmd.Kind,
		RawKind: cmd.RawKind,
		Value:   value,
		Mode:    cmd.Mode,
		Status:  status,
	}
}

// KindName is the kind as it appears on the wire.
func (a Ack) KindName() string {
	return kindName(a.Kind, a.RawKind)
}

// String implements fmt.Stringer.
func (a Ack) String() string {
	return PrefixAck + a.KindName() + ":" + valueField(a.Kind, a.Value, a.Mode) + ":" + a.Status.String()
}

func kindName(k Kind, raw string) string {
	if k == KindUnknown && raw != "" {
		return raw
	}
	return k.String()
}

func valueField(k Kind, value int, mode Mode) string {
	if k == KindMode {
		return string(mode)
	}
	return strconv.Itoa(value)
}
