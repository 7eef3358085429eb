package link

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected indicates the port is closed and the reconnect
	// delay hasn't elapsed yet.
	ErrNotConnected = errors.New("not connected")
	// ErrLineTooLong indicates an inbound line exceeded the buffer limit.
	ErrLineTooLong = errors.New("line too long")
)

// LinkError is a serial I/O failure. It's never fatal: the handle is
// closed and reopened after the reconnect delay.
type LinkError struct {
	Op  string
	Err error
}

// Error implements error.
func (e *LinkError) Error() string {
	return fmt.Sprintf("link %s: %v", e.Op, e.Err)
}

// Unwrap returns the cause.
func (e *LinkError) Unwrap() error {
	return e.Err
}
