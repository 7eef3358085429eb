package protocol

import "fmt"

// Malformed is a line which couldn't be decoded. It is also the
// protocol error reported for it.
type Malformed struct {
	Line   string
	Reason string
}

// Error implements error.
func (m *Malformed) Error() string {
	return fmt.Sprintf("malformed line %q: %s", m.Line, m.Reason)
}
