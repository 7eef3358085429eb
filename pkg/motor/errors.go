package motor

import "errors"

var (
	// ErrEstopActive indicates the request is refused while the
	// emergency stop is latched.
	ErrEstopActive = errors.New("estop active")
	// ErrInvalidMode indicates an unknown mode tag.
	ErrInvalidMode = errors.New("invalid mode")
)
