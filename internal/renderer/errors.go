package renderer

import "errors"

var (
	// ErrUnavailable is wrapped by every infrastructure failure, such as a
	// browser that cannot be launched or has crashed. The crawler aborts
	// when it sees this error.
	ErrUnavailable = errors.New("renderer unavailable")

	// ErrUnknownEngine is returned by New for an unsupported engine name.
	ErrUnknownEngine = errors.New("unknown renderer engine")
)
