package vna

import "errors"

var (
	// ErrAcquisitionTimeout is returned when a polled sweep does not finish
	// within the configured hard timeout. It is fatal to the in-progress
	// IFBW pass but not to the session; the caller may skip the value and
	// continue with a fresh pass.
	ErrAcquisitionTimeout = errors.New("acquisition timed out")

	// ErrStreamDesync marks a partial leading sweep: the last point of a
	// sweep arrived before its first point was ever observed. The sweep is
	// discarded; the next one is expected to resolve correctly.
	ErrStreamDesync = errors.New("partial leading sweep discarded")

	// ErrListenerClosed is returned when the point stream terminates while
	// a caller is still waiting for completed sweeps.
	ErrListenerClosed = errors.New("stream listener closed")

	// ErrTooManyParseErrors is returned when the number of consecutive
	// stream decode errors exceeds the listener's threshold.
	ErrTooManyParseErrors = errors.New("too many consecutive parse errors")
)

// ConfigError is a custom error type for sweep configuration errors. It is
// always raised before any hardware interaction, so it is fully recoverable:
// correct the configuration and run again.
type ConfigError struct {
	msg string
}

func NewConfigError(msg string) *ConfigError {
	return &ConfigError{msg}
}

func (e *ConfigError) Error() string {
	return e.msg
}
