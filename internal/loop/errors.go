package loop

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrSizeMismatch indicates a command or status sample whose channel
	// count differs from the configuration.
	ErrSizeMismatch = errors.New("loop: sample size does not match channel count")

	// ErrInvalidInputDomain indicates a command entry without a usable
	// domain or value.
	ErrInvalidInputDomain = errors.New("loop: command has no usable control domain")

	// ErrInvalidStatusValue indicates the measurement required by a command
	// is unknown.
	ErrInvalidStatusValue = errors.New("loop: required measurement is unknown")

	// ErrReconfigurationRejected indicates a settings replacement was refused.
	// The previous settings remain in effect.
	ErrReconfigurationRejected = errors.New("loop: reconfiguration rejected")

	// ErrSettingsChanged indicates the channel count changed between
	// Configure and Start.
	ErrSettingsChanged = errors.New("loop: settings changed since configure")

	// ErrInvalidTransition indicates a lifecycle call not allowed in the
	// current state.
	ErrInvalidTransition = errors.New("loop: invalid state transition")
)

// CycleError wraps a fatal cycle condition with its context. Channel is -1
// when the whole sample was at fault.
type CycleError struct {
	Cycle   uint64
	Channel int
	Time    time.Time
	Detail  string
	Wrapped error
}

func (e *CycleError) Error() string {
	msg := e.Wrapped.Error()
	if e.Channel >= 0 {
		msg = fmt.Sprintf("%s (channel %d)", msg, e.Channel)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return fmt.Sprintf("cycle %d: %s", e.Cycle, msg)
}

func (e *CycleError) Unwrap() error {
	return e.Wrapped
}
