package joints

import (
	"math"
	"time"
)

// Unknown marks a value that is not available.
var Unknown = math.NaN()

// IsKnown reports whether v carries a usable value. Infinities count as
// unknown.
func IsKnown(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Command is the target for one actuator.
type Command struct {
	Domain Domain
	Value  float64
}

// Usable reports whether the command names a domain and carries a finite
// value.
func (c Command) Usable() bool {
	return c.Domain.Valid() && IsKnown(c.Value)
}

type CommandSample struct {
	Time     time.Time
	Channels []Command
}

func (s CommandSample) Len() int { return len(s.Channels) }

// CopyTo copies s into dst reusing dst's storage when it is large enough.
func (s CommandSample) CopyTo(dst *CommandSample) {
	dst.Time = s.Time
	dst.Channels = append(dst.Channels[:0], s.Channels...)
}

// Reading holds one measurement per domain. Unmeasured fields are NaN.
type Reading struct {
	Position     float64
	Speed        float64
	Effort       float64
	Raw          float64
	Acceleration float64
}

// UnknownReading returns a reading with every field unknown.
func UnknownReading() Reading {
	return Reading{
		Position:     Unknown,
		Speed:        Unknown,
		Effort:       Unknown,
		Raw:          Unknown,
		Acceleration: Unknown,
	}
}

// Field returns the value measured for d.
func (r Reading) Field(d Domain) float64 {
	switch d {
	case Position:
		return r.Position
	case Speed:
		return r.Speed
	case Effort:
		return r.Effort
	case Raw:
		return r.Raw
	case Acceleration:
		return r.Acceleration
	}
	return Unknown
}

// Set stores v under d. Unset is ignored.
func (r *Reading) Set(d Domain, v float64) {
	switch d {
	case Position:
		r.Position = v
	case Speed:
		r.Speed = v
	case Effort:
		r.Effort = v
	case Raw:
		r.Raw = v
	case Acceleration:
		r.Acceleration = v
	}
}

// Status is the measured state of one actuator. External holds an
// alternate measurement source, e.g. an encoder on the driven load.
type Status struct {
	Primary  Reading
	External Reading
}

// Source returns the external reading when external is set.
func (s Status) Source(external bool) Reading {
	if external {
		return s.External
	}
	return s.Primary
}

type StatusSample struct {
	Time     time.Time
	Channels []Status
}

func (s StatusSample) Len() int { return len(s.Channels) }

func (s StatusSample) CopyTo(dst *StatusSample) {
	dst.Time = s.Time
	dst.Channels = append(dst.Channels[:0], s.Channels...)
}

// Output is the command produced for one actuator.
type Output struct {
	Domain Domain
	Value  float64
}

// Cleared returns an output carrying no value.
func Cleared() Output {
	return Output{Domain: Unset, Value: Unknown}
}

type OutputSample struct {
	Time     time.Time
	Channels []Output
}

func (s OutputSample) Len() int { return len(s.Channels) }

func (s OutputSample) CopyTo(dst *OutputSample) {
	dst.Time = s.Time
	dst.Channels = append(dst.Channels[:0], s.Channels...)
}

// PIDState is a snapshot of one channel's PID internals.
type PIDState struct {
	Output       float64
	Error        float64
	Proportional float64
	Integral     float64
	Derivative   float64
	Saturated    bool
}

// ChannelDiagnostic is what the loop did for one channel in a cycle.
type ChannelDiagnostic struct {
	Requested Domain
	Target    float64
	Ramped    float64
	Measured  float64
	Updated   bool
	PID       PIDState
}

type DiagnosticSample struct {
	Time     time.Time
	Cycle    uint64
	Channels []ChannelDiagnostic
}

func (s DiagnosticSample) Len() int { return len(s.Channels) }

func (s DiagnosticSample) CopyTo(dst *DiagnosticSample) {
	dst.Time = s.Time
	dst.Cycle = s.Cycle
	dst.Channels = append(dst.Channels[:0], s.Channels...)
}
