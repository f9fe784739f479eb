package control

import (
	"fmt"
	"math"
	"time"

	"github.com/san-kum/pidloop/internal/joints"
)

// DerivativeMode selects the signal the derivative term differentiates.
type DerivativeMode int

const (
	// DerivativeOnMeasurement differentiates the measured value. A step in
	// the target produces no derivative kick.
	DerivativeOnMeasurement DerivativeMode = iota
	// DerivativeOnError differentiates the tracking error.
	DerivativeOnError
)

func (m DerivativeMode) String() string {
	switch m {
	case DerivativeOnMeasurement:
		return "measurement"
	case DerivativeOnError:
		return "error"
	}
	return "unknown"
}

// Gains configures a PID. Limits are inclusive; use ±Inf for no limit.
type Gains struct {
	Kp float64 `yaml:"kp"`
	Ki float64 `yaml:"ki"`
	Kd float64 `yaml:"kd"`

	OutputMin   float64 `yaml:"output_min"`
	OutputMax   float64 `yaml:"output_max"`
	IntegralMin float64 `yaml:"integral_min"`
	IntegralMax float64 `yaml:"integral_max"`

	Mode DerivativeMode `yaml:"-"`
}

// DefaultGains returns zero gains with no saturation.
func DefaultGains() Gains {
	return Gains{
		OutputMin:   math.Inf(-1),
		OutputMax:   math.Inf(1),
		IntegralMin: math.Inf(-1),
		IntegralMax: math.Inf(1),
		Mode:        DerivativeOnMeasurement,
	}
}

type PID struct {
	gains Gains

	integral     float64
	prevErr      float64
	prevMeasured float64
	prevT        time.Time
	first        bool

	state joints.PIDState
}

func NewPID(g Gains) *PID {
	return &PID{
		gains: g,
		first: true,
	}
}

// Gains returns the current gains.
func (p *PID) Gains() Gains { return p.gains }

// SetGains replaces the gains. Accumulated integral and derivative memory
// are kept so a live retune does not reset the loop.
func (p *PID) SetGains(g Gains) {
	p.gains = g
}

// Reset clears integral and derivative state
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.prevMeasured = 0
	p.prevT = time.Time{}
	p.first = true
	p.state = joints.PIDState{}
}

// Update computes the output for one step. The integral stores Ki*∫e dt so
// that changing Ki takes effect smoothly. While the output saturates the
// step's integral contribution is dropped.
func (p *PID) Update(measured, target float64, now time.Time) float64 {
	g := p.gains
	err := target - measured

	dt := 0.0
	if !p.first {
		dt = now.Sub(p.prevT).Seconds()
		if dt < 0 {
			dt = 0
		}
	}

	prop := g.Kp * err

	deriv := 0.0
	if dt > 0 {
		switch g.Mode {
		case DerivativeOnError:
			deriv = g.Kd * (err - p.prevErr) / dt
		default:
			deriv = -g.Kd * (measured - p.prevMeasured) / dt
		}
	}

	integral := clamp(p.integral+g.Ki*err*dt, g.IntegralMin, g.IntegralMax)

	raw := prop + integral + deriv
	out := clamp(raw, g.OutputMin, g.OutputMax)
	saturated := out != raw
	if saturated {
		out = clamp(prop+p.integral+deriv, g.OutputMin, g.OutputMax)
	} else {
		p.integral = integral
	}

	p.prevErr = err
	p.prevMeasured = measured
	p.prevT = now
	p.first = false

	p.state = joints.PIDState{
		Output:       out,
		Error:        err,
		Proportional: prop,
		Integral:     p.integral,
		Derivative:   deriv,
		Saturated:    saturated,
	}
	return out
}

// State returns the internals of the last Update.
func (p *PID) State() joints.PIDState { return p.state }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (m DerivativeMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *DerivativeMode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "measurement", "output":
		*m = DerivativeOnMeasurement
	case "error":
		*m = DerivativeOnError
	default:
		return fmt.Errorf("control: unknown derivative mode %q", text)
	}
	return nil
}
