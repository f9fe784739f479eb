package plant

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidState indicates the integrated state contains NaN or Inf.
	ErrInvalidState = errors.New("plant: invalid state (NaN or Inf detected)")

	// ErrDimensionMismatch indicates a state vector of the wrong size.
	ErrDimensionMismatch = errors.New("plant: dimension mismatch between state and system")

	// ErrUnknownModel indicates a model name with no registered factory.
	ErrUnknownModel = errors.New("plant: unknown model")
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

type Control []float64

type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(sys System, x State, u Control, t float64, dt float64) State
}

// StepError wraps a failed integration step with its context.
type StepError struct {
	Channel int
	Time    float64
	State   State
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("channel %d at t=%.4f: %v", e.Channel, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
