package integrators

import (
	"github.com/san-kum/pidloop/internal/plant"
	"gonum.org/v1/gonum/floats"
)

// Euler is the explicit first-order method. It is cheap and only suitable
// for steps well inside the plant's fastest time constant.
type Euler struct{}

func NewEuler() *Euler { return &Euler{} }

// Step returns x + dt*f(x, u, t) in a fresh state.
func (Euler) Step(sys plant.System, x plant.State, u plant.Control, t, dt float64) plant.State {
	next := make(plant.State, len(x))
	floats.AddScaledTo(next, x, dt, sys.Derive(x, u, t))
	return next
}
