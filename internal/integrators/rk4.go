package integrators

import "github.com/san-kum/pidloop/internal/plant"

// RK4 is the classic fourth-order Runge-Kutta method. Stage buffers are
// reused between steps, so an RK4 must not be shared across goroutines.
type RK4 struct {
	k   [4]plant.State
	tmp plant.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) grow(n int) {
	if len(r.tmp) == n {
		return
	}
	for i := range r.k {
		r.k[i] = make(plant.State, n)
	}
	r.tmp = make(plant.State, n)
}

// offset stores x + h*k into r.tmp.
func (r *RK4) offset(x, k plant.State, h float64) plant.State {
	for i := range x {
		r.tmp[i] = x[i] + h*k[i]
	}
	return r.tmp
}

func (r *RK4) Step(sys plant.System, x plant.State, u plant.Control, t, dt float64) plant.State {
	r.grow(len(x))
	half := dt / 2

	copy(r.k[0], sys.Derive(x, u, t))
	copy(r.k[1], sys.Derive(r.offset(x, r.k[0], half), u, t+half))
	copy(r.k[2], sys.Derive(r.offset(x, r.k[1], half), u, t+half))
	copy(r.k[3], sys.Derive(r.offset(x, r.k[2], dt), u, t+dt))

	next := make(plant.State, len(x))
	for i := range x {
		next[i] = x[i] + dt/6*(r.k[0][i]+2*r.k[1][i]+2*r.k[2][i]+r.k[3][i])
	}
	return next
}
