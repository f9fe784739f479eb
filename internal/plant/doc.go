// Package plant simulates the actuators a control loop drives.
//
// A [System] describes an ODE dX/dt = f(X, u, t) and an [Integrator]
// advances it by one step. [Motor] models a servo-driven DC motor whose
// drive accepts any control domain, and [Bank] holds one motor per channel
// and converts between simulated states and the loop's sample types:
//
//	bank := plant.NewBank(motors, integrators.NewRK4(), plant.Noise{})
//	bank.Apply(outputs)
//	if err := bank.Step(0.01); err != nil { ... }
//	status := bank.Status(now)
package plant
