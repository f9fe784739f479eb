// Package control provides the per-channel building blocks of the control
// loop:
//
//   - [PID]: discrete PID with output saturation and anti-windup
//   - [Ramp]: rate limiter applied to a target before it reaches the PID
//   - [VelocityEstimator]: first-difference derivative of a sampled signal
//
// # Usage
//
//	pid := control.NewPID(control.Gains{Kp: 1, OutputMin: -10, OutputMax: 10})
//	var ramp control.Ramp
//	target := ramp.Apply(cmd, now, 2.0)
//	u := pid.Update(measured, target, now)
//
// All three types are stateful and not safe for concurrent use. Each keeps
// just enough history to difference against the previous call; Reset
// returns them to their cold-start state. On cold start the PID contributes
// only its proportional term, the ramp passes its input through and the
// estimator reports no value.
package control
