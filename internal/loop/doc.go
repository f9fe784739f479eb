// Package loop implements the cyclic multi-channel control loop.
//
// A [Loop] owns one [control.PID], [control.Ramp] and
// [control.VelocityEstimator] per channel. The host runtime drives it
// through explicit lifecycle calls and invokes [Loop.Update] once per
// period:
//
//	Unconfigured --Configure--> Configured --Start--> Running
//	Running --fatal cycle--> Faulted --Recover--> Stopped
//	Running --Stop--> Stopped --Start--> Running
//	Configured/Stopped --Cleanup--> Unconfigured
//
// # Cycle
//
// Each Update reads the latest command sample and, only if it is new, the
// latest status sample. For every channel the target is ramp limited, the
// measurement for the requested domain is selected (or derived by the
// velocity estimator) and the PID output is written under the channel's
// output domain. Outputs and diagnostics are published together, and
// nothing is published when any channel fails.
//
// # Errors
//
// Size mismatches, unusable commands and unknown measurements are fatal:
// Update returns a [*CycleError] and the loop latches in Faulted until
// Recover. Missing or stale inputs and estimator warm-up skip work silently
// and are reported through hooks.
//
// # Thread Safety
//
// Lifecycle calls and Update must come from a single goroutine. State,
// Fault and UpdateSettings may be called from any goroutine; settings
// changes take effect at the next cycle boundary.
package loop
