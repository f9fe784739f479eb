// Package joints defines the per-cycle samples exchanged by the control loop.
//
// Every scalar carries a [Domain] tag naming the physical quantity it
// represents:
//
//   - [Command]: one (domain, target) pair per actuator
//   - [Status]: measured readings per actuator, from a primary and an
//     optional external source, one field per domain
//   - [Output]: the controller output tagged with its output domain
//   - [ChannelDiagnostic]: PID internals and tracking values for observability
//
// A NaN field means "unknown", and so does an infinite one. Samples are
// indexed by channel and must have exactly as many entries as the configured
// channel count.
package joints
