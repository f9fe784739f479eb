// Package runtime activates a control cycle periodically.
//
// A [Driver] runs an ordered list of [Stage]s once per period. [Driver.Run]
// follows the wall clock; [Driver.RunVirtual] advances a virtual clock by
// exactly one period per cycle, so simulations are deterministic and run as
// fast as the stages allow. The usual stage order for a closed simulated
// loop is: publish plant status, run the controller, apply outputs to the
// plant and integrate it.
package runtime
