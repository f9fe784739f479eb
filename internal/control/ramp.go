package control

import (
	"math"
	"time"
)

// Ramp bounds the rate of change of a target between calls.
type Ramp struct {
	prevT     time.Time
	prevValue float64
	valid     bool
}

func (r *Ramp) Reset() {
	*r = Ramp{}
}

// Apply limits target to within maxRate (units/s) of the previously emitted
// value. The first call after Reset passes target through. A timestamp
// earlier than the previous one freezes the output. maxRate = +Inf disables
// limiting.
func (r *Ramp) Apply(target float64, now time.Time, maxRate float64) float64 {
	out := target
	if r.valid && !math.IsInf(maxRate, 1) {
		dt := now.Sub(r.prevT).Seconds()
		if dt < 0 {
			dt = 0
		}
		step := maxRate * dt
		out = clamp(target, r.prevValue-step, r.prevValue+step)
	}

	r.prevT = now
	r.prevValue = out
	r.valid = true
	return out
}
