package control

import "time"

// VelocityEstimator differentiates a sampled signal by first difference.
type VelocityEstimator struct {
	prevT     time.Time
	prevValue float64
	valid     bool
}

func (v *VelocityEstimator) Reset() {
	*v = VelocityEstimator{}
}

// Update records (now, value) and returns the rate of change since the
// previous call. ok is false without a previous sample or when time did not
// advance.
func (v *VelocityEstimator) Update(now time.Time, value float64) (rate float64, ok bool) {
	if v.valid && now.After(v.prevT) {
		rate = (value - v.prevValue) / now.Sub(v.prevT).Seconds()
		ok = true
	}

	v.prevT = now
	v.prevValue = value
	v.valid = true
	return rate, ok
}
