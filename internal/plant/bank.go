package plant

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/san-kum/pidloop/internal/joints"
)

// MaxStep bounds the integration step. Longer steps are subdivided.
const MaxStep = time.Millisecond

// Noise adds Gaussian measurement noise to status samples. Zero values
// disable it.
type Noise struct {
	Position float64
	Speed    float64
	Seed     uint64
}

// Bank simulates one motor per channel.
type Bank struct {
	motors []*Motor
	states []State
	inputs []Control
	integ  Integrator

	// GearRatio scales the motor angle onto the external load encoder.
	GearRatio float64

	noise    Noise
	posNoise distuv.Normal
	spdNoise distuv.Normal

	t float64
}

func NewBank(motors []*Motor, integ Integrator, noise Noise) *Bank {
	b := &Bank{
		motors:    motors,
		states:    make([]State, len(motors)),
		inputs:    make([]Control, len(motors)),
		integ:     integ,
		GearRatio: 1,
		noise:     noise,
	}
	src := rand.NewPCG(noise.Seed, noise.Seed^0x9e3779b97f4a7c15)
	b.posNoise = distuv.Normal{Mu: 0, Sigma: noise.Position, Src: src}
	b.spdNoise = distuv.Normal{Mu: 0, Sigma: noise.Speed, Src: src}
	for i, m := range motors {
		b.states[i] = make(State, m.StateDim())
		b.inputs[i] = Control{0}
	}
	return b
}

func (b *Bank) Len() int { return len(b.motors) }

// Time returns the simulated time in seconds.
func (b *Bank) Time() float64 { return b.t }

// SetState overrides the state of channel i.
func (b *Bank) SetState(i int, x State) error {
	if len(x) != b.motors[i].StateDim() {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(x), b.motors[i].StateDim())
	}
	b.states[i] = x.Clone()
	return nil
}

func (b *Bank) State(i int) State {
	return b.states[i].Clone()
}

// Apply sets each motor's drive from an output sample. Channels beyond the
// bank are ignored; a cleared output disables the drive.
func (b *Bank) Apply(s joints.OutputSample) {
	for i, out := range s.Channels {
		if i >= len(b.motors) {
			break
		}
		if !out.Domain.Valid() || !joints.IsKnown(out.Value) {
			b.motors[i].Drive = joints.Unset
			b.inputs[i][0] = 0
			continue
		}
		b.motors[i].Drive = out.Domain
		b.inputs[i][0] = out.Value
	}
}

// Step advances every motor by dt seconds.
func (b *Bank) Step(dt float64) error {
	maxStep := MaxStep.Seconds()
	n := int(math.Ceil(dt / maxStep))
	if n < 1 {
		n = 1
	}
	h := dt / float64(n)

	for k := 0; k < n; k++ {
		for i, m := range b.motors {
			x := b.integ.Step(m, b.states[i], b.inputs[i], b.t, h)
			if !x.IsValid() {
				return &StepError{Channel: i, Time: b.t, State: b.states[i], Wrapped: ErrInvalidState}
			}
			b.states[i] = x
		}
		b.t += h
	}
	return nil
}

// Status reads every motor. The primary reading is the motor side, the
// external reading is the load encoder behind the gear.
func (b *Bank) Status(now time.Time) joints.StatusSample {
	s := joints.StatusSample{Time: now, Channels: make([]joints.Status, len(b.motors))}
	b.StatusInto(now, &s)
	return s
}

// StatusInto fills dst, reusing its storage.
func (b *Bank) StatusInto(now time.Time, dst *joints.StatusSample) {
	dst.Time = now
	if cap(dst.Channels) < len(b.motors) {
		dst.Channels = make([]joints.Status, len(b.motors))
	}
	dst.Channels = dst.Channels[:len(b.motors)]

	for i, m := range b.motors {
		x := b.states[i]
		pos := x[0]
		spd := x[1]
		if b.noise.Position > 0 {
			pos += b.posNoise.Rand()
		}
		if b.noise.Speed > 0 {
			spd += b.spdNoise.Rand()
		}

		ext := joints.UnknownReading()
		ext.Position = pos / b.GearRatio
		ext.Speed = spd / b.GearRatio

		dst.Channels[i] = joints.Status{
			Primary: joints.Reading{
				Position:     pos,
				Speed:        spd,
				Effort:       m.TorqueK * x[2],
				Raw:          m.Voltage(x),
				Acceleration: m.Acceleration(x),
			},
			External: ext,
		}
	}
}
