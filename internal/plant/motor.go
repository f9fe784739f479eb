package plant

import (
	"math"

	"github.com/san-kum/pidloop/internal/joints"
)

// Motor is a DC motor behind a servo drive. The state is
// [angle, angular velocity, armature current]. The drive interprets its
// single control input according to Drive:
//
//   - Raw: armature voltage
//   - Effort: torque, tracked by the current loop
//   - Acceleration: angular acceleration, feed-forward through the inertia
//   - Speed: velocity setpoint of the drive's internal velocity loop
//   - Position: angle setpoint of the drive's internal position loop
//
// Unset disables the drive.
type Motor struct {
	Inertia    float64 // kg m^2
	Friction   float64 // N m s/rad
	TorqueK    float64 // N m/A
	BackEMF    float64 // V s/rad
	Resistance float64 // ohm
	Inductance float64 // H

	// CurrentTau is the time constant of the current loop for the
	// non-voltage drives.
	CurrentTau float64
	MaxCurrent float64
	MaxVoltage float64

	// Internal servo gains for Speed and Position drives. The speed loop
	// feeds friction forward.
	SpeedGain    float64
	PositionGain float64

	// Gravity load: LoadMass at LoadArm from the axis.
	LoadMass float64
	LoadArm  float64
	Gravity  float64

	Drive joints.Domain
}

func NewMotor() *Motor {
	return &Motor{
		Inertia:      0.01,
		Friction:     0.1,
		TorqueK:      0.05,
		BackEMF:      0.05,
		Resistance:   1.0,
		Inductance:   2e-3,
		CurrentTau:   5e-3,
		MaxCurrent:   20,
		MaxVoltage:   24,
		SpeedGain:    2,
		PositionGain: 20,
		Gravity:      9.81,
	}
}

// NewArm returns a motor lifting a point mass, after the pendulum model.
func NewArm() *Motor {
	m := NewMotor()
	m.LoadMass = 0.2
	m.LoadArm = 0.3
	m.Inertia += m.LoadMass * m.LoadArm * m.LoadArm
	return m
}

func (m *Motor) StateDim() int   { return 3 }
func (m *Motor) ControlDim() int { return 1 }

func (m *Motor) loadTorque(theta float64) float64 {
	return m.LoadMass * m.Gravity * m.LoadArm * math.Sin(theta)
}

// Acceleration returns the angular acceleration in state x.
func (m *Motor) Acceleration(x State) float64 {
	theta, omega, current := x[0], x[1], x[2]
	return (m.TorqueK*current - m.Friction*omega - m.loadTorque(theta)) / m.Inertia
}

// currentRef returns the current setpoint for the non-voltage drives.
func (m *Motor) currentRef(x State, v float64) float64 {
	theta, omega := x[0], x[1]
	var ref float64
	switch m.Drive {
	case joints.Effort:
		ref = v / m.TorqueK
	case joints.Acceleration:
		ref = (m.Inertia*v + m.Friction*omega + m.loadTorque(theta)) / m.TorqueK
	case joints.Speed:
		ref = m.SpeedGain*(v-omega) + m.Friction*v/m.TorqueK
	case joints.Position:
		ref = m.SpeedGain * (m.PositionGain*(v-theta) - omega)
	}
	return clamp(ref, -m.MaxCurrent, m.MaxCurrent)
}

func (m *Motor) Derive(x State, u Control, t float64) State {
	omega, current := x[1], x[2]
	v := 0.0
	if len(u) > 0 && joints.IsKnown(u[0]) {
		v = u[0]
	}

	var di float64
	switch m.Drive {
	case joints.Raw:
		volts := clamp(v, -m.MaxVoltage, m.MaxVoltage)
		di = (volts - m.Resistance*current - m.BackEMF*omega) / m.Inductance
	case joints.Unset:
		di = -current / m.CurrentTau
	default:
		di = (m.currentRef(x, v) - current) / m.CurrentTau
	}

	return State{omega, m.Acceleration(x), di}
}

// Voltage returns the armature voltage implied by state x.
func (m *Motor) Voltage(x State) float64 {
	return m.Resistance*x[2] + m.BackEMF*x[1]
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
