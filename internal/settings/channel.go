package settings

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/pidloop/internal/control"
	"github.com/san-kum/pidloop/internal/joints"
	"gopkg.in/yaml.v3"
)

var (
	ErrNoChannels          = errors.New("settings: no channels configured")
	ErrInvalidChannel      = errors.New("settings: invalid channel")
	ErrChannelCountChanged = errors.New("settings: channel count changed")
	ErrUnknownPreset       = errors.New("settings: unknown preset")
)

// Channel configures the controller for a single actuator.
type Channel struct {
	Name         string        `yaml:"name,omitempty"`
	OutputDomain joints.Domain `yaml:"output_domain"`
	PID          control.Gains `yaml:"pid"`

	// Ramp is the maximum target rate of change in unit/s. +Inf disables
	// ramping.
	Ramp float64 `yaml:"ramp"`

	DerivativeMode control.DerivativeMode `yaml:"derivative_mode"`

	// UseExternal selects the external measurement source.
	UseExternal bool `yaml:"use_external"`

	// Derive feeds speed and acceleration requests from the velocity
	// estimator instead of the measured field.
	Derive bool `yaml:"derive"`
}

// DefaultChannel returns an effort-output channel with zero gains, no
// saturation and no ramp limit.
func DefaultChannel() Channel {
	return Channel{
		OutputDomain:   joints.Effort,
		PID:            control.DefaultGains(),
		Ramp:           math.Inf(1),
		DerivativeMode: control.DerivativeOnMeasurement,
	}
}

// Gains returns the PID gains with the channel's derivative mode applied.
func (c Channel) Gains() control.Gains {
	g := c.PID
	g.Mode = c.DerivativeMode
	return g
}

func (c *Channel) UnmarshalYAML(node *yaml.Node) error {
	type plain Channel
	p := plain(DefaultChannel())
	if err := node.Decode(&p); err != nil {
		return err
	}
	*c = Channel(p)
	return nil
}

// Validate checks a single channel.
func (c Channel) Validate() error {
	if !c.OutputDomain.Valid() {
		return fmt.Errorf("%w: output domain %v", ErrInvalidChannel, c.OutputDomain)
	}
	if math.IsNaN(c.Ramp) || c.Ramp < 0 {
		return fmt.Errorf("%w: ramp %v must be >= 0", ErrInvalidChannel, c.Ramp)
	}
	g := c.PID
	for _, k := range []struct {
		name string
		v    float64
	}{{"kp", g.Kp}, {"ki", g.Ki}, {"kd", g.Kd}} {
		if math.IsNaN(k.v) || math.IsInf(k.v, 0) {
			return fmt.Errorf("%w: %s must be finite", ErrInvalidChannel, k.name)
		}
	}
	if math.IsNaN(g.OutputMin) || math.IsNaN(g.OutputMax) || g.OutputMin > g.OutputMax {
		return fmt.Errorf("%w: output limits [%v, %v]", ErrInvalidChannel, g.OutputMin, g.OutputMax)
	}
	if math.IsNaN(g.IntegralMin) || math.IsNaN(g.IntegralMax) || g.IntegralMin > g.IntegralMax {
		return fmt.Errorf("%w: integral limits [%v, %v]", ErrInvalidChannel, g.IntegralMin, g.IntegralMax)
	}
	return nil
}

// Validate checks a full settings sequence.
func Validate(channels []Channel) error {
	if len(channels) == 0 {
		return ErrNoChannels
	}
	for i, c := range channels {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("channel %d: %w", i, err)
		}
	}
	return nil
}

// Clone returns an independent copy of channels.
func Clone(channels []Channel) []Channel {
	if channels == nil {
		return nil
	}
	out := make([]Channel, len(channels))
	copy(out, channels)
	return out
}
