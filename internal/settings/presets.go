package settings

import (
	"math"
	"sort"
	"time"

	"github.com/san-kum/pidloop/internal/control"
	"github.com/san-kum/pidloop/internal/joints"
)

func channel(out joints.Domain, kp, ki, kd float64, opts ...func(*Channel)) Channel {
	c := DefaultChannel()
	c.OutputDomain = out
	c.PID.Kp, c.PID.Ki, c.PID.Kd = kp, ki, kd
	for _, o := range opts {
		o(&c)
	}
	return c
}

func limits(lo, hi float64) func(*Channel) {
	return func(c *Channel) {
		c.PID.OutputMin, c.PID.OutputMax = lo, hi
		c.PID.IntegralMin, c.PID.IntegralMax = lo, hi
	}
}

func ramp(rate float64) func(*Channel) {
	return func(c *Channel) { c.Ramp = rate }
}

func derived(c *Channel) { c.Derive = true }

func onError(c *Channel) { c.DerivativeMode = control.DerivativeOnError }

var Presets = map[string]*Config{
	"position": {
		Period: 10 * time.Millisecond, Duration: 5 * time.Second, Plant: "motor",
		Channels: []Channel{channel(joints.Effort, 8, 0.5, 0.6, limits(-12, 12))},
		Targets:  []Target{{Channel: 0, Domain: joints.Position, Value: 1}},
	},
	"position_kick": {
		Period: 10 * time.Millisecond, Duration: 5 * time.Second, Plant: "motor",
		Channels: []Channel{channel(joints.Effort, 8, 0.5, 0.6, limits(-12, 12), onError)},
		Targets:  []Target{{Channel: 0, Domain: joints.Position, Value: 1}},
	},
	"ramped": {
		Period: 10 * time.Millisecond, Duration: 8 * time.Second, Plant: "motor",
		Channels: []Channel{channel(joints.Effort, 8, 0.5, 0.6, limits(-12, 12), ramp(0.5))},
		Targets:  []Target{{Channel: 0, At: 500 * time.Millisecond, Domain: joints.Position, Value: 2}},
	},
	"speed": {
		Period: 10 * time.Millisecond, Duration: 5 * time.Second, Plant: "motor",
		Channels: []Channel{channel(joints.Effort, 0.05, 0.3, 0, limits(-1, 1), derived)},
		Targets:  []Target{{Channel: 0, Domain: joints.Speed, Value: 3}},
	},
	"dual": {
		Period: 10 * time.Millisecond, Duration: 6 * time.Second, Plant: "motor",
		Channels: []Channel{
			channel(joints.Effort, 8, 0.5, 0.6, limits(-12, 12), ramp(1)),
			channel(joints.Effort, 0.05, 0.3, 0, limits(-1, 1), derived),
		},
		Targets: []Target{
			{Channel: 0, Domain: joints.Position, Value: 1.5},
			{Channel: 1, Domain: joints.Speed, Value: 2},
			{Channel: 1, At: 3 * time.Second, Domain: joints.Speed, Value: -1},
		},
	},
	"unbounded": {
		Period: 10 * time.Millisecond, Duration: 5 * time.Second, Plant: "motor",
		Channels: []Channel{channel(joints.Effort, 1, 0, 0, ramp(math.Inf(1)))},
		Targets:  []Target{{Channel: 0, Domain: joints.Position, Value: 5}},
	},
}

// GetPreset returns a copy of the named preset.
func GetPreset(name string) (*Config, error) {
	p, ok := Presets[name]
	if !ok {
		return nil, ErrUnknownPreset
	}
	cfg := *p
	cfg.Channels = Clone(p.Channels)
	cfg.Targets = append([]Target(nil), p.Targets...)
	return &cfg, nil
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
