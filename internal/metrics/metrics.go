package metrics

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/pidloop/internal/joints"
)

// Metric summarizes a run from its published diagnostics.
type Metric interface {
	Name() string
	Observe(d *joints.DiagnosticSample)
	Value() float64
	Reset()
}

// AllChannels selects every channel.
const AllChannels = -1

// series collects one value per updated channel per cycle.
type series struct {
	channel int
	values  []float64
}

func (s *series) each(d *joints.DiagnosticSample, fn func(c joints.ChannelDiagnostic)) {
	for i, c := range d.Channels {
		if !c.Updated || (s.channel != AllChannels && s.channel != i) {
			continue
		}
		fn(c)
	}
}

func (s *series) reset() { s.values = s.values[:0] }

func trackingError(c joints.ChannelDiagnostic) float64 {
	return c.Ramped - c.Measured
}

// TrackingRMS is the root mean square of the ramped tracking error.
type TrackingRMS struct{ series }

func NewTrackingRMS(channel int) *TrackingRMS {
	return &TrackingRMS{series{channel: channel}}
}

func (m *TrackingRMS) Name() string { return "tracking_rms" }

func (m *TrackingRMS) Observe(d *joints.DiagnosticSample) {
	m.each(d, func(c joints.ChannelDiagnostic) {
		e := trackingError(c)
		m.values = append(m.values, e*e)
	})
}

func (m *TrackingRMS) Value() float64 {
	if len(m.values) == 0 {
		return 0
	}
	return math.Sqrt(stat.Mean(m.values, nil))
}

func (m *TrackingRMS) Reset() { m.reset() }

// MaxError is the largest absolute tracking error.
type MaxError struct{ series }

func NewMaxError(channel int) *MaxError {
	return &MaxError{series{channel: channel}}
}

func (m *MaxError) Name() string { return "max_error" }

func (m *MaxError) Observe(d *joints.DiagnosticSample) {
	m.each(d, func(c joints.ChannelDiagnostic) {
		m.values = append(m.values, math.Abs(trackingError(c)))
	})
}

func (m *MaxError) Value() float64 {
	if len(m.values) == 0 {
		return 0
	}
	return floats.Max(m.values)
}

func (m *MaxError) Reset() { m.reset() }

// ControlEffort is the mean absolute controller output.
type ControlEffort struct{ series }

func NewControlEffort(channel int) *ControlEffort {
	return &ControlEffort{series{channel: channel}}
}

func (m *ControlEffort) Name() string { return "control_effort" }

func (m *ControlEffort) Observe(d *joints.DiagnosticSample) {
	m.each(d, func(c joints.ChannelDiagnostic) {
		m.values = append(m.values, math.Abs(c.PID.Output))
	})
}

func (m *ControlEffort) Value() float64 {
	if len(m.values) == 0 {
		return 0
	}
	return stat.Mean(m.values, nil)
}

func (m *ControlEffort) Reset() { m.reset() }

// Saturation is the fraction of channel updates whose output was clamped.
type Saturation struct {
	series
	updates   int
	saturated int
}

func NewSaturation(channel int) *Saturation {
	return &Saturation{series: series{channel: channel}}
}

func (m *Saturation) Name() string { return "saturation" }

func (m *Saturation) Observe(d *joints.DiagnosticSample) {
	m.each(d, func(c joints.ChannelDiagnostic) {
		m.updates++
		if c.PID.Saturated {
			m.saturated++
		}
	})
}

func (m *Saturation) Value() float64 {
	if m.updates == 0 {
		return 0
	}
	return float64(m.saturated) / float64(m.updates)
}

func (m *Saturation) Reset() {
	m.updates, m.saturated = 0, 0
}

// SettlingTime is the time from the first observation until the tracking
// error of the selected channels last left the band. It is the full
// observed span if the error never settled, and 0 if it never left.
type SettlingTime struct {
	series
	band      float64
	start     time.Time
	lastOut   time.Time
	last      time.Time
	outOfBand bool
}

func NewSettlingTime(channel int, band float64) *SettlingTime {
	return &SettlingTime{series: series{channel: channel}, band: band}
}

func (m *SettlingTime) Name() string { return "settling_time" }

func (m *SettlingTime) Observe(d *joints.DiagnosticSample) {
	if m.start.IsZero() {
		m.start = d.Time
	}
	m.last = d.Time
	m.outOfBand = false
	m.each(d, func(c joints.ChannelDiagnostic) {
		if math.Abs(trackingError(c)) > m.band {
			m.outOfBand = true
		}
	})
	if m.outOfBand {
		m.lastOut = d.Time
	}
}

func (m *SettlingTime) Value() float64 {
	if m.outOfBand {
		return m.last.Sub(m.start).Seconds()
	}
	if m.lastOut.IsZero() {
		return 0
	}
	return m.lastOut.Sub(m.start).Seconds()
}

func (m *SettlingTime) Reset() {
	m.start, m.lastOut, m.last = time.Time{}, time.Time{}, time.Time{}
	m.outOfBand = false
}

// Standard returns the metrics recorded for every run.
func Standard() []Metric {
	return []Metric{
		NewTrackingRMS(AllChannels),
		NewMaxError(AllChannels),
		NewControlEffort(AllChannels),
		NewSaturation(AllChannels),
		NewSettlingTime(AllChannels, 0.02),
	}
}

// Collect evaluates ms into a map keyed by metric name.
func Collect(ms []Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}
