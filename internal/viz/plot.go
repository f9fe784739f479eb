package viz

import (
	"fmt"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/pidloop/internal/experiment"
)

// Fields that PlotTraces can draw.
var PlotFields = []string{"tracking", "target", "measured", "output", "error", "position", "speed"}

// PlotTraces draws one channel of a run. "tracking" overlays the ramped
// target on the measurement.
func PlotTraces(traces []experiment.Trace, channel int, field string, width, height int) (string, error) {
	if len(traces) == 0 {
		return "", fmt.Errorf("viz: no traces")
	}
	if channel < 0 || channel >= len(traces[0].Channels) {
		return "", fmt.Errorf("viz: channel %d out of range", channel)
	}

	opts := []asciigraph.Option{
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(fmt.Sprintf("channel %d %s over %.2fs", channel, field, traces[len(traces)-1].Time)),
	}

	if field == "tracking" {
		ramped := column(traces, channel, func(c experiment.ChannelTrace) float64 { return c.Ramped })
		measured := column(traces, channel, func(c experiment.ChannelTrace) float64 { return c.Measured })
		if _, _, ok := bounds(ramped); !ok {
			return "", fmt.Errorf("viz: channel %d never published", channel)
		}
		opts = append(opts, asciigraph.SeriesColors(asciigraph.Red, asciigraph.Green))
		return asciigraph.PlotMany([][]float64{ramped, measured}, opts...), nil
	}

	get, err := fieldGetter(field)
	if err != nil {
		return "", err
	}
	data := column(traces, channel, get)
	if _, _, ok := bounds(data); !ok {
		return "", fmt.Errorf("viz: channel %d has no %s values", channel, field)
	}
	return asciigraph.Plot(data, opts...), nil
}

func fieldGetter(field string) (func(experiment.ChannelTrace) float64, error) {
	switch field {
	case "target":
		return func(c experiment.ChannelTrace) float64 { return c.Target }, nil
	case "measured":
		return func(c experiment.ChannelTrace) float64 { return c.Measured }, nil
	case "output":
		return func(c experiment.ChannelTrace) float64 { return c.Output.Value }, nil
	case "error":
		return func(c experiment.ChannelTrace) float64 { return c.PID.Error }, nil
	case "position":
		return func(c experiment.ChannelTrace) float64 { return c.Position }, nil
	case "speed":
		return func(c experiment.ChannelTrace) float64 { return c.Speed }, nil
	}
	return nil, fmt.Errorf("viz: unknown field %q (want one of %v)", field, PlotFields)
}

func column(traces []experiment.Trace, channel int, get func(experiment.ChannelTrace) float64) []float64 {
	out := make([]float64, len(traces))
	for i, tr := range traces {
		out[i] = get(tr.Channels[channel])
	}
	return out
}
