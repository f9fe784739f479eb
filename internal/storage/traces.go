package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/san-kum/pidloop/internal/experiment"
	"github.com/san-kum/pidloop/internal/joints"
)

var channelColumns = []string{
	"requested", "target", "ramped", "measured",
	"output_domain", "output",
	"p", "i", "d", "saturated",
	"position", "speed",
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// WriteTraces encodes traces as CSV, one row per cycle.
func WriteTraces(w io.Writer, traces []experiment.Trace) error {
	cw := csv.NewWriter(w)
	if len(traces) == 0 {
		cw.Flush()
		return cw.Error()
	}

	header := []string{"time", "published"}
	for i := range traces[0].Channels {
		for _, col := range channelColumns {
			header = append(header, fmt.Sprintf("c%d_%s", i, col))
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, tr := range traces {
		row := []string{formatFloat(tr.Time), strconv.FormatBool(tr.Published)}
		for _, c := range tr.Channels {
			row = append(row,
				c.Requested.String(),
				formatFloat(c.Target),
				formatFloat(c.Ramped),
				formatFloat(c.Measured),
				c.Output.Domain.String(),
				formatFloat(c.Output.Value),
				formatFloat(c.PID.Proportional),
				formatFloat(c.PID.Integral),
				formatFloat(c.PID.Derivative),
				strconv.FormatBool(c.PID.Saturated),
				formatFloat(c.Position),
				formatFloat(c.Speed),
			)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadTraces decodes the output of WriteTraces.
func ReadTraces(r io.Reader) ([]experiment.Trace, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []experiment.Trace{}, nil
	}

	width := len(records[0]) - 2
	if width < 0 || width%len(channelColumns) != 0 {
		return nil, fmt.Errorf("storage: malformed trace header with %d columns", len(records[0]))
	}
	n := width / len(channelColumns)

	traces := make([]experiment.Trace, 0, len(records)-1)
	for line, rec := range records[1:] {
		p := parser{rec: rec}
		tr := experiment.Trace{
			Time:      p.float(0),
			Published: p.bool(1),
			Channels:  make([]experiment.ChannelTrace, n),
		}
		for i := range tr.Channels {
			base := 2 + i*len(channelColumns)
			tr.Channels[i] = experiment.ChannelTrace{
				Requested: p.domain(base),
				Target:    p.float(base + 1),
				Ramped:    p.float(base + 2),
				Measured:  p.float(base + 3),
				Output: joints.Output{
					Domain: p.domain(base + 4),
					Value:  p.float(base + 5),
				},
				PID: joints.PIDState{
					Proportional: p.float(base + 6),
					Integral:     p.float(base + 7),
					Derivative:   p.float(base + 8),
					Saturated:    p.bool(base + 9),
				},
				Position: p.float(base + 10),
				Speed:    p.float(base + 11),
			}
			tr.Channels[i].PID.Output = tr.Channels[i].Output.Value
		}
		if p.err != nil {
			return nil, fmt.Errorf("storage: trace row %d: %w", line+1, p.err)
		}
		traces = append(traces, tr)
	}
	return traces, nil
}

// parser keeps the first conversion error of a row.
type parser struct {
	rec []string
	err error
}

func (p *parser) float(i int) float64 {
	v, err := strconv.ParseFloat(p.rec[i], 64)
	if err != nil && p.err == nil {
		p.err = err
	}
	return v
}

func (p *parser) bool(i int) bool {
	v, err := strconv.ParseBool(p.rec[i])
	if err != nil && p.err == nil {
		p.err = err
	}
	return v
}

func (p *parser) domain(i int) joints.Domain {
	d, err := joints.ParseDomain(p.rec[i])
	if err != nil && p.err == nil {
		p.err = err
	}
	return d
}
