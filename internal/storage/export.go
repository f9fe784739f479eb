package storage

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/san-kum/pidloop/internal/experiment"
)

// Number encodes NaN and infinities as null.
type Number float64

func (n Number) MarshalJSON() ([]byte, error) {
	if !finite(float64(n)) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, float64(n), 'g', -1, 64), nil
}

type ChannelExport struct {
	Requested    []string `json:"requested"`
	Target       []Number `json:"target"`
	Ramped       []Number `json:"ramped"`
	Measured     []Number `json:"measured"`
	OutputDomain []string `json:"output_domain"`
	Output       []Number `json:"output"`
	Position     []Number `json:"position"`
	Speed        []Number `json:"speed"`
}

type ExportData struct {
	Metadata  RunMetadata     `json:"metadata"`
	Steps     int             `json:"steps"`
	Times     []Number        `json:"times"`
	Published []bool          `json:"published"`
	Channels  []ChannelExport `json:"channels"`
}

func NewExportData(meta RunMetadata, traces []experiment.Trace) ExportData {
	data := ExportData{
		Metadata:  meta,
		Steps:     len(traces),
		Times:     make([]Number, len(traces)),
		Published: make([]bool, len(traces)),
	}
	if len(traces) > 0 {
		data.Channels = make([]ChannelExport, len(traces[0].Channels))
	}

	for k, tr := range traces {
		data.Times[k] = Number(tr.Time)
		data.Published[k] = tr.Published
		for i, c := range tr.Channels {
			if i >= len(data.Channels) {
				break
			}
			ch := &data.Channels[i]
			ch.Requested = append(ch.Requested, c.Requested.String())
			ch.Target = append(ch.Target, Number(c.Target))
			ch.Ramped = append(ch.Ramped, Number(c.Ramped))
			ch.Measured = append(ch.Measured, Number(c.Measured))
			ch.OutputDomain = append(ch.OutputDomain, c.Output.Domain.String())
			ch.Output = append(ch.Output, Number(c.Output.Value))
			ch.Position = append(ch.Position, Number(c.Position))
			ch.Speed = append(ch.Speed, Number(c.Speed))
		}
	}
	return data
}

func ExportJSON(w io.Writer, meta RunMetadata, traces []experiment.Trace) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewExportData(meta, traces))
}

func ExportCSV(w io.Writer, traces []experiment.Trace) error {
	return WriteTraces(w, traces)
}
