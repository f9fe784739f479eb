package recorder

import (
	"database/sql"
	"time"

	"github.com/san-kum/pidloop/internal/joints"
)

func known(v sql.NullFloat64) float64 {
	if !v.Valid {
		return joints.Unknown
	}
	return v.Float64
}

// Cycles returns the recorded rows of a session in cycle and channel order.
func (r *Recorder) Cycles(session string) ([]CycleRow, error) {
	rows, err := r.db.Query(`SELECT cycle, time_ns, channel, requested, target, ramped, measured,
		output, proportional, integral, derivative, saturated, updated
		FROM cycles WHERE session = ? ORDER BY cycle, channel`, session)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CycleRow
	for rows.Next() {
		var (
			row       CycleRow
			timeNS    int64
			requested string
			target, ramped, measured, output,
			prop, integ, deriv sql.NullFloat64
			saturated, updated bool
		)
		if err := rows.Scan(&row.Cycle, &timeNS, &row.Channel, &requested, &target, &ramped, &measured,
			&output, &prop, &integ, &deriv, &saturated, &updated); err != nil {
			return nil, err
		}
		d, err := joints.ParseDomain(requested)
		if err != nil {
			return nil, err
		}
		row.Time = time.Unix(0, timeNS)
		row.Diagnostic = joints.ChannelDiagnostic{
			Requested: d,
			Target:    known(target),
			Ramped:    known(ramped),
			Measured:  known(measured),
			Updated:   updated,
			PID: joints.PIDState{
				Output:       known(output),
				Proportional: known(prop),
				Integral:     known(integ),
				Derivative:   known(deriv),
				Saturated:    saturated,
			},
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *Recorder) Events(session string) ([]Event, error) {
	rows, err := r.db.Query(`SELECT cycle, time_ns, kind, detail FROM events
		WHERE session = ? ORDER BY cycle, rowid`, session)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			ev     Event
			timeNS int64
		)
		if err := rows.Scan(&ev.Cycle, &timeNS, &ev.Kind, &ev.Detail); err != nil {
			return nil, err
		}
		ev.Time = time.Unix(0, timeNS)
		out = append(out, ev)
	}
	return out, rows.Err()
}
