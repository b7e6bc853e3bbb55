package frame

import (
	"time"

	"thermostat_cosim/internal/model"
)

// Row is a snapshot of one frame row. Null values are absent.
type Row struct {
	Time   time.Time
	Values model.Values
	Labels map[model.Signal]string
}

// Float returns the numeric value of s.
func (r Row) Float(s model.Signal) (float64, bool) {
	return r.Values.Get(s)
}

// Text returns the label of s.
func (r Row) Text(s model.Signal) (string, bool) {
	v, ok := r.Labels[s]
	return v, ok && v != ""
}

// Overlay returns a copy of the row with values set on top of it.
func (r Row) Overlay(values model.Values) Row {
	out := Row{
		Time:   r.Time,
		Values: make(model.Values, len(r.Values)),
		Labels: r.Labels,
	}
	for s, v := range r.Values {
		out.Values[s] = v
	}
	for s, v := range values {
		out.Values[s] = v
	}
	return out
}
