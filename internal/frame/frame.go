// Package frame holds step-indexed tabular signal data. Numeric nulls are NaN,
// categorical nulls are the empty string. Column order is insertion order.
package frame

import (
	"fmt"
	"math"
	"sort"
	"time"

	"thermostat_cosim/internal/model"
)

// Frame is a time-indexed table of signals with ascending timestamps.
type Frame struct {
	times  []time.Time
	order  []model.Signal
	floats map[model.Signal][]float64
	texts  map[model.Signal][]string
}

// New creates a frame over the given ascending timestamps.
func New(times []time.Time) *Frame {
	return &Frame{
		times:  times,
		floats: make(map[model.Signal][]float64),
		texts:  make(map[model.Signal][]string),
	}
}

// Grid returns ascending timestamps from start (inclusive) to end
// (exclusive) at step.
func Grid(start, end time.Time, step time.Duration) []time.Time {
	if step <= 0 || !start.Before(end) {
		return nil
	}
	n := int(end.Sub(start) / step)
	if start.Add(time.Duration(n) * step).Before(end) {
		n++
	}
	times := make([]time.Time, n)
	for i := range times {
		times[i] = start.Add(time.Duration(i) * step)
	}
	return times
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.times)
}

// Times returns the row timestamps.
func (f *Frame) Times() []time.Time {
	return f.times
}

// Time returns the timestamp of row i.
func (f *Frame) Time(i int) time.Time {
	return f.times[i]
}

// Signals returns the columns in insertion order.
func (f *Frame) Signals() []model.Signal {
	out := make([]model.Signal, len(f.order))
	copy(out, f.order)
	return out
}

// Has reports whether the frame has a column for s.
func (f *Frame) Has(s model.Signal) bool {
	if f == nil {
		return false
	}
	_, okF := f.floats[s]
	_, okT := f.texts[s]
	return okF || okT
}

func (f *Frame) track(s model.Signal) {
	if !f.Has(s) {
		f.order = append(f.order, s)
	}
}

// SetFloat sets the numeric column s. It panics when the length does not
// match the frame.
func (f *Frame) SetFloat(s model.Signal, values []float64) {
	if len(values) != len(f.times) {
		panic(fmt.Sprintf("frame: column %s has %d values, want %d", s, len(values), len(f.times)))
	}
	f.track(s)
	f.floats[s] = values
}

// SetText sets the categorical column s. It panics when the length does not
// match the frame.
func (f *Frame) SetText(s model.Signal, values []string) {
	if len(values) != len(f.times) {
		panic(fmt.Sprintf("frame: column %s has %d values, want %d", s, len(values), len(f.times)))
	}
	f.track(s)
	f.texts[s] = values
}

// AllocFloat adds a NaN-filled numeric column and returns it for writing.
func (f *Frame) AllocFloat(s model.Signal) []float64 {
	values := make([]float64, len(f.times))
	for i := range values {
		values[i] = math.NaN()
	}
	f.SetFloat(s, values)
	return values
}

// AllocText adds an empty categorical column and returns it for writing.
func (f *Frame) AllocText(s model.Signal) []string {
	values := make([]string, len(f.times))
	f.SetText(s, values)
	return values
}

// Float returns the numeric column s, or nil.
func (f *Frame) Float(s model.Signal) []float64 {
	if f == nil {
		return nil
	}
	return f.floats[s]
}

// Text returns the categorical column s, or nil.
func (f *Frame) Text(s model.Signal) []string {
	if f == nil {
		return nil
	}
	return f.texts[s]
}

// IsText reports whether s is stored as a categorical column.
func (f *Frame) IsText(s model.Signal) bool {
	_, ok := f.texts[s]
	return ok
}

// IsNull reports whether row i has no value for s. Missing columns are null.
func (f *Frame) IsNull(s model.Signal, i int) bool {
	if col, ok := f.floats[s]; ok {
		return math.IsNaN(col[i])
	}
	if col, ok := f.texts[s]; ok {
		return col[i] == ""
	}
	return true
}

// Index returns the row whose timestamp equals t.
func (f *Frame) Index(t time.Time) (int, bool) {
	if f == nil {
		return 0, false
	}
	idx := sort.Search(len(f.times), func(i int) bool {
		return !f.times[i].Before(t)
	})
	if idx < len(f.times) && f.times[idx].Equal(t) {
		return idx, true
	}
	return 0, false
}

// Row returns a snapshot of row i.
func (f *Frame) Row(i int) Row {
	r := Row{
		Time:   f.times[i],
		Values: make(model.Values, len(f.floats)),
		Labels: make(map[model.Signal]string, len(f.texts)),
	}
	for s, col := range f.floats {
		if !math.IsNaN(col[i]) {
			r.Values[s] = col[i]
		}
	}
	for s, col := range f.texts {
		if col[i] != "" {
			r.Labels[s] = col[i]
		}
	}
	return r
}

// RowAt returns the row at t, or an empty row when the frame has none.
func (f *Frame) RowAt(t time.Time) Row {
	if i, ok := f.Index(t); ok {
		return f.Row(i)
	}
	return Row{Time: t, Values: model.Values{}, Labels: map[model.Signal]string{}}
}

// Select returns a new frame with the rows for which keep returns true.
func (f *Frame) Select(keep func(i int) bool) *Frame {
	var idx []int
	for i := range f.times {
		if keep(i) {
			idx = append(idx, i)
		}
	}
	return f.take(idx)
}

// Slice returns rows [i, j).
func (f *Frame) Slice(i, j int) *Frame {
	idx := make([]int, 0, j-i)
	for k := i; k < j; k++ {
		idx = append(idx, k)
	}
	return f.take(idx)
}

// Between returns the rows within [start, end], bounds included.
func (f *Frame) Between(start, end time.Time) *Frame {
	tr := model.TimeRange{Start: start, End: end}
	return f.Select(func(i int) bool { return tr.Contains(f.times[i]) })
}

// Mask keeps only the rows that fall within one of the periods.
func (f *Frame) Mask(periods []model.FullDataPeriod) *Frame {
	return f.Select(func(i int) bool {
		t := f.times[i]
		idx := sort.Search(len(periods), func(k int) bool {
			return !periods[k].End.Before(t)
		})
		return idx < len(periods) && periods[idx].Contains(t)
	})
}

func (f *Frame) take(idx []int) *Frame {
	times := make([]time.Time, len(idx))
	for k, i := range idx {
		times[k] = f.times[i]
	}
	out := New(times)
	for _, s := range f.order {
		if col, ok := f.floats[s]; ok {
			values := make([]float64, len(idx))
			for k, i := range idx {
				values[k] = col[i]
			}
			out.SetFloat(s, values)
			continue
		}
		col := f.texts[s]
		values := make([]string, len(idx))
		for k, i := range idx {
			values[k] = col[i]
		}
		out.SetText(s, values)
	}
	return out
}
