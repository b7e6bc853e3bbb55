// Package gaps finds the full data periods of step-sampled signals.
package gaps

import (
	"time"

	"thermostat_cosim/internal/frame"
	"thermostat_cosim/internal/model"
)

// FullDataPeriods returns the maximal spans of f in which every nullCheck
// column is present and consecutive rows are at most expected apart. Rows
// with a null in any nullCheck column are dropped before measuring gaps.
func FullDataPeriods(f *frame.Frame, nullCheck []model.Signal, expected time.Duration) []model.FullDataPeriod {
	if f.Len() == 0 {
		return nil
	}

	times := make([]time.Time, 0, f.Len())
	for i := 0; i < f.Len(); i++ {
		if complete(f, nullCheck, i) {
			times = append(times, f.Time(i))
		}
	}
	return Detect(times, expected)
}

// Detect splits ascending timestamps into periods wherever the delta between
// consecutive timestamps exceeds expected.
func Detect(times []time.Time, expected time.Duration) []model.FullDataPeriod {
	if len(times) == 0 {
		return nil
	}

	var periods []model.FullDataPeriod
	start := times[0]
	for i := 1; i < len(times); i++ {
		if times[i].Sub(times[i-1]) > expected {
			periods = append(periods, model.FullDataPeriod{Start: start, End: times[i-1]})
			start = times[i]
		}
	}
	return append(periods, model.FullDataPeriod{Start: start, End: times[len(times)-1]})
}

func complete(f *frame.Frame, nullCheck []model.Signal, i int) bool {
	for _, s := range nullCheck {
		if f.IsNull(s, i) {
			return false
		}
	}
	return true
}

// Intersect returns the spans covered by every one of the period lists.
// Each list must be ordered and non-overlapping.
func Intersect(lists ...[]model.FullDataPeriod) []model.FullDataPeriod {
	if len(lists) == 0 {
		return nil
	}
	out := lists[0]
	for _, next := range lists[1:] {
		out = intersectPair(out, next)
	}
	return out
}

func intersectPair(a, b []model.FullDataPeriod) []model.FullDataPeriod {
	var out []model.FullDataPeriod
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		start := later(a[i].Start, b[j].Start)
		end := earlier(a[i].End, b[j].End)
		if !end.Before(start) {
			out = append(out, model.FullDataPeriod{Start: start, End: end})
		}
		if a[i].End.Before(b[j].End) {
			i++
		} else {
			j++
		}
	}
	return out
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

// Covered returns the total duration spanned by the periods.
func Covered(periods []model.FullDataPeriod) time.Duration {
	var total time.Duration
	for _, p := range periods {
		total += p.End.Sub(p.Start)
	}
	return total
}
