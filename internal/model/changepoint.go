package model

import (
	"sort"
	"time"
)

// ChangePoint marks when a derived quantity took a new effective value.
type ChangePoint[T any] struct {
	Time  time.Time
	Value T
}

// Series is an ascending sequence of change points. Its first entry is the
// initial observed state, not a transition.
type Series[T any] []ChangePoint[T]

// Initial returns the value of the first change point.
func (s Series[T]) Initial() (T, bool) {
	if len(s) == 0 {
		var zero T
		return zero, false
	}
	return s[0].Value, true
}

// Sort orders the series by time, keeping insertion order for equal times.
func (s Series[T]) Sort() {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].Time.Before(s[j].Time)
	})
}

// Times returns the change point timestamps.
func (s Series[T]) Times() []time.Time {
	out := make([]time.Time, len(s))
	for i, cp := range s {
		out[i] = cp.Time
	}
	return out
}
