// Package store keeps raw channel readings in memory and aligns them onto
// the fixed simulation step grid.
package store

import (
	"math"
	"sort"
	"sync"
	"time"

	"thermostat_cosim/internal/frame"
	"thermostat_cosim/internal/model"
)

// Store holds readings in memory, indexed by signal.
type Store struct {
	mu       sync.RWMutex
	readings map[model.Signal][]model.Reading // sorted by timestamp
	order    []model.Signal
}

func New() *Store {
	return &Store{
		readings: make(map[model.Signal][]model.Reading),
	}
}

// AddReadings adds readings, then sorts each affected signal by timestamp.
func (s *Store) AddReadings(readings []model.Reading) {
	if len(readings) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[model.Signal]bool)
	for _, r := range readings {
		if _, ok := s.readings[r.Signal]; !ok {
			s.order = append(s.order, r.Signal)
		}
		s.readings[r.Signal] = append(s.readings[r.Signal], r)
		seen[r.Signal] = true
	}

	for sig := range seen {
		rs := s.readings[sig]
		sort.SliceStable(rs, func(i, j int) bool {
			return rs[i].Timestamp.Before(rs[j].Timestamp)
		})
	}
}

// Signals returns the stored signals in the order they were first added.
func (s *Store) Signals() []model.Signal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Signal, len(s.order))
	copy(out, s.order)
	return out
}

// ReadingCount returns the number of readings for a signal.
func (s *Store) ReadingCount(sig model.Signal) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.readings[sig])
}

// TimeRange returns the time range covered by a signal's readings.
func (s *Store) TimeRange(sig model.Signal) (model.TimeRange, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	readings := s.readings[sig]
	if len(readings) == 0 {
		return model.TimeRange{}, false
	}

	return model.TimeRange{
		Start: readings[0].Timestamp,
		End:   readings[len(readings)-1].Timestamp,
	}, true
}

// GlobalTimeRange returns the union of all signals' time ranges.
func (s *Store) GlobalTimeRange() (model.TimeRange, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var start, end time.Time
	first := true

	for _, readings := range s.readings {
		if len(readings) == 0 {
			continue
		}
		rStart := readings[0].Timestamp
		rEnd := readings[len(readings)-1].Timestamp

		if first || rStart.Before(start) {
			start = rStart
		}
		if first || rEnd.After(end) {
			end = rEnd
		}
		first = false
	}

	if first {
		return model.TimeRange{}, false
	}
	return model.TimeRange{Start: start, End: end}, true
}

// ReadingsInRange returns readings for a signal between start (inclusive) and end (exclusive).
func (s *Store) ReadingsInRange(sig model.Signal, start, end time.Time) []model.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.readings[sig]
	if len(all) == 0 {
		return nil
	}

	startIdx := sort.Search(len(all), func(i int) bool {
		return !all[i].Timestamp.Before(start)
	})
	endIdx := sort.Search(len(all), func(i int) bool {
		return !all[i].Timestamp.Before(end)
	})

	if startIdx >= endIdx {
		return nil
	}

	result := make([]model.Reading, endIdx-startIdx)
	copy(result, all[startIdx:endIdx])
	return result
}

// ReadingAt returns the most recent reading at or before t that is younger
// than maxAge.
func (s *Store) ReadingAt(sig model.Signal, t time.Time, maxAge time.Duration) (model.Reading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return readingAt(s.readings[sig], t, maxAge)
}

func readingAt(all []model.Reading, t time.Time, maxAge time.Duration) (model.Reading, bool) {
	if len(all) == 0 {
		return model.Reading{}, false
	}

	// Find first reading after t
	idx := sort.Search(len(all), func(i int) bool {
		return all[i].Timestamp.After(t)
	})

	if idx == 0 {
		return model.Reading{}, false
	}
	r := all[idx-1]
	if t.Sub(r.Timestamp) >= maxAge {
		return model.Reading{}, false
	}
	return r, true
}

// Frame aligns the given signals onto the grid [start, end) at step. A
// reading fills grid time t when t-step < timestamp <= t; grid times with no
// such reading stay null so sampling gaps remain visible.
func (s *Store) Frame(signals []model.Signal, start, end time.Time, step time.Duration) *frame.Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()

	times := frame.Grid(start, end, step)
	f := frame.New(times)
	for _, sig := range signals {
		all := s.readings[sig]
		if model.KindOf(sig) == model.Categorical {
			values := make([]string, len(times))
			for i, t := range times {
				if r, ok := readingAt(all, t, step); ok {
					values[i] = r.Text
				}
			}
			f.SetText(sig, values)
			continue
		}
		values := make([]float64, len(times))
		for i, t := range times {
			values[i] = math.NaN()
			if r, ok := readingAt(all, t, step); ok {
				values[i] = r.Value
			}
		}
		f.SetFloat(sig, values)
	}
	return f
}
