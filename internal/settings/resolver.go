// Package settings owns the effective thermostat settings during a run.
package settings

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"thermostat_cosim/internal/model"
)

// ErrEmptyTimeline is returned when a settings timeline has no change points.
var ErrEmptyTimeline = errors.New("settings timeline is empty")

// Resolver advances a SettingsRecord across extracted change points as
// simulated time passes. It is the only writer of the record.
type Resolver struct {
	record model.SettingsRecord

	schedules model.Series[model.WeeklyProgram]
	modes     model.Series[model.HVACMode]
	comfort   model.ComfortTimeline

	nextSchedule int
	nextMode     int
	nextComfort  map[string]int
}

// NewResolver initializes the record from the first change point of every
// series. Each series' first point is the initial state and is never
// applied again.
func NewResolver(schedules model.Series[model.WeeklyProgram], comfort model.ComfortTimeline, modes model.Series[model.HVACMode]) (*Resolver, error) {
	var empty []string
	if len(schedules) == 0 {
		empty = append(empty, "schedule")
	}
	if comfort.Len() == 0 {
		empty = append(empty, "comfort")
	}
	if len(modes) == 0 {
		empty = append(empty, "hvac mode")
	}
	if len(empty) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyTimeline, strings.Join(empty, ", "))
	}

	r := &Resolver{
		schedules:    schedules,
		modes:        modes,
		comfort:      comfort,
		nextSchedule: 1,
		nextMode:     1,
		nextComfort:  make(map[string]int, comfort.Len()),
		record: model.SettingsRecord{
			Mode:    modes[0].Value,
			Program: schedules[0].Value.Clone(),
			Comfort: make(map[string]model.ComfortPreference, comfort.Len()),
		},
	}
	for _, name := range comfort.Names {
		series := comfort.Series[name]
		if len(series) == 0 {
			continue
		}
		r.record.Comfort[name] = series[0].Value
		r.nextComfort[name] = 1
	}
	return r, nil
}

// Advance applies every pending change point at or before now. It reports
// whether the record changed.
func (r *Resolver) Advance(now time.Time) bool {
	changed := false

	for r.nextSchedule < len(r.schedules) && !r.schedules[r.nextSchedule].Time.After(now) {
		r.record.Program = r.schedules[r.nextSchedule].Value.Clone()
		r.nextSchedule++
		changed = true
	}

	for r.nextMode < len(r.modes) && !r.modes[r.nextMode].Time.After(now) {
		if r.record.Mode != r.modes[r.nextMode].Value {
			changed = true
		}
		r.record.Mode = r.modes[r.nextMode].Value
		r.nextMode++
	}

	for _, name := range r.comfort.Names {
		series := r.comfort.Series[name]
		for r.nextComfort[name] < len(series) && !series[r.nextComfort[name]].Time.After(now) {
			r.record.Comfort[name] = series[r.nextComfort[name]].Value
			r.nextComfort[name]++
			changed = true
		}
	}

	return changed
}

// Settings returns a snapshot of the current record.
func (r *Resolver) Settings() model.SettingsRecord {
	return r.record.Clone()
}

// Mode returns the current hvac mode.
func (r *Resolver) Mode() model.HVACMode {
	return r.record.Mode
}

// Effective returns the schedule name in effect at t and its preference.
func (r *Resolver) Effective(t time.Time) (string, model.ComfortPreference, bool) {
	return r.record.Effective(t)
}
