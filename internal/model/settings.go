package model

import (
	"sort"
	"strings"
	"time"
)

const (
	MinutesPerDay = 1440
	DaysPerWeek   = 7
)

// HVACMode is the thermostat operating mode.
type HVACMode string

const (
	ModeHeat HVACMode = "heat"
	ModeCool HVACMode = "cool"
	ModeAuto HVACMode = "auto"
	ModeOff  HVACMode = "off"
)

// ParseHVACMode normalizes a raw mode label. Unknown labels are kept as-is,
// lower-cased.
func ParseHVACMode(s string) HVACMode {
	m := HVACMode(strings.ToLower(strings.TrimSpace(s)))
	if m == "auxheatonly" {
		return ModeHeat
	}
	return m
}

// ComfortPreference is the setpoint pair of one schedule name, in °C.
type ComfortPreference struct {
	HeatingSetpoint float64 `json:"heating_setpoint"`
	CoolingSetpoint float64 `json:"cooling_setpoint"`
}

// Period is one named segment of a weekly program starting at MinuteOfDay
// on every day flagged in OnDayOfWeek (Monday = 0).
type Period struct {
	Name        string  `json:"name"`
	MinuteOfDay int     `json:"minute_of_day"`
	OnDayOfWeek [7]bool `json:"on_day_of_week"`
}

// WeeklyProgram is an unordered set of periods.
type WeeklyProgram []Period

// Weekday returns the day of week of t with Monday = 0.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % DaysPerWeek
}

// MinuteOfDay returns the minute of day of t.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// Slot is one (day, minute) occurrence of a named period.
type Slot struct {
	Day    int
	Minute int
	Name   string
}

func (s Slot) weekMinute() int {
	return s.Day*MinutesPerDay + s.Minute
}

// Clone returns a deep copy of the program.
func (p WeeklyProgram) Clone() WeeklyProgram {
	if p == nil {
		return nil
	}
	out := make(WeeklyProgram, len(p))
	copy(out, p)
	return out
}

// Slots lists every enabled (day, minute, name) occurrence ordered by
// position within the week.
func (p WeeklyProgram) Slots() []Slot {
	var slots []Slot
	for _, period := range p {
		for day, on := range period.OnDayOfWeek {
			if on {
				slots = append(slots, Slot{Day: day, Minute: period.MinuteOfDay, Name: period.Name})
			}
		}
	}
	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].weekMinute() < slots[j].weekMinute()
	})
	return slots
}

// Expects returns the name of the period starting exactly at (day, minute).
func (p WeeklyProgram) Expects(day, minute int) (string, bool) {
	for _, period := range p {
		if period.MinuteOfDay == minute && period.OnDayOfWeek[day] {
			return period.Name, true
		}
	}
	return "", false
}

// NameAt returns the schedule name in effect at (day, minute): the latest
// period start at or before it, wrapping around the end of the week.
func (p WeeklyProgram) NameAt(day, minute int) (string, bool) {
	slots := p.Slots()
	if len(slots) == 0 {
		return "", false
	}
	target := day*MinutesPerDay + minute
	name := slots[len(slots)-1].Name
	for _, s := range slots {
		if s.weekMinute() > target {
			break
		}
		name = s.Name
	}
	return name, true
}

// ScheduleAt returns the schedule name in effect at t.
func (p WeeklyProgram) ScheduleAt(t time.Time) (string, bool) {
	return p.NameAt(Weekday(t), MinuteOfDay(t))
}

// Mark enables day for the period (name, minute), adding the period when
// absent. Any other period starting at the same slot loses that day.
func (p *WeeklyProgram) Mark(name string, minute, day int) {
	found := false
	for i := range *p {
		period := &(*p)[i]
		if period.MinuteOfDay != minute {
			continue
		}
		if period.Name == name {
			period.OnDayOfWeek[day] = true
			found = true
		} else {
			period.OnDayOfWeek[day] = false
		}
	}
	if !found {
		period := Period{Name: name, MinuteOfDay: minute}
		period.OnDayOfWeek[day] = true
		*p = append(*p, period)
	}
}

// AllWeek returns a program with a single period active every day from
// midnight.
func AllWeek(name string) WeeklyProgram {
	return WeeklyProgram{{
		Name:        name,
		MinuteOfDay: 0,
		OnDayOfWeek: [7]bool{true, true, true, true, true, true, true},
	}}
}

// ComfortTimeline holds one change point series per schedule name, keeping
// the order in which names were first seen.
type ComfortTimeline struct {
	Names  []string
	Series map[string]Series[ComfortPreference]
}

// NewComfortTimeline returns an empty timeline.
func NewComfortTimeline() ComfortTimeline {
	return ComfortTimeline{Series: make(map[string]Series[ComfortPreference])}
}

// Add appends a change point for name.
func (c *ComfortTimeline) Add(name string, cp ChangePoint[ComfortPreference]) {
	if c.Series == nil {
		c.Series = make(map[string]Series[ComfortPreference])
	}
	if _, ok := c.Series[name]; !ok {
		c.Names = append(c.Names, name)
	}
	c.Series[name] = append(c.Series[name], cp)
}

// Len returns the number of schedule names.
func (c ComfortTimeline) Len() int {
	return len(c.Names)
}

// SettingsRecord is the effective thermostat configuration at one instant.
type SettingsRecord struct {
	Mode    HVACMode                     `json:"hvac_mode"`
	Program WeeklyProgram                `json:"program"`
	Comfort map[string]ComfortPreference `json:"comfort"`
}

// Clone returns a deep copy so readers never share state with the owner.
func (r SettingsRecord) Clone() SettingsRecord {
	comfort := make(map[string]ComfortPreference, len(r.Comfort))
	for k, v := range r.Comfort {
		comfort[k] = v
	}
	return SettingsRecord{
		Mode:    r.Mode,
		Program: r.Program.Clone(),
		Comfort: comfort,
	}
}

// Effective returns the schedule in effect at t and its comfort preference.
func (r SettingsRecord) Effective(t time.Time) (string, ComfortPreference, bool) {
	name, ok := r.Program.ScheduleAt(t)
	if !ok {
		return "", ComfortPreference{}, false
	}
	pref, ok := r.Comfort[name]
	return name, pref, ok
}
