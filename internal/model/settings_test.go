package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weekdays() [7]bool {
	return [7]bool{true, true, true, true, true, false, false}
}

func testProgram() WeeklyProgram {
	return WeeklyProgram{
		{Name: "Home", MinuteOfDay: 6 * 60, OnDayOfWeek: weekdays()},
		{Name: "Away", MinuteOfDay: 8 * 60, OnDayOfWeek: weekdays()},
		{Name: "Sleep", MinuteOfDay: 22 * 60, OnDayOfWeek: [7]bool{true, true, true, true, true, true, true}},
	}
}

func TestWeekday(t *testing.T) {
	monday := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, Weekday(monday))
	assert.Equal(t, 6, Weekday(monday.AddDate(0, 0, 6)))
	assert.Equal(t, 13*60+5, MinuteOfDay(monday.Add(13*time.Hour+5*time.Minute)))
}

func TestWeeklyProgram_NameAt(t *testing.T) {
	p := testProgram()

	name, ok := p.NameAt(0, 7*60)
	require.True(t, ok)
	assert.Equal(t, "Home", name)

	name, _ = p.NameAt(2, 12*60)
	assert.Equal(t, "Away", name)

	// Saturday noon: the Friday 22:00 Sleep is still in effect.
	name, _ = p.NameAt(5, 12*60)
	assert.Equal(t, "Sleep", name)

	// Monday 03:00 wraps back to Sunday 22:00.
	name, _ = p.NameAt(0, 3*60)
	assert.Equal(t, "Sleep", name)

	_, ok = WeeklyProgram{}.NameAt(0, 0)
	assert.False(t, ok)
}

func TestWeeklyProgram_Expects(t *testing.T) {
	p := testProgram()

	name, ok := p.Expects(1, 8*60)
	require.True(t, ok)
	assert.Equal(t, "Away", name)

	_, ok = p.Expects(5, 8*60)
	assert.False(t, ok)
}

func TestWeeklyProgram_Mark(t *testing.T) {
	p := testProgram()

	p.Mark("Home", 6*60, 5)
	name, ok := p.Expects(5, 6*60)
	require.True(t, ok)
	assert.Equal(t, "Home", name)
	assert.Len(t, p, 3)

	// Marking a different name at an occupied slot moves the day over.
	p.Mark("Gym", 8*60, 0)
	name, _ = p.Expects(0, 8*60)
	assert.Equal(t, "Gym", name)
	assert.Len(t, p, 4)
	assert.False(t, p[1].OnDayOfWeek[0])
}

func TestWeeklyProgram_CloneIsIndependent(t *testing.T) {
	p := testProgram()
	c := p.Clone()
	c.Mark("Home", 6*60, 6)

	_, ok := p.Expects(6, 6*60)
	assert.False(t, ok)
}

func TestSettingsRecord_Effective(t *testing.T) {
	rec := SettingsRecord{
		Mode:    ModeHeat,
		Program: testProgram(),
		Comfort: map[string]ComfortPreference{
			"Away": {HeatingSetpoint: 16, CoolingSetpoint: 28},
		},
	}

	wednesdayNoon := time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)
	name, pref, ok := rec.Effective(wednesdayNoon)
	require.True(t, ok)
	assert.Equal(t, "Away", name)
	assert.InDelta(t, 16.0, pref.HeatingSetpoint, 0.001)

	_, _, ok = rec.Effective(wednesdayNoon.Add(-5 * time.Hour))
	assert.False(t, ok, "Home has no comfort preference")

	clone := rec.Clone()
	clone.Comfort["Away"] = ComfortPreference{}
	assert.InDelta(t, 16.0, rec.Comfort["Away"].HeatingSetpoint, 0.001)
}

func TestParseHVACMode(t *testing.T) {
	assert.Equal(t, ModeHeat, ParseHVACMode(" Heat "))
	assert.Equal(t, ModeHeat, ParseHVACMode("auxHeatOnly"))
	assert.Equal(t, ModeOff, ParseHVACMode("off"))
}

func TestComfortTimeline_KeepsInsertionOrder(t *testing.T) {
	c := NewComfortTimeline()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.Add("Sleep", ChangePoint[ComfortPreference]{Time: ts})
	c.Add("Home", ChangePoint[ComfortPreference]{Time: ts})
	c.Add("Sleep", ChangePoint[ComfortPreference]{Time: ts.Add(time.Hour)})

	assert.Equal(t, []string{"Sleep", "Home"}, c.Names)
	assert.Len(t, c.Series["Sleep"], 2)
	assert.Equal(t, 2, c.Len())
}
