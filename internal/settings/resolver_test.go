package settings

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thermostat_cosim/internal/model"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func hours(n int) time.Time { return t0.Add(time.Duration(n) * time.Hour) }

func comfortOf(points map[string]model.Series[model.ComfortPreference], names ...string) model.ComfortTimeline {
	c := model.NewComfortTimeline()
	for _, name := range names {
		for _, cp := range points[name] {
			c.Add(name, cp)
		}
	}
	return c
}

func fixture() (model.Series[model.WeeklyProgram], model.ComfortTimeline, model.Series[model.HVACMode]) {
	schedules := model.Series[model.WeeklyProgram]{
		{Time: t0, Value: model.AllWeek("Home")},
		{Time: hours(24), Value: model.AllWeek("Away")},
	}
	comfort := comfortOf(map[string]model.Series[model.ComfortPreference]{
		"Home": {
			{Time: t0, Value: model.ComfortPreference{HeatingSetpoint: 18.9, CoolingSetpoint: 25.6}},
			{Time: hours(10), Value: model.ComfortPreference{HeatingSetpoint: 20, CoolingSetpoint: 25.6}},
		},
		"Away": {
			{Time: hours(30), Value: model.ComfortPreference{HeatingSetpoint: 15, CoolingSetpoint: 29}},
			{Time: hours(40), Value: model.ComfortPreference{HeatingSetpoint: 14, CoolingSetpoint: 29}},
		},
	}, "Home", "Away")
	modes := model.Series[model.HVACMode]{
		{Time: t0, Value: model.ModeHeat},
		{Time: hours(5), Value: model.ModeAuto},
	}
	return schedules, comfort, modes
}

func TestNewResolver_Initial(t *testing.T) {
	r, err := NewResolver(fixture())
	require.NoError(t, err)

	s := r.Settings()
	assert.Equal(t, model.ModeHeat, s.Mode)
	assert.Equal(t, model.AllWeek("Home"), s.Program)
	assert.Equal(t, 18.9, s.Comfort["Home"].HeatingSetpoint)
	assert.Equal(t, 15.0, s.Comfort["Away"].HeatingSetpoint, "initial point of every name")

	name, pref, ok := r.Effective(hours(1))
	require.True(t, ok)
	assert.Equal(t, "Home", name)
	assert.Equal(t, 18.9, pref.HeatingSetpoint)
}

func TestNewResolver_EmptySeries(t *testing.T) {
	schedules, comfort, _ := fixture()

	_, err := NewResolver(schedules, comfort, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyTimeline))
	assert.Contains(t, err.Error(), "hvac mode")

	_, err = NewResolver(nil, model.NewComfortTimeline(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schedule, comfort, hvac mode")
}

func TestResolver_InitialPointNeverReapplied(t *testing.T) {
	r, err := NewResolver(fixture())
	require.NoError(t, err)

	assert.False(t, r.Advance(t0))
}

func TestResolver_Advance(t *testing.T) {
	r, err := NewResolver(fixture())
	require.NoError(t, err)

	assert.False(t, r.Advance(hours(4)))

	assert.True(t, r.Advance(hours(5)))
	assert.Equal(t, model.ModeAuto, r.Mode())

	assert.True(t, r.Advance(hours(10)))
	assert.Equal(t, 20.0, r.Settings().Comfort["Home"].HeatingSetpoint)
	assert.Equal(t, 15.0, r.Settings().Comfort["Away"].HeatingSetpoint, "other names retained")

	assert.True(t, r.Advance(hours(24)))
	assert.Equal(t, model.AllWeek("Away"), r.Settings().Program)
	assert.Equal(t, 20.0, r.Settings().Comfort["Home"].HeatingSetpoint, "inactive names retained")

	assert.False(t, r.Advance(hours(25)))
}

func TestResolver_AdvanceCatchesUp(t *testing.T) {
	r, err := NewResolver(fixture())
	require.NoError(t, err)

	assert.True(t, r.Advance(hours(100)))
	s := r.Settings()
	assert.Equal(t, model.ModeAuto, s.Mode)
	assert.Equal(t, model.AllWeek("Away"), s.Program)
	assert.Equal(t, 14.0, s.Comfort["Away"].HeatingSetpoint)
	assert.False(t, r.Advance(hours(101)))
}

func TestResolver_SettingsIsSnapshot(t *testing.T) {
	r, err := NewResolver(fixture())
	require.NoError(t, err)

	s := r.Settings()
	s.Comfort["Home"] = model.ComfortPreference{HeatingSetpoint: 30}
	s.Program[0].Name = "Party"

	assert.Equal(t, 18.9, r.Settings().Comfort["Home"].HeatingSetpoint)
	assert.Equal(t, "Home", r.Settings().Program[0].Name)
}
