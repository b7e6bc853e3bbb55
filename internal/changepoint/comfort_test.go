package changepoint

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thermostat_cosim/internal/model"
)

func home(time.Time) string { return "Home" }

func TestExtractComfort_Constant(t *testing.T) {
	f := thermostatFrame(monday, 864, home)

	timeline, err := ExtractComfort(f, step)

	require.NoError(t, err)
	assert.Equal(t, []string{"Home"}, timeline.Names)
	require.Len(t, timeline.Series["Home"], 1)
	cp := timeline.Series["Home"][0]
	assert.Equal(t, monday, cp.Time)
	assert.InDelta(t, 18.9, cp.Value.HeatingSetpoint, 1e-9)
	assert.InDelta(t, 25.6, cp.Value.CoolingSetpoint, 1e-9)
}

func TestExtractComfort_SingleRevision(t *testing.T) {
	f := thermostatFrame(monday, 864, home)
	heat := f.Float(model.SignalHeatSetpoint)
	for i := 100; i < len(heat); i++ {
		heat[i] = 20.0
	}

	timeline, err := ExtractComfort(f, step)

	require.NoError(t, err)
	series := timeline.Series["Home"]
	require.Len(t, series, 2)
	assert.Equal(t, f.Time(100), series[1].Time)
	assert.InDelta(t, 20.0, series[1].Value.HeatingSetpoint, 1e-9)
	assert.InDelta(t, 25.6, series[1].Value.CoolingSetpoint, 1e-9)
}

func TestExtractComfort_HoldIsIgnored(t *testing.T) {
	f := thermostatFrame(monday, 288, home)
	heat := f.Float(model.SignalHeatSetpoint)
	events := f.Text(model.SignalCalendarEvent)
	for i := 99; i <= 105; i++ {
		events[i] = "hold"
	}
	heat[100], heat[101], heat[102] = 22, 22, 22

	timeline, err := ExtractComfort(f, step)

	require.NoError(t, err)
	assert.Len(t, timeline.Series["Home"], 1)
}

func TestExtractComfort_ScheduleBoundaryRowsAreNotClean(t *testing.T) {
	f := thermostatFrame(monday, rowsPerWeek(), workweek(8*60))

	timeline, err := ExtractComfort(f, step)

	require.NoError(t, err)
	assert.Equal(t, []string{"Sleep", "Home", "Away"}, timeline.Names)
	for _, name := range timeline.Names {
		assert.Len(t, timeline.Series[name], 1, name)
	}
	// First clean Home row is 06:05; 06:00 borders Sleep.
	assert.Equal(t, monday.Add(6*time.Hour+5*time.Minute), timeline.Series["Home"][0].Time)
}

func TestExtractComfort_RevisionAcrossGapIgnored(t *testing.T) {
	f := thermostatFrame(monday, 288, home)
	heat := f.Float(model.SignalHeatSetpoint)
	names := f.Text(model.SignalSchedule)
	names[50] = ""
	for i := 51; i < len(heat); i++ {
		heat[i] = 21
	}

	timeline, err := ExtractComfort(f, step)

	require.NoError(t, err)
	assert.Len(t, timeline.Series["Home"], 1)
}

func TestExtractComfort_FallbackToMostFrequent(t *testing.T) {
	f := thermostatFrame(monday, 100, home)
	heat := f.Float(model.SignalHeatSetpoint)
	events := f.Text(model.SignalCalendarEvent)
	for i := range events {
		events[i] = "hold"
		if i%4 == 0 {
			heat[i] = 21
		}
	}

	timeline, err := ExtractComfort(f, step)

	require.NoError(t, err)
	require.Len(t, timeline.Series["Home"], 1)
	cp := timeline.Series["Home"][0]
	assert.Equal(t, monday, cp.Time)
	assert.InDelta(t, 18.9, cp.Value.HeatingSetpoint, 1e-9)
	assert.InDelta(t, 25.6, cp.Value.CoolingSetpoint, 1e-9)
}

func TestExtractComfort_AmbiguousFallback(t *testing.T) {
	f := thermostatFrame(monday, 100, home)
	heat := f.Float(model.SignalHeatSetpoint)
	events := f.Text(model.SignalCalendarEvent)
	for i := range events {
		events[i] = "hold"
		if i%2 == 0 {
			heat[i] = 21
		}
	}

	_, err := ExtractComfort(f, step)

	require.Error(t, err)
	var dqErr *DataQualityError
	require.True(t, errors.As(err, &dqErr))
	assert.Equal(t, "Home", dqErr.Schedule)
	assert.Contains(t, err.Error(), "heating setpoint")
}

func TestExtractComfort_NoSchedule(t *testing.T) {
	f := thermostatFrame(monday, 10, home)
	names := f.Text(model.SignalSchedule)
	for i := range names {
		names[i] = ""
	}

	timeline, err := ExtractComfort(f, step)

	require.NoError(t, err)
	assert.Equal(t, 0, timeline.Len())
}
