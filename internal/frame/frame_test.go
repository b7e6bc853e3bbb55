package frame

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thermostat_cosim/internal/model"
)

var (
	startTime = time.Date(2024, 11, 21, 12, 0, 0, 0, time.UTC)
	step      = 5 * time.Minute
)

func makeFrame(temps []float64, schedules []string) *Frame {
	f := New(Grid(startTime, startTime.Add(time.Duration(len(temps))*step), step))
	f.SetFloat(model.SignalThermostatTemp, temps)
	f.SetText(model.SignalSchedule, schedules)
	return f
}

func TestGrid(t *testing.T) {
	times := Grid(startTime, startTime.Add(72*time.Hour), 300*time.Second)
	require.Len(t, times, 864)
	assert.Equal(t, startTime, times[0])
	assert.Equal(t, startTime.Add(863*300*time.Second), times[863])

	assert.Len(t, Grid(startTime, startTime.Add(7*time.Minute), step), 2)
	assert.Empty(t, Grid(startTime, startTime, step))
}

func TestFrame_ColumnsKeepInsertionOrder(t *testing.T) {
	f := makeFrame([]float64{20, 21}, []string{"Home", "Home"})
	f.AllocFloat(model.SignalHVACPower)

	assert.Equal(t, []model.Signal{
		model.SignalThermostatTemp,
		model.SignalSchedule,
		model.SignalHVACPower,
	}, f.Signals())
	assert.True(t, f.IsText(model.SignalSchedule))
	assert.True(t, f.IsNull(model.SignalHVACPower, 0))
	assert.True(t, f.IsNull(model.SignalOutdoorTemp, 0))
}

func TestFrame_SetFloatLengthMismatchPanics(t *testing.T) {
	f := New(Grid(startTime, startTime.Add(2*step), step))
	assert.Panics(t, func() { f.SetFloat(model.SignalThermostatTemp, []float64{1}) })
}

func TestFrame_IndexAndRowAt(t *testing.T) {
	f := makeFrame([]float64{20, math.NaN(), 22}, []string{"Home", "", "Away"})

	i, ok := f.Index(startTime.Add(2 * step))
	require.True(t, ok)
	assert.Equal(t, 2, i)

	_, ok = f.Index(startTime.Add(time.Minute))
	assert.False(t, ok)

	row := f.RowAt(startTime.Add(step))
	_, ok = row.Float(model.SignalThermostatTemp)
	assert.False(t, ok)
	_, ok = row.Text(model.SignalSchedule)
	assert.False(t, ok)

	row = f.RowAt(startTime.Add(2 * step))
	v, ok := row.Float(model.SignalThermostatTemp)
	require.True(t, ok)
	assert.InDelta(t, 22.0, v, 0.001)
	name, _ := row.Text(model.SignalSchedule)
	assert.Equal(t, "Away", name)

	missing := f.RowAt(startTime.Add(time.Hour))
	assert.Empty(t, missing.Values)
}

func TestFrame_Mask(t *testing.T) {
	f := makeFrame([]float64{1, 2, 3, 4, 5, 6}, []string{"a", "b", "c", "d", "e", "f"})
	periods := []model.FullDataPeriod{
		{Start: startTime, End: startTime.Add(step)},
		{Start: startTime.Add(4 * step), End: startTime.Add(5 * step)},
	}

	masked := f.Mask(periods)
	require.Equal(t, 4, masked.Len())
	assert.Equal(t, []float64{1, 2, 5, 6}, masked.Float(model.SignalThermostatTemp))
	assert.Equal(t, []string{"a", "b", "e", "f"}, masked.Text(model.SignalSchedule))

	assert.Equal(t, 0, f.Mask(nil).Len())
}

func TestFrame_SliceAndBetween(t *testing.T) {
	f := makeFrame([]float64{1, 2, 3, 4}, []string{"a", "b", "c", "d"})

	s := f.Slice(1, 3)
	assert.Equal(t, []float64{2, 3}, s.Float(model.SignalThermostatTemp))

	b := f.Between(startTime.Add(step), startTime.Add(3*step))
	assert.Equal(t, []string{"b", "c", "d"}, b.Text(model.SignalSchedule))
}

func TestRow_Overlay(t *testing.T) {
	f := makeFrame([]float64{20}, []string{"Home"})
	row := f.Row(0)

	over := row.Overlay(model.Values{model.SignalThermostatTemp: 23.5})
	v, _ := over.Float(model.SignalThermostatTemp)
	assert.InDelta(t, 23.5, v, 0.001)

	orig, _ := row.Float(model.SignalThermostatTemp)
	assert.InDelta(t, 20.0, orig, 0.001)
}

func TestMeanResampler(t *testing.T) {
	f := makeFrame(
		[]float64{20, 22, math.NaN(), 24, 25, 26},
		[]string{"Home", "Home", "Away", "", "Sleep", ""},
	)

	out, err := MeanResampler{}.Resample(f, 3*step)
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, startTime, out.Time(0))
	assert.Equal(t, startTime.Add(3*step), out.Time(1))

	temps := out.Float(model.SignalThermostatTemp)
	assert.InDelta(t, 21.0, temps[0], 0.001)
	assert.InDelta(t, 25.0, temps[1], 0.001)
	assert.Equal(t, []string{"Away", "Sleep"}, out.Text(model.SignalSchedule))
}

func TestMeanResampler_SameStepIsIdentity(t *testing.T) {
	f := makeFrame([]float64{20, 21, 22}, []string{"a", "b", "c"})

	out, err := MeanResampler{}.Resample(f, step)
	require.NoError(t, err)
	assert.Equal(t, f.Times(), out.Times())
	assert.Equal(t, f.Float(model.SignalThermostatTemp), out.Float(model.SignalThermostatTemp))
}

func TestMeanResampler_InvalidStep(t *testing.T) {
	_, err := MeanResampler{}.Resample(New(nil), 0)
	assert.Error(t, err)
}
