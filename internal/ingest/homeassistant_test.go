package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thermostat_cosim/internal/model"
)

func TestHomeAssistantParser_ParseNumeric(t *testing.T) {
	input := `entity_id,state,last_changed
sensor.living_room_temperature,20.5,2024-11-21T12:00:00.000Z
sensor.living_room_temperature,20.75,2024-11-21T12:05:00.000Z
sensor.living_room_temperature,21.0,2024-11-21T12:10:00.000Z`

	parser := NewHomeAssistantParser(model.SignalThermostatTemp)
	readings, err := parser.Parse(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, readings, 3)

	assert.Equal(t, model.SignalThermostatTemp, readings[0].Signal)
	assert.InDelta(t, 20.5, readings[0].Value, 0.001)
	assert.Equal(t, time.Date(2024, 11, 21, 12, 0, 0, 0, time.UTC), readings[0].Timestamp)
	assert.InDelta(t, 20.75, readings[1].Value, 0.001)
}

func TestHomeAssistantParser_ParseCategorical(t *testing.T) {
	input := `entity_id,state,last_changed
climate.living_room,Home,2024-11-21T06:00:00Z
climate.living_room,Away,2024-11-21T08:00:00Z`

	parser := NewHomeAssistantParser(model.SignalSchedule)
	readings, err := parser.Parse(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, "Home", readings[0].Text)
	assert.Equal(t, "Away", readings[1].Text)
}

func TestHomeAssistantParser_SkipsUnavailable(t *testing.T) {
	input := `entity_id,state,last_changed
sensor.living_room_temperature,20.5,2024-11-21T13:00:00.000Z
sensor.living_room_temperature,unavailable,2024-11-21T14:00:00.000Z
climate.living_room,unknown,2024-11-21T14:30:00.000Z
sensor.living_room_temperature,21.5,2024-11-21T15:00:00.000Z`

	parser := NewHomeAssistantParser(model.SignalThermostatTemp)
	readings, err := parser.Parse(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.InDelta(t, 20.5, readings[0].Value, 0.001)
	assert.InDelta(t, 21.5, readings[1].Value, 0.001)
}

func TestHomeAssistantParser_InvalidHeader(t *testing.T) {
	input := `wrong_col,state,last_changed
sensor.living_room_temperature,20.5,2024-11-21T13:00:00.000Z`

	parser := NewHomeAssistantParser(model.SignalThermostatTemp)
	_, err := parser.Parse(strings.NewReader(input))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "entity_id")
}

func TestHomeAssistantParser_EmptyInput(t *testing.T) {
	parser := NewHomeAssistantParser(model.SignalThermostatTemp)
	_, err := parser.Parse(strings.NewReader(""))

	assert.Error(t, err)
}

func TestHomeAssistantParser_RFC3339Nano(t *testing.T) {
	input := `entity_id,state,last_changed
sensor.living_room_temperature,21,2026-02-11T18:49:18.424Z`

	parser := NewHomeAssistantParser(model.SignalThermostatTemp)
	readings, err := parser.Parse(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, 2026, readings[0].Timestamp.Year())
}

func TestHoldLast(t *testing.T) {
	base := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)
	readings := []model.Reading{
		{Timestamp: base.Add(10 * time.Minute), Signal: model.SignalSchedule, Text: "Away"},
		{Timestamp: base, Signal: model.SignalSchedule, Text: "Home"},
	}

	held := HoldLast(readings, base.Add(20*time.Minute), 5*time.Minute)

	require.Len(t, held, 4)
	assert.Equal(t, "Home", held[0].Text)
	assert.Equal(t, base.Add(5*time.Minute), held[1].Timestamp)
	assert.Equal(t, "Home", held[1].Text)
	assert.Equal(t, "Away", held[2].Text)
	assert.Equal(t, base.Add(15*time.Minute), held[3].Timestamp)
	assert.Equal(t, "Away", held[3].Text)
	// input is left untouched
	assert.Equal(t, "Away", readings[0].Text)
}

func TestHoldLast_Empty(t *testing.T) {
	assert.Nil(t, HoldLast(nil, time.Now(), time.Minute))
}

func TestHoldLast_ChangeAfterEnd(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	readings := []model.Reading{
		{Timestamp: base, Signal: model.SignalHeatSetpoint, Value: 20},
		{Timestamp: base.Add(time.Hour), Signal: model.SignalHeatSetpoint, Value: 21},
	}

	held := HoldLast(readings, base.Add(10*time.Minute), 5*time.Minute)

	require.Len(t, held, 2)
	assert.InDelta(t, 20.0, held[1].Value, 1e-9)
}
