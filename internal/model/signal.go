package model

import "time"

// Signal is the stable identifier of one column of channel or model data.
type Signal string

const (
	// Thermostat channel
	SignalSchedule      Signal = "schedule"
	SignalCalendarEvent Signal = "calendar_event"
	SignalHVACMode      Signal = "hvac_mode"
	SignalHeatSetpoint  Signal = "temperature_stp_heat"
	SignalCoolSetpoint  Signal = "temperature_stp_cool"

	// Sensors channel
	SignalThermostatTemp     Signal = "thermostat_temperature"
	SignalThermostatHumidity Signal = "thermostat_humidity"
	SignalThermostatMotion   Signal = "thermostat_motion"

	// Weather channel
	SignalOutdoorTemp     Signal = "outdoor_temperature"
	SignalOutdoorHumidity Signal = "outdoor_relative_humidity"
	SignalSolarRadiation  Signal = "direct_normal_radiation"

	// Model outputs
	SignalEstimatedTemp     Signal = "thermostat_temperature_estimate"
	SignalEstimatedHumidity Signal = "thermostat_humidity_estimate"
	SignalControlTemp       Signal = "temperature_ctrl"
	SignalHeatSetpointCtrl  Signal = "temperature_stp_heat_ctrl"
	SignalCoolSetpointCtrl  Signal = "temperature_stp_cool_ctrl"
	SignalHeatStage         Signal = "heat_stage"
	SignalCoolStage         Signal = "cool_stage"
	SignalZoneAirTemp       Signal = "zone_air_temperature"
	SignalHVACPower         Signal = "hvac_power"
)

// Kind tells whether a signal holds numbers or category labels.
type Kind int

const (
	Numeric Kind = iota
	Categorical
)

// Channel names the source a signal belongs to.
type Channel string

const (
	ChannelThermostat Channel = "thermostat"
	ChannelSensors    Channel = "sensors"
	ChannelWeather    Channel = "weather"
	ChannelForecast   Channel = "weather_forecast"
	ChannelOutput     Channel = "output"
)

// SignalInfo holds display name, unit and kind for a signal.
type SignalInfo struct {
	Name    string
	Unit    string
	Kind    Kind
	Channel Channel
}

// SignalCatalog maps every known Signal to its metadata.
var SignalCatalog = map[Signal]SignalInfo{
	SignalSchedule:      {Name: "Schedule", Kind: Categorical, Channel: ChannelThermostat},
	SignalCalendarEvent: {Name: "Calendar Event", Kind: Categorical, Channel: ChannelThermostat},
	SignalHVACMode:      {Name: "HVAC Mode", Kind: Categorical, Channel: ChannelThermostat},
	SignalHeatSetpoint:  {Name: "Heating Setpoint", Unit: "°C", Channel: ChannelThermostat},
	SignalCoolSetpoint:  {Name: "Cooling Setpoint", Unit: "°C", Channel: ChannelThermostat},

	SignalThermostatTemp:     {Name: "Thermostat Temperature", Unit: "°C", Channel: ChannelSensors},
	SignalThermostatHumidity: {Name: "Thermostat Humidity", Unit: "%", Channel: ChannelSensors},
	SignalThermostatMotion:   {Name: "Thermostat Motion", Channel: ChannelSensors},

	SignalOutdoorTemp:     {Name: "Outdoor Temperature", Unit: "°C", Channel: ChannelWeather},
	SignalOutdoorHumidity: {Name: "Outdoor Humidity", Unit: "%", Channel: ChannelWeather},
	SignalSolarRadiation:  {Name: "Direct Normal Radiation", Unit: "W/m²", Channel: ChannelWeather},

	SignalEstimatedTemp:     {Name: "Estimated Temperature", Unit: "°C", Channel: ChannelOutput},
	SignalEstimatedHumidity: {Name: "Estimated Humidity", Unit: "%", Channel: ChannelOutput},
	SignalControlTemp:       {Name: "Control Temperature", Unit: "°C", Channel: ChannelOutput},
	SignalHeatSetpointCtrl:  {Name: "Controller Heating Setpoint", Unit: "°C", Channel: ChannelOutput},
	SignalCoolSetpointCtrl:  {Name: "Controller Cooling Setpoint", Unit: "°C", Channel: ChannelOutput},
	SignalHeatStage:         {Name: "Heating Stage", Channel: ChannelOutput},
	SignalCoolStage:         {Name: "Cooling Stage", Channel: ChannelOutput},
	SignalZoneAirTemp:       {Name: "Zone Air Temperature", Unit: "°C", Channel: ChannelOutput},
	SignalHVACPower:         {Name: "HVAC Power", Unit: "W", Channel: ChannelOutput},
}

// KindOf returns the kind of a signal. Unknown signals are numeric.
func KindOf(s Signal) Kind {
	return SignalCatalog[s].Kind
}

// Reading is one observed sample of a signal. Categorical samples carry
// their label in Text; numeric samples carry Value.
type Reading struct {
	Timestamp time.Time
	Signal    Signal
	Value     float64
	Text      string
}

// TimeRange is a closed interval of time.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies within the range, bounds included.
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.Start) && !t.After(tr.End)
}

// FullDataPeriod is a span with no sampling gap larger than the expected
// period across the null-check columns.
type FullDataPeriod = TimeRange

// Values holds numeric signal values for one step.
type Values map[Signal]float64

// Get returns the value of s when present and not NaN.
func (v Values) Get(s Signal) (float64, bool) {
	x, ok := v[s]
	if !ok || x != x {
		return 0, false
	}
	return x, true
}
