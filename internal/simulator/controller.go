package simulator

import (
	"thermostat_cosim/internal/frame"
	"thermostat_cosim/internal/model"
)

// DeadbandController is a hysteresis thermostat. Heating turns on once the
// estimate falls Deadband below the heating setpoint and off once it rises
// Deadband above it; cooling mirrors that around the cooling setpoint.
//
// While the thermostat channel reports a calendar event the observed
// setpoints of that step are followed instead of the schedule's.
type DeadbandController struct {
	Deadband float64

	settings    model.SettingsRecord
	hasSettings bool

	heatSetpoint, coolSetpoint float64
	heating, cooling           bool
}

func NewDeadbandController(deadband float64) *DeadbandController {
	if deadband < 0 {
		deadband = 0
	}
	return &DeadbandController{Deadband: deadband}
}

func (c *DeadbandController) Name() string { return "deadband_controller" }

func (c *DeadbandController) InputStates() []model.Signal {
	return []model.Signal{model.SignalEstimatedTemp}
}

func (c *DeadbandController) OutputStates() []model.Signal {
	return []model.Signal{
		model.SignalControlTemp,
		model.SignalHeatSetpointCtrl,
		model.SignalCoolSetpointCtrl,
		model.SignalHeatStage,
		model.SignalCoolStage,
	}
}

func (c *DeadbandController) Initialize(InitSpec) error {
	c.heating, c.cooling = false, false
	return nil
}

func (c *DeadbandController) ChangeSettings(s model.SettingsRecord) {
	c.settings = s
	c.hasSettings = true
}

func (c *DeadbandController) DoStep(clock Clock, thermostat frame.Row, estimate model.Values, _, _ frame.Row) (model.Values, error) {
	c.updateSetpoints(clock, thermostat)

	temp, ok := estimate.Get(model.SignalEstimatedTemp)
	out := model.Values{
		model.SignalHeatSetpointCtrl: c.heatSetpoint,
		model.SignalCoolSetpointCtrl: c.coolSetpoint,
	}
	if !ok {
		c.heating, c.cooling = false, false
		out[model.SignalHeatStage] = 0
		out[model.SignalCoolStage] = 0
		return out, nil
	}
	out[model.SignalControlTemp] = temp

	mode := c.settings.Mode
	canHeat := mode == model.ModeHeat || mode == model.ModeAuto
	canCool := mode == model.ModeCool || mode == model.ModeAuto

	switch {
	case !canHeat:
		c.heating = false
	case c.heating && temp >= c.heatSetpoint+c.Deadband:
		c.heating = false
	case !c.heating && temp <= c.heatSetpoint-c.Deadband:
		c.heating = true
	}
	switch {
	case !canCool:
		c.cooling = false
	case c.cooling && temp <= c.coolSetpoint-c.Deadband:
		c.cooling = false
	case !c.cooling && temp >= c.coolSetpoint+c.Deadband:
		c.cooling = true
	}
	if c.heating && c.cooling {
		c.cooling = false
	}

	out[model.SignalHeatStage] = boolToStage(c.heating)
	out[model.SignalCoolStage] = boolToStage(c.cooling)
	return out, nil
}

// updateSetpoints applies a hold from the thermostat channel, or else the
// preference of the schedule in effect. Unknown schedules keep the last
// setpoints.
func (c *DeadbandController) updateSetpoints(clock Clock, thermostat frame.Row) {
	if _, hold := thermostat.Text(model.SignalCalendarEvent); hold {
		heat, okH := thermostat.Float(model.SignalHeatSetpoint)
		cool, okC := thermostat.Float(model.SignalCoolSetpoint)
		if okH && okC {
			c.heatSetpoint, c.coolSetpoint = heat, cool
			return
		}
	}
	if !c.hasSettings {
		return
	}
	if _, pref, ok := c.settings.Effective(clock.Time); ok {
		c.heatSetpoint, c.coolSetpoint = pref.HeatingSetpoint, pref.CoolingSetpoint
	}
}

func (c *DeadbandController) TearDown() error { return nil }

func boolToStage(on bool) float64 {
	if on {
		return 1
	}
	return 0
}
