package simulator

import (
	"thermostat_cosim/internal/frame"
	"thermostat_cosim/internal/model"
)

// PassthroughEstimator reports the thermostat sensor as the estimated
// indoor state, optionally smoothed. A missing sample holds the previous
// estimate.
type PassthroughEstimator struct {
	// Alpha is the exponential smoothing weight of a new sample in (0, 1].
	// 1 passes samples through unchanged.
	Alpha float64

	temp, humidity       float64
	hasTemp, hasHumidity bool
}

func NewPassthroughEstimator(alpha float64) *PassthroughEstimator {
	if alpha <= 0 || alpha > 1 {
		alpha = 1
	}
	return &PassthroughEstimator{Alpha: alpha}
}

func (e *PassthroughEstimator) Name() string { return "passthrough_estimator" }

func (e *PassthroughEstimator) InputStates() []model.Signal {
	return []model.Signal{model.SignalThermostatTemp}
}

func (e *PassthroughEstimator) OutputStates() []model.Signal {
	return []model.Signal{model.SignalEstimatedTemp, model.SignalEstimatedHumidity}
}

func (e *PassthroughEstimator) Initialize(InitSpec) error {
	e.hasTemp, e.hasHumidity = false, false
	return nil
}

func (e *PassthroughEstimator) DoStep(_ Clock, sensors frame.Row) (model.Values, error) {
	if v, ok := sensors.Float(model.SignalThermostatTemp); ok {
		e.temp, e.hasTemp = e.smooth(e.temp, v, e.hasTemp), true
	}
	if v, ok := sensors.Float(model.SignalThermostatHumidity); ok {
		e.humidity, e.hasHumidity = e.smooth(e.humidity, v, e.hasHumidity), true
	}

	out := make(model.Values, 2)
	if e.hasTemp {
		out[model.SignalEstimatedTemp] = e.temp
	}
	if e.hasHumidity {
		out[model.SignalEstimatedHumidity] = e.humidity
	}
	return out, nil
}

func (e *PassthroughEstimator) smooth(prev, v float64, seeded bool) float64 {
	if !seeded {
		return v
	}
	return e.Alpha*v + (1-e.Alpha)*prev
}

func (e *PassthroughEstimator) TearDown() error { return nil }
