package simulator

import (
	"math"

	"thermostat_cosim/internal/model"
)

// Summary holds run totals for broadcasting and persistence.
type Summary struct {
	Steps int `json:"steps"`

	HeatingRuntimeSec float64 `json:"heating_runtime_sec"`
	CoolingRuntimeSec float64 `json:"cooling_runtime_sec"`
	HeatingCycles     int     `json:"heating_cycles"`
	CoolingCycles     int     `json:"cooling_cycles"`

	// TimeAtTempSec is keyed by indoor temperature rounded down to 1 °C.
	TimeAtTempSec   map[int]float64 `json:"time_at_temp_sec"`
	MeanIndoorTempC float64         `json:"mean_indoor_temp_c"`
	HVACEnergyKWh   float64         `json:"hvac_energy_kwh"`
}

// summaryRecorder accumulates Summary over the step loop.
type summaryRecorder struct {
	s Summary

	tempSum   float64
	tempCount int
	heating   bool
	cooling   bool
}

func newSummaryRecorder() *summaryRecorder {
	return &summaryRecorder{s: Summary{TimeAtTempSec: make(map[int]float64)}}
}

// record accounts one step of dtSec seconds given the step's outputs.
func (r *summaryRecorder) record(dtSec float64, out model.Values) {
	r.s.Steps++

	heating := stageOn(out, model.SignalHeatStage)
	cooling := stageOn(out, model.SignalCoolStage)
	if heating {
		r.s.HeatingRuntimeSec += dtSec
		if !r.heating {
			r.s.HeatingCycles++
		}
	}
	if cooling {
		r.s.CoolingRuntimeSec += dtSec
		if !r.cooling {
			r.s.CoolingCycles++
		}
	}
	r.heating, r.cooling = heating, cooling

	if temp, ok := indoorTemp(out); ok {
		bucket := int(math.Floor(temp))
		r.s.TimeAtTempSec[bucket] += dtSec
		r.tempSum += temp
		r.tempCount++
	}

	if power, ok := out.Get(model.SignalHVACPower); ok {
		r.s.HVACEnergyKWh += power * dtSec / 3600 / 1000
	}
}

func (r *summaryRecorder) summary() Summary {
	s := r.s
	if r.tempCount > 0 {
		s.MeanIndoorTempC = r.tempSum / float64(r.tempCount)
	}
	s.TimeAtTempSec = make(map[int]float64, len(r.s.TimeAtTempSec))
	for k, v := range r.s.TimeAtTempSec {
		s.TimeAtTempSec[k] = v
	}
	return s
}

func stageOn(out model.Values, s model.Signal) bool {
	v, ok := out.Get(s)
	return ok && v > 0
}

// indoorTemp prefers the building's zone temperature over the estimate.
func indoorTemp(out model.Values) (float64, bool) {
	if v, ok := out.Get(model.SignalZoneAirTemp); ok {
		return v, true
	}
	return out.Get(model.SignalEstimatedTemp)
}
