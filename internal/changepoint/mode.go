package changepoint

import (
	"thermostat_cosim/internal/frame"
	"thermostat_cosim/internal/model"
)

// ExtractModes returns a change point wherever the observed hvac mode
// changes. Null samples are skipped.
func ExtractModes(f *frame.Frame) model.Series[model.HVACMode] {
	var series model.Series[model.HVACMode]
	for i, raw := range f.Text(model.SignalHVACMode) {
		if raw == "" {
			continue
		}
		mode := model.ParseHVACMode(raw)
		if len(series) > 0 && series[len(series)-1].Value == mode {
			continue
		}
		series = append(series, model.ChangePoint[model.HVACMode]{Time: f.Time(i), Value: mode})
	}
	return series
}
