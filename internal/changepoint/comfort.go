package changepoint

import (
	"fmt"
	"math"
	"time"

	"thermostat_cosim/internal/frame"
	"thermostat_cosim/internal/model"
)

const setpointTolerance = 1e-6

// DataQualityError reports that no comfort preference can be recovered for
// a schedule name without guessing.
type DataQualityError struct {
	Schedule string
	Reason   string
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("comfort preference for schedule %q: %s", e.Schedule, e.Reason)
}

// ExtractComfort reconstructs, per schedule name, the setpoint revisions
// observed in clean rows of f. A row is clean when it and its neighbours
// carry no calendar event and share its schedule name, and both setpoints
// are present.
//
// Names with no clean rows fall back to the most frequent observed
// setpoints; an ambiguous fallback fails with a *DataQualityError.
func ExtractComfort(f *frame.Frame, step time.Duration) (model.ComfortTimeline, error) {
	timeline := model.NewComfortTimeline()
	names := f.Text(model.SignalSchedule)
	if names == nil {
		return timeline, nil
	}
	heat := f.Float(model.SignalHeatSetpoint)
	cool := f.Float(model.SignalCoolSetpoint)

	type lastClean struct {
		time time.Time
		pref model.ComfortPreference
	}
	prev := make(map[string]lastClean)
	var order []string
	firstSeen := make(map[string]time.Time)

	for i, name := range names {
		if name == "" {
			continue
		}
		if _, ok := firstSeen[name]; !ok {
			firstSeen[name] = f.Time(i)
			order = append(order, name)
		}
		if !clean(f, i) {
			continue
		}

		t := f.Time(i)
		pref := model.ComfortPreference{HeatingSetpoint: heat[i], CoolingSetpoint: cool[i]}
		last, seen := prev[name]
		prev[name] = lastClean{time: t, pref: pref}

		if !seen {
			timeline.Add(name, model.ChangePoint[model.ComfortPreference]{Time: t, Value: pref})
			continue
		}
		if t.Sub(last.time) == step && !samePreference(last.pref, pref) {
			timeline.Add(name, model.ChangePoint[model.ComfortPreference]{Time: t, Value: pref})
		}
	}

	for _, name := range order {
		if _, ok := timeline.Series[name]; ok {
			continue
		}
		pref, err := fallbackPreference(name, names, heat, cool)
		if err != nil {
			return model.ComfortTimeline{}, err
		}
		timeline.Add(name, model.ChangePoint[model.ComfortPreference]{Time: firstSeen[name], Value: pref})
	}
	return timeline, nil
}

func clean(f *frame.Frame, i int) bool {
	if f.IsNull(model.SignalHeatSetpoint, i) || f.IsNull(model.SignalCoolSetpoint, i) {
		return false
	}
	names := f.Text(model.SignalSchedule)
	for j := i - 1; j <= i+1; j++ {
		if j < 0 || j >= f.Len() {
			continue
		}
		if !f.IsNull(model.SignalCalendarEvent, j) || names[j] != names[i] {
			return false
		}
	}
	return true
}

func samePreference(a, b model.ComfortPreference) bool {
	return math.Abs(a.HeatingSetpoint-b.HeatingSetpoint) <= setpointTolerance &&
		math.Abs(a.CoolingSetpoint-b.CoolingSetpoint) <= setpointTolerance
}

// fallbackPreference returns the statistical mode of each setpoint over all
// rows of name.
func fallbackPreference(name string, names []string, heat, cool []float64) (model.ComfortPreference, error) {
	var heats, cools []float64
	for i, n := range names {
		if n != name {
			continue
		}
		if heat != nil && !math.IsNaN(heat[i]) {
			heats = append(heats, heat[i])
		}
		if cool != nil && !math.IsNaN(cool[i]) {
			cools = append(cools, cool[i])
		}
	}

	h, err := modeOf(heats)
	if err != nil {
		return model.ComfortPreference{}, &DataQualityError{Schedule: name, Reason: "heating setpoint " + err.Error()}
	}
	c, err := modeOf(cools)
	if err != nil {
		return model.ComfortPreference{}, &DataQualityError{Schedule: name, Reason: "cooling setpoint " + err.Error()}
	}
	return model.ComfortPreference{HeatingSetpoint: h, CoolingSetpoint: c}, nil
}

func modeOf(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("has no observations")
	}
	counts := make(map[int64]int)
	repr := make(map[int64]float64)
	for _, v := range values {
		k := int64(math.Round(v / setpointTolerance))
		if _, ok := repr[k]; !ok {
			repr[k] = v
		}
		counts[k]++
	}

	var best int64
	bestCount, ties := 0, 0
	for k, n := range counts {
		switch {
		case n > bestCount:
			best, bestCount, ties = k, n, 1
		case n == bestCount:
			ties++
		}
	}
	if ties > 1 {
		return 0, fmt.Errorf("has no single most frequent value")
	}
	return repr[best], nil
}
