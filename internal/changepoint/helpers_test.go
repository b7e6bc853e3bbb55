package changepoint

import (
	"time"

	"thermostat_cosim/internal/frame"
	"thermostat_cosim/internal/model"
)

const step = 5 * time.Minute

// monday is a Monday midnight.
var monday = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// workweek returns the schedule of a typical household with a different
// weekend program. awayAt is the minute of day weekdays switch to Away.
func workweek(awayAt int) func(time.Time) string {
	return func(t time.Time) string {
		m := model.MinuteOfDay(t)
		if model.Weekday(t) >= 5 {
			switch {
			case m < 8*60:
				return "Sleep"
			case m < 22*60:
				return "Home"
			default:
				return "Sleep"
			}
		}
		switch {
		case m < 6*60:
			return "Sleep"
		case m < awayAt:
			return "Home"
		case m < 17*60:
			return "Away"
		case m < 22*60:
			return "Home"
		default:
			return "Sleep"
		}
	}
}

// thermostatFrame builds a frame from start with n rows of schedule and
// constant comfort setpoints per name.
func thermostatFrame(start time.Time, n int, schedule func(time.Time) string) *frame.Frame {
	f := frame.New(frame.Grid(start, start.Add(time.Duration(n)*step), step))
	names := f.AllocText(model.SignalSchedule)
	f.AllocText(model.SignalCalendarEvent)
	modes := f.AllocText(model.SignalHVACMode)
	heat := f.AllocFloat(model.SignalHeatSetpoint)
	cool := f.AllocFloat(model.SignalCoolSetpoint)

	for i, t := range f.Times() {
		names[i] = schedule(t)
		modes[i] = "heat"
		switch names[i] {
		case "Away":
			heat[i], cool[i] = 16.0, 28.0
		case "Sleep":
			heat[i], cool[i] = 17.5, 26.0
		default:
			heat[i], cool[i] = 18.9, 25.6
		}
	}
	return f
}

func rowsPerWeek() int {
	return int((7 * 24 * time.Hour) / step)
}

func indexOf(f *frame.Frame, t time.Time) int {
	i, ok := f.Index(t)
	if !ok {
		panic("no row at " + t.String())
	}
	return i
}
