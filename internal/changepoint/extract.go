// Package changepoint reconstructs thermostat settings timelines from
// historical thermostat data.
package changepoint

import (
	"fmt"
	"time"

	"thermostat_cosim/internal/frame"
	"thermostat_cosim/internal/model"
)

// Timeline is the extracted settings history of one thermostat.
type Timeline struct {
	Schedules model.Series[model.WeeklyProgram]
	Comfort   model.ComfortTimeline
	Modes     model.Series[model.HVACMode]
}

// Extract runs the schedule, comfort and mode extractors over a thermostat
// frame sampled at step.
func Extract(f *frame.Frame, step time.Duration) (Timeline, error) {
	comfort, err := ExtractComfort(f, step)
	if err != nil {
		return Timeline{}, fmt.Errorf("extracting comfort preferences: %w", err)
	}
	return Timeline{
		Schedules: ExtractSchedules(f, step),
		Comfort:   comfort,
		Modes:     ExtractModes(f),
	}, nil
}

// ComfortPoints returns the total number of comfort change points.
func (t Timeline) ComfortPoints() int {
	n := 0
	for _, s := range t.Comfort.Series {
		n += len(s)
	}
	return n
}
