package simulator

import (
	"context"
	"time"

	"thermostat_cosim/internal/frame"
	"thermostat_cosim/internal/model"
)

// Clock is the simulation time of one step. T and Step are integer seconds
// from the start of the simulation year.
type Clock struct {
	Index int
	T     int64
	Step  int64
	Time  time.Time
}

// InitSpec is handed to every model once before the first step.
type InitSpec struct {
	StartTime time.Time
	TStart    int64
	TEnd      int64
	TStep     int64
	// Signals lists every signal exchanged during the run.
	Signals []model.Signal
	// Categories lists the known labels of categorical signals.
	Categories map[model.Signal][]string
}

// Model is the lifecycle shared by every pluggable model. Input and output
// states are declared at construction and only used for the wiring check.
type Model interface {
	Name() string
	InputStates() []model.Signal
	OutputStates() []model.Signal
	Initialize(spec InitSpec) error
	// TearDown releases the model's resources. Calling it twice is a no-op.
	TearDown() error
}

// StateEstimator turns raw sensor readings into estimated indoor state.
type StateEstimator interface {
	Model
	DoStep(clock Clock, sensors frame.Row) (model.Values, error)
}

// Controller decides HVAC actuation from the estimated state and the
// effective thermostat settings.
type Controller interface {
	Model
	ChangeSettings(settings model.SettingsRecord)
	DoStep(clock Clock, thermostat frame.Row, estimate model.Values, weather, forecast frame.Row) (model.Values, error)
}

// BuildingModel advances the building physics by one step. It may block on
// an external runtime and must honour ctx.
type BuildingModel interface {
	Model
	DoStep(ctx context.Context, clock Clock, control model.Values, sensors, weather frame.Row) (model.Values, error)
}

// SettingsSource owns the effective settings record during a run.
type SettingsSource interface {
	Advance(now time.Time) bool
	Settings() model.SettingsRecord
}

// Destination persists the output of a completed run.
type Destination interface {
	Write(ctx context.Context, out *Output) error
}
