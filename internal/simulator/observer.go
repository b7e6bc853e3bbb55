package simulator

import (
	"time"

	"thermostat_cosim/internal/model"
)

// Phase is the lifecycle state of a Driver.
type Phase string

const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseInitialized   Phase = "initialized"
	PhaseRunning       Phase = "running"
	PhaseTornDown      Phase = "torn_down"
)

// State represents the current run state.
type State struct {
	RunID string    `json:"run_id"`
	Phase Phase     `json:"phase"`
	Time  time.Time `json:"time"`
	Step  int       `json:"step"`
	Steps int       `json:"steps"`
}

// StepResult is emitted after every completed step.
type StepResult struct {
	Step      int            `json:"step"`
	Timestamp string         `json:"timestamp"`
	Schedule  string         `json:"schedule"`
	Mode      model.HVACMode `json:"hvac_mode"`
	Outputs   model.Values   `json:"outputs"`
}

// SettingsChange is emitted when the effective settings change.
type SettingsChange struct {
	Timestamp string               `json:"timestamp"`
	Settings  model.SettingsRecord `json:"settings"`
}

// Observer receives run events. Calls happen on the run goroutine.
type Observer interface {
	OnState(state State)
	OnStep(step StepResult)
	OnSettingsChange(change SettingsChange)
	OnSummary(summary Summary)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) OnState(State)                   {}
func (NopObserver) OnStep(StepResult)               {}
func (NopObserver) OnSettingsChange(SettingsChange) {}
func (NopObserver) OnSummary(Summary)               {}
