package ws

import (
	"encoding/json"
	"sort"
	"time"

	"thermostat_cosim/internal/model"
	"thermostat_cosim/internal/simulator"
)

// Envelope wraps all WebSocket messages with a type discriminator.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Server -> Client messages

type RunStatePayload struct {
	RunID string `json:"run_id"`
	Phase string `json:"phase"`
	Time  string `json:"time"`
	Step  int    `json:"step"`
	Steps int    `json:"steps"`
}

type StepPayload struct {
	Step      int                `json:"step"`
	Timestamp string             `json:"timestamp"`
	Schedule  string             `json:"schedule"`
	HVACMode  string             `json:"hvac_mode"`
	Outputs   map[string]float64 `json:"outputs"`
}

type ComfortPayload struct {
	Schedule        string  `json:"schedule"`
	HeatingSetpoint float64 `json:"heating_setpoint"`
	CoolingSetpoint float64 `json:"cooling_setpoint"`
}

type SettingsChangePayload struct {
	Timestamp string           `json:"timestamp"`
	HVACMode  string           `json:"hvac_mode"`
	Program   []model.Period   `json:"program"`
	Comfort   []ComfortPayload `json:"comfort"`
}

type SummaryPayload struct {
	Steps             int             `json:"steps"`
	HeatingRuntimeSec float64         `json:"heating_runtime_sec"`
	CoolingRuntimeSec float64         `json:"cooling_runtime_sec"`
	HeatingCycles     int             `json:"heating_cycles"`
	CoolingCycles     int             `json:"cooling_cycles"`
	TimeAtTempSec     map[int]float64 `json:"time_at_temp_sec"`
	MeanIndoorTempC   float64         `json:"mean_indoor_temp_c"`
	HVACEnergyKWh     float64         `json:"hvac_energy_kwh"`
}

type SignalInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Unit    string `json:"unit"`
	Channel string `json:"channel"`
}

type TimeRangeInfo struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type DataLoadedPayload struct {
	Signals   []SignalInfo  `json:"signals"`
	TimeRange TimeRangeInfo `json:"time_range"`
}

type RunErrorPayload struct {
	Error string `json:"error"`
}

// Message type constants
const (
	// Client -> Server
	TypeRunStart  = "run:start"
	TypeRunCancel = "run:cancel"

	// Server -> Client
	TypeRunState       = "run:state"
	TypeRunStep        = "run:step"
	TypeRunError       = "run:error"
	TypeSettingsChange = "settings:change"
	TypeSummaryUpdate  = "summary:update"
	TypeDataLoaded     = "data:loaded"
)

func NewEnvelope(msgType string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}

func RunStateFromDriver(s simulator.State) RunStatePayload {
	p := RunStatePayload{
		RunID: s.RunID,
		Phase: string(s.Phase),
		Step:  s.Step,
		Steps: s.Steps,
	}
	if !s.Time.IsZero() {
		p.Time = s.Time.UTC().Format(time.RFC3339)
	}
	return p
}

func StepFromDriver(r simulator.StepResult) StepPayload {
	outputs := make(map[string]float64, len(r.Outputs))
	for sig, v := range r.Outputs {
		outputs[string(sig)] = v
	}
	return StepPayload{
		Step:      r.Step,
		Timestamp: r.Timestamp,
		Schedule:  r.Schedule,
		HVACMode:  string(r.Mode),
		Outputs:   outputs,
	}
}

// SettingsChangeFromDriver flattens the comfort map into a list sorted by
// schedule name.
func SettingsChangeFromDriver(c simulator.SettingsChange) SettingsChangePayload {
	names := make([]string, 0, len(c.Settings.Comfort))
	for name := range c.Settings.Comfort {
		names = append(names, name)
	}
	sort.Strings(names)

	comfort := make([]ComfortPayload, len(names))
	for i, name := range names {
		cp := c.Settings.Comfort[name]
		comfort[i] = ComfortPayload{
			Schedule:        name,
			HeatingSetpoint: cp.HeatingSetpoint,
			CoolingSetpoint: cp.CoolingSetpoint,
		}
	}
	return SettingsChangePayload{
		Timestamp: c.Timestamp,
		HVACMode:  string(c.Settings.Mode),
		Program:   c.Settings.Program,
		Comfort:   comfort,
	}
}

func SummaryFromDriver(s simulator.Summary) SummaryPayload {
	return SummaryPayload{
		Steps:             s.Steps,
		HeatingRuntimeSec: s.HeatingRuntimeSec,
		CoolingRuntimeSec: s.CoolingRuntimeSec,
		HeatingCycles:     s.HeatingCycles,
		CoolingCycles:     s.CoolingCycles,
		TimeAtTempSec:     s.TimeAtTempSec,
		MeanIndoorTempC:   s.MeanIndoorTempC,
		HVACEnergyKWh:     s.HVACEnergyKWh,
	}
}
