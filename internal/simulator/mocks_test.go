package simulator

import (
	"context"
	"errors"
	"sync"
	"time"

	"thermostat_cosim/internal/frame"
	"thermostat_cosim/internal/model"
)

var (
	startTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	step      = 5 * time.Minute
)

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.calls))
	copy(out, l.calls)
	return out
}

func (l *callLog) count(call string) int {
	n := 0
	for _, c := range l.all() {
		if c == call {
			n++
		}
	}
	return n
}

type mockModel struct {
	name    string
	inputs  []model.Signal
	outputs []model.Signal
	log     *callLog
	initErr error
}

func (m *mockModel) Name() string                 { return m.name }
func (m *mockModel) InputStates() []model.Signal  { return m.inputs }
func (m *mockModel) OutputStates() []model.Signal { return m.outputs }

func (m *mockModel) Initialize(InitSpec) error {
	m.log.add(m.name + ".initialize")
	return m.initErr
}

func (m *mockModel) TearDown() error {
	m.log.add(m.name + ".teardown")
	return nil
}

type mockEstimator struct {
	mockModel
	seen []float64
}

func newMockEstimator(log *callLog) *mockEstimator {
	return &mockEstimator{mockModel: mockModel{
		name:    "estimator",
		inputs:  []model.Signal{model.SignalThermostatTemp},
		outputs: []model.Signal{model.SignalEstimatedTemp},
		log:     log,
	}}
}

func (m *mockEstimator) DoStep(_ Clock, sensors frame.Row) (model.Values, error) {
	m.log.add("estimator.step")
	v, ok := sensors.Float(model.SignalThermostatTemp)
	if !ok {
		v = 20
	}
	m.seen = append(m.seen, v)
	return model.Values{model.SignalEstimatedTemp: v}, nil
}

type mockController struct {
	mockModel
	settings []model.SettingsRecord
}

func newMockController(log *callLog) *mockController {
	return &mockController{mockModel: mockModel{
		name:    "controller",
		inputs:  []model.Signal{model.SignalEstimatedTemp},
		outputs: []model.Signal{model.SignalControlTemp, model.SignalHeatStage, model.SignalCoolStage},
		log:     log,
	}}
}

func (m *mockController) ChangeSettings(s model.SettingsRecord) {
	m.log.add("controller.change_settings")
	m.settings = append(m.settings, s)
}

// DoStep reports the step index as control temperature.
func (m *mockController) DoStep(clock Clock, _ frame.Row, _ model.Values, _, _ frame.Row) (model.Values, error) {
	m.log.add("controller.step")
	return model.Values{
		model.SignalControlTemp: float64(clock.Index),
		model.SignalHeatStage:   1,
		model.SignalCoolStage:   0,
	}, nil
}

type mockBuilding struct {
	mockModel
	failAt int
	block  bool
	temp   float64
}

func newMockBuilding(log *callLog) *mockBuilding {
	return &mockBuilding{
		mockModel: mockModel{
			name:    "building",
			inputs:  []model.Signal{model.SignalHeatStage, model.SignalOutdoorTemp},
			outputs: []model.Signal{model.SignalZoneAirTemp, model.SignalThermostatTemp, model.SignalHVACPower},
			log:     log,
		},
		failAt: -1,
		temp:   21,
	}
}

func (m *mockBuilding) DoStep(ctx context.Context, clock Clock, _ model.Values, _, _ frame.Row) (model.Values, error) {
	m.log.add("building.step")
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if clock.Index == m.failAt {
		return nil, errors.New("runtime crashed")
	}
	return model.Values{
		model.SignalZoneAirTemp:    m.temp,
		model.SignalThermostatTemp: m.temp,
		model.SignalHVACPower:      1000,
	}, nil
}

type mockSettings struct {
	log       *callLog
	changesAt map[time.Time]bool
}

func (m *mockSettings) Advance(now time.Time) bool {
	m.log.add("settings.advance")
	return m.changesAt[now]
}

func (m *mockSettings) Settings() model.SettingsRecord {
	return model.SettingsRecord{
		Mode:    model.ModeHeat,
		Program: model.AllWeek("Home"),
		Comfort: map[string]model.ComfortPreference{"Home": {HeatingSetpoint: 18.9, CoolingSetpoint: 25.6}},
	}
}

type mockDestination struct {
	writes int
	last   *Output
}

func (m *mockDestination) Write(_ context.Context, out *Output) error {
	m.writes++
	m.last = out
	return nil
}

type recordingObserver struct {
	NopObserver
	states  []State
	steps   int
	changes int
	summary *Summary
}

func (o *recordingObserver) OnState(s State)                 { o.states = append(o.states, s) }
func (o *recordingObserver) OnStep(StepResult)               { o.steps++ }
func (o *recordingObserver) OnSettingsChange(SettingsChange) { o.changes++ }
func (o *recordingObserver) OnSummary(s Summary)             { o.summary = &s }

func testConfig(days int) Config {
	return Config{
		Start:      startTime,
		End:        startTime.Add(time.Duration(days) * 24 * time.Hour),
		Step:       step,
		Identifier: "test-thermostat",
	}
}

// testInputs builds gap-free channels over cfg with a constant "Home"
// schedule at 18.9/25.6 °C.
func testInputs(cfg Config) Inputs {
	times := frame.Grid(cfg.Start, cfg.End, cfg.Step)

	thermostat := frame.New(times)
	names := thermostat.AllocText(model.SignalSchedule)
	thermostat.AllocText(model.SignalCalendarEvent)
	modes := thermostat.AllocText(model.SignalHVACMode)
	heat := thermostat.AllocFloat(model.SignalHeatSetpoint)
	cool := thermostat.AllocFloat(model.SignalCoolSetpoint)

	sensors := frame.New(times)
	temp := sensors.AllocFloat(model.SignalThermostatTemp)
	hum := sensors.AllocFloat(model.SignalThermostatHumidity)

	weather := frame.New(times)
	outdoor := weather.AllocFloat(model.SignalOutdoorTemp)
	weather.AllocFloat(model.SignalSolarRadiation)

	for i := range times {
		names[i], modes[i] = "Home", "heat"
		heat[i], cool[i] = 18.9, 25.6
		temp[i], hum[i] = 20, 40
		outdoor[i] = 5
	}

	return Inputs{
		Thermostat: Channel{Frame: thermostat, NullCheck: []model.Signal{model.SignalSchedule, model.SignalHeatSetpoint, model.SignalCoolSetpoint}},
		Sensors:    Channel{Frame: sensors, NullCheck: []model.Signal{model.SignalThermostatTemp}},
		Weather:    Channel{Frame: weather, NullCheck: []model.Signal{model.SignalOutdoorTemp}},
	}
}
