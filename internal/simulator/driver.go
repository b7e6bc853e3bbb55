// Package simulator runs fixed-step co-simulations of a thermostat
// controller against a building model.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"thermostat_cosim/internal/changepoint"
	"thermostat_cosim/internal/frame"
	"thermostat_cosim/internal/gaps"
	"thermostat_cosim/internal/model"
	"thermostat_cosim/internal/settings"
)

// Config is the immutable run configuration.
type Config struct {
	Start       time.Time
	End         time.Time
	Step        time.Duration
	OutputStep  time.Duration // zero keeps the step cadence
	StepTimeout time.Duration // zero disables the building step timeout
	Identifier  string
	Latitude    float64
	Longitude   float64
}

// Steps returns the number of steps in [Start, End).
func (c Config) Steps() int {
	return len(frame.Grid(c.Start, c.End, c.Step))
}

func (c Config) validate() error {
	if c.Step < time.Second || c.Step%time.Second != 0 {
		return fmt.Errorf("step must be a positive whole number of seconds, got %s", c.Step)
	}
	if !c.End.After(c.Start) {
		return fmt.Errorf("end %s is not after start %s", c.End.Format(time.RFC3339), c.Start.Format(time.RFC3339))
	}
	if c.OutputStep < 0 || c.StepTimeout < 0 {
		return errors.New("output step and step timeout must not be negative")
	}
	return nil
}

// Channel is one historical input channel aligned to the step grid.
// NullCheck lists the columns that must be present for a row to count
// towards a full data period.
type Channel struct {
	Frame     *frame.Frame
	NullCheck []model.Signal
}

func (c Channel) signals() []model.Signal {
	if c.Frame == nil {
		return nil
	}
	return c.Frame.Signals()
}

// Inputs holds the per-step data channels of a run. Forecast is optional.
type Inputs struct {
	Thermostat Channel
	Sensors    Channel
	Weather    Channel
	Forecast   Channel
}

// Output is the masked, resampled result of a completed run.
type Output struct {
	RunID   string
	Config  Config
	Frame   *frame.Frame
	Signals []model.Signal
	Periods []model.FullDataPeriod
	Summary Summary
	// Timeline is empty when settings were supplied with WithSettings.
	Timeline changepoint.Timeline
}

// Option configures a Driver.
type Option func(*Driver)

// WithSettings replaces the settings extracted from the thermostat channel.
func WithSettings(s SettingsSource) Option {
	return func(d *Driver) { d.settings = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(d *Driver) {
		if o != nil {
			d.observer = o
		}
	}
}

func WithResampler(r frame.Resampler) Option {
	return func(d *Driver) {
		if r != nil {
			d.resampler = r
		}
	}
}

// WithDestination persists the output of a successful run.
func WithDestination(dst Destination) Option {
	return func(d *Driver) { d.destination = dst }
}

// Driver orchestrates one co-simulation run: it validates model wiring,
// drives the three models in lock-step over the configured window and
// tears them down on every exit path. A Driver is not safe for concurrent
// use.
type Driver struct {
	cfg        Config
	in         Inputs
	estimator  StateEstimator
	controller Controller
	building   BuildingModel

	estOutputs  []model.Signal
	ctrlOutputs []model.Signal
	bldOutputs  []model.Signal

	settings    SettingsSource
	timeline    changepoint.Timeline
	current     model.SettingsRecord
	periods     []model.FullDataPeriod
	resampler   frame.Resampler
	destination Destination
	observer    Observer
	logger      *slog.Logger

	runID         string
	phase         Phase
	initAttempted bool
	epoch         time.Time
	stepsDone     int

	out      *frame.Frame
	columns  map[model.Signal][]float64
	schedule []string
	mode     []string
	heatStp  []float64
	coolStp  []float64
}

// NewDriver validates cfg and the static wiring of the three models. No
// model lifecycle method is called when validation fails.
func NewDriver(cfg Config, in Inputs, est StateEstimator, ctrl Controller, bld BuildingModel, opts ...Option) (*Driver, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if est == nil || ctrl == nil || bld == nil {
		return nil, errors.New("estimator, controller and building model are required")
	}
	if err := checkWiring(in, est, ctrl, bld); err != nil {
		return nil, err
	}

	d := &Driver{
		cfg:         cfg,
		in:          in,
		estimator:   est,
		controller:  ctrl,
		building:    bld,
		estOutputs:  est.OutputStates(),
		ctrlOutputs: ctrl.OutputStates(),
		bldOutputs:  bld.OutputStates(),
		resampler:   frame.MeanResampler{},
		observer:    NopObserver{},
		logger:      slog.Default(),
		runID:       uuid.NewString(),
		phase:       PhaseUninitialized,
		epoch:       time.Date(cfg.Start.Year(), time.January, 1, 0, 0, 0, 0, cfg.Start.Location()),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("run_id", d.runID)
	return d, nil
}

// checkWiring verifies that every model's inputs are provided by an input
// channel or by a model earlier in the step order.
func checkWiring(in Inputs, est StateEstimator, ctrl Controller, bld BuildingModel) error {
	available := make(map[model.Signal]bool)
	for _, ch := range []Channel{in.Thermostat, in.Sensors, in.Weather, in.Forecast} {
		for _, s := range ch.signals() {
			available[s] = true
		}
	}

	var missing []string
	for _, m := range []Model{est, ctrl, bld} {
		for _, s := range m.InputStates() {
			if !available[s] {
				missing = append(missing, fmt.Sprintf("%s: %s", m.Name(), s))
			}
		}
		for _, s := range m.OutputStates() {
			available[s] = true
		}
	}
	if len(missing) > 0 {
		return &WiringError{Missing: missing}
	}
	return nil
}

// RunID returns the identifier of this run.
func (d *Driver) RunID() string {
	return d.runID
}

// Phase returns the lifecycle phase.
func (d *Driver) Phase() Phase {
	return d.phase
}

// Initialize detects full data periods, extracts and initializes the
// settings timeline, initializes every model and allocates the output
// buffers.
func (d *Driver) Initialize() error {
	switch d.phase {
	case PhaseUninitialized:
	case PhaseTornDown:
		return ErrTornDown
	default:
		return fmt.Errorf("driver is already %s", d.phase)
	}

	d.periods = d.fullDataPeriods()
	d.logger.Info("full data periods detected", "periods", len(d.periods), "covered", gaps.Covered(d.periods))

	if d.settings == nil {
		timeline, err := changepoint.Extract(d.in.Thermostat.Frame, d.cfg.Step)
		if err != nil {
			return err
		}
		d.logger.Info("settings extracted",
			"schedules", len(timeline.Schedules),
			"comfort_names", timeline.Comfort.Len(),
			"comfort_points", timeline.ComfortPoints(),
			"modes", len(timeline.Modes))

		resolver, err := settings.NewResolver(timeline.Schedules, timeline.Comfort, timeline.Modes)
		if err != nil {
			return fmt.Errorf("initializing settings: %w", err)
		}
		d.timeline = timeline
		d.settings = resolver
	}
	d.current = d.settings.Settings()

	spec := d.initSpec()
	d.initAttempted = true
	for _, m := range d.models() {
		if err := m.Initialize(spec); err != nil {
			return fmt.Errorf("initializing %s: %w", m.Name(), err)
		}
	}
	d.controller.ChangeSettings(d.current)

	d.allocate()
	d.phase = PhaseInitialized
	d.observer.OnState(d.state())
	d.logger.Info("driver initialized", "steps", d.out.Len(), "step", d.cfg.Step)
	return nil
}

func (d *Driver) models() []Model {
	return []Model{d.estimator, d.controller, d.building}
}

// fullDataPeriods intersects the periods of every provided channel. The
// forecast channel does not restrict the output.
func (d *Driver) fullDataPeriods() []model.FullDataPeriod {
	var lists [][]model.FullDataPeriod
	for _, ch := range []Channel{d.in.Thermostat, d.in.Sensors, d.in.Weather} {
		if ch.Frame == nil {
			continue
		}
		lists = append(lists, gaps.FullDataPeriods(ch.Frame, ch.NullCheck, d.cfg.Step))
	}
	if len(lists) == 0 {
		return []model.FullDataPeriod{{Start: d.cfg.Start, End: d.cfg.End}}
	}
	return gaps.Intersect(lists...)
}

func (d *Driver) initSpec() InitSpec {
	seen := make(map[model.Signal]bool)
	var signals []model.Signal
	add := func(list []model.Signal) {
		for _, s := range list {
			if !seen[s] {
				seen[s] = true
				signals = append(signals, s)
			}
		}
	}
	for _, ch := range []Channel{d.in.Thermostat, d.in.Sensors, d.in.Weather, d.in.Forecast} {
		add(ch.signals())
	}
	add(d.estOutputs)
	add(d.ctrlOutputs)
	add(d.bldOutputs)

	return InitSpec{
		StartTime: d.epoch,
		TStart:    d.seconds(d.cfg.Start),
		TEnd:      d.seconds(d.cfg.End),
		TStep:     int64(d.cfg.Step / time.Second),
		Signals:   signals,
		Categories: map[model.Signal][]string{
			model.SignalSchedule: scheduleNames(d.current),
			model.SignalHVACMode: {string(model.ModeHeat), string(model.ModeCool), string(model.ModeAuto), string(model.ModeOff)},
		},
	}
}

func scheduleNames(r model.SettingsRecord) []string {
	seen := make(map[string]bool)
	for _, p := range r.Program {
		seen[p.Name] = true
	}
	for name := range r.Comfort {
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// seconds returns t as seconds from the start of the simulation year.
func (d *Driver) seconds(t time.Time) int64 {
	return int64(t.Sub(d.epoch) / time.Second)
}

// allocate preallocates every output column for the full step count.
func (d *Driver) allocate() {
	d.out = frame.New(frame.Grid(d.cfg.Start, d.cfg.End, d.cfg.Step))
	d.columns = make(map[model.Signal][]float64)
	for _, list := range [][]model.Signal{d.estOutputs, d.ctrlOutputs, d.bldOutputs} {
		for _, s := range list {
			if _, ok := d.columns[s]; !ok {
				d.columns[s] = d.out.AllocFloat(s)
			}
		}
	}
	d.schedule = d.allocText(model.SignalSchedule)
	d.mode = d.allocText(model.SignalHVACMode)
	d.heatStp = d.allocFloat(model.SignalHeatSetpoint)
	d.coolStp = d.allocFloat(model.SignalCoolSetpoint)
}

func (d *Driver) allocText(s model.Signal) []string {
	if d.out.Has(s) {
		return nil
	}
	return d.out.AllocText(s)
}

func (d *Driver) allocFloat(s model.Signal) []float64 {
	if d.out.Has(s) {
		return nil
	}
	return d.out.AllocFloat(s)
}

// Run executes the step loop, post-processes the output and hands it to
// the destination. The models are torn down on every exit path, and no
// output is persisted when a step fails.
func (d *Driver) Run(ctx context.Context) (out *Output, err error) {
	switch d.phase {
	case PhaseInitialized:
	case PhaseUninitialized:
		return nil, ErrNotInitialized
	case PhaseTornDown:
		return nil, ErrTornDown
	default:
		return nil, fmt.Errorf("driver is already %s", d.phase)
	}
	defer func() {
		if tdErr := d.TearDown(); tdErr != nil {
			err = errors.Join(err, tdErr)
		}
	}()

	d.phase = PhaseRunning
	d.observer.OnState(d.state())
	started := time.Now()

	rec, err := d.loop(ctx)
	if err != nil {
		d.logger.Error("run aborted", "error", err)
		return nil, err
	}

	shiftLeft(d.columns[model.SignalControlTemp])

	result := d.out
	if d.cfg.OutputStep > 0 && d.cfg.OutputStep != d.cfg.Step {
		result, err = d.resampler.Resample(result, d.cfg.OutputStep)
		if err != nil {
			return nil, fmt.Errorf("resampling output: %w", err)
		}
	}
	result = result.Mask(d.periods)

	summary := rec.summary()
	d.observer.OnSummary(summary)

	out = &Output{
		RunID:    d.runID,
		Config:   d.cfg,
		Frame:    result,
		Signals:  result.Signals(),
		Periods:  d.periods,
		Summary:  summary,
		Timeline: d.timeline,
	}
	if d.destination != nil {
		if err := d.destination.Write(ctx, out); err != nil {
			return nil, fmt.Errorf("persisting output: %w", err)
		}
	}

	d.logger.Info("run complete",
		"steps", d.out.Len(),
		"rows", result.Len(),
		"elapsed", time.Since(started).Round(time.Millisecond))
	return out, nil
}

func (d *Driver) loop(ctx context.Context) (*summaryRecorder, error) {
	rec := newSummaryRecorder()
	stepSec := int64(d.cfg.Step / time.Second)
	var prevBuilding model.Values

	for i := 0; i < d.out.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run cancelled at step %d: %w", i, err)
		}
		now := d.out.Time(i)
		clock := Clock{Index: i, T: d.seconds(now), Step: stepSec, Time: now}

		sensors := d.in.Sensors.Frame.RowAt(now)
		if prevBuilding != nil {
			sensors = sensors.Overlay(d.sensorFeedback(prevBuilding))
		}
		weather := d.in.Weather.Frame.RowAt(now)

		estOut, err := d.estimator.DoStep(clock, sensors)
		if err != nil {
			return nil, &StepError{Model: d.estimator.Name(), Step: i, Err: err}
		}

		if d.settings.Advance(now) {
			d.current = d.settings.Settings()
			d.controller.ChangeSettings(d.current)
			d.observer.OnSettingsChange(SettingsChange{Timestamp: now.Format(time.RFC3339), Settings: d.current})
			d.logger.Debug("settings changed", "time", now, "mode", d.current.Mode)
		}

		ctrlOut, err := d.controller.DoStep(clock, d.in.Thermostat.Frame.RowAt(now), estOut, weather, d.in.Forecast.Frame.RowAt(now))
		if err != nil {
			return nil, &StepError{Model: d.controller.Name(), Step: i, Err: err}
		}

		bldOut, err := d.stepBuilding(ctx, clock, ctrlOut, sensors, weather)
		if err != nil {
			return nil, &StepError{Model: d.building.Name(), Step: i, Err: err}
		}
		prevBuilding = bldOut

		d.record(i, d.estOutputs, estOut)
		d.record(i, d.ctrlOutputs, ctrlOut)
		d.record(i, d.bldOutputs, bldOut)
		name := d.recordSettings(i, now)

		merged := make(model.Values, len(estOut)+len(ctrlOut)+len(bldOut))
		for _, vals := range []model.Values{estOut, ctrlOut, bldOut} {
			for s, v := range vals {
				merged[s] = v
			}
		}
		rec.record(float64(stepSec), merged)
		d.stepsDone = i + 1
		d.observer.OnStep(StepResult{
			Step:      i,
			Timestamp: now.Format(time.RFC3339),
			Schedule:  name,
			Mode:      d.current.Mode,
			Outputs:   merged,
		})
	}
	return rec, nil
}

// sensorFeedback keeps the declared building outputs that the sensors
// channel also observes.
func (d *Driver) sensorFeedback(building model.Values) model.Values {
	out := make(model.Values, len(d.bldOutputs))
	for _, s := range d.bldOutputs {
		if v, ok := building.Get(s); ok && d.in.Sensors.Frame.Has(s) {
			out[s] = v
		}
	}
	return out
}

// stepBuilding calls the building model, bounded by StepTimeout when set.
func (d *Driver) stepBuilding(ctx context.Context, clock Clock, control model.Values, sensors, weather frame.Row) (model.Values, error) {
	if d.cfg.StepTimeout <= 0 {
		return d.building.DoStep(ctx, clock, control, sensors, weather)
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.StepTimeout)
	defer cancel()

	type result struct {
		out model.Values
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := d.building.DoStep(ctx, clock, control, sensors, weather)
		done <- result{out, err}
	}()

	select {
	case r := <-done:
		return r.out, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *Driver) record(i int, declared []model.Signal, values model.Values) {
	for _, s := range declared {
		if v, ok := values.Get(s); ok {
			d.columns[s][i] = v
		}
	}
}

func (d *Driver) recordSettings(i int, now time.Time) string {
	name, pref, ok := d.current.Effective(now)
	if d.schedule != nil {
		d.schedule[i] = name
	}
	if d.mode != nil {
		d.mode[i] = string(d.current.Mode)
	}
	if ok && d.heatStp != nil && d.coolStp != nil {
		d.heatStp[i] = pref.HeatingSetpoint
		d.coolStp[i] = pref.CoolingSetpoint
	}
	return name
}

// shiftLeft moves the column back one step and repeats the final value.
// The control temperature is recorded one step ahead of the actuation it
// drove.
func shiftLeft(col []float64) {
	if len(col) < 2 {
		return
	}
	copy(col, col[1:])
	col[len(col)-1] = col[len(col)-2]
}

// TearDown tears down every model once. Later calls are no-ops.
func (d *Driver) TearDown() error {
	if d.phase == PhaseTornDown {
		return nil
	}
	var errs []error
	if d.initAttempted {
		models := d.models()
		for i := len(models) - 1; i >= 0; i-- {
			if err := models[i].TearDown(); err != nil {
				errs = append(errs, fmt.Errorf("tearing down %s: %w", models[i].Name(), err))
			}
		}
	}
	d.phase = PhaseTornDown
	d.observer.OnState(d.state())
	d.logger.Debug("driver torn down")
	return errors.Join(errs...)
}

func (d *Driver) state() State {
	s := State{RunID: d.runID, Phase: d.phase, Step: d.stepsDone, Time: d.cfg.Start.Add(time.Duration(d.stepsDone) * d.cfg.Step)}
	if d.out != nil {
		s.Steps = d.out.Len()
	}
	return s
}
