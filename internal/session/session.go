package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"thermostat_cosim/internal/config"
	"thermostat_cosim/internal/destination"
	"thermostat_cosim/internal/simulator"
)

// ErrRunInProgress is returned by Start while a run is executing.
var ErrRunInProgress = errors.New("run already in progress")

// Models holds the three models of one run. Models keep state across
// steps, so every run needs fresh instances.
type Models struct {
	Estimator  simulator.StateEstimator
	Controller simulator.Controller
	Building   simulator.BuildingModel
}

// NewModels builds the models described by sc.
func NewModels(sc config.Scenario) Models {
	return Models{
		Estimator:  simulator.NewPassthroughEstimator(sc.Estimator.Alpha),
		Controller: simulator.NewDeadbandController(sc.Controller.Deadband),
		Building:   simulator.NewThermalBuilding(sc.Building),
	}
}

// OpenFunc opens the destination of one run.
type OpenFunc func() (destination.Writer, error)

// OpenFromConfig opens the destination named by cfg.
func OpenFromConfig(cfg config.OutputConfig) OpenFunc {
	return func() (destination.Writer, error) {
		return destination.Open(destination.Kind(cfg.Kind), cfg.Path, cfg.Compress)
	}
}

// Run performs one complete run: construct, initialize, step, persist and
// tear down. A nil open skips persistence.
func Run(ctx context.Context, cfg simulator.Config, in simulator.Inputs, m Models, open OpenFunc, observer simulator.Observer, logger *slog.Logger) (out *simulator.Output, err error) {
	opts := []simulator.Option{simulator.WithLogger(logger), simulator.WithObserver(observer)}
	if open != nil {
		w, oerr := open()
		if oerr != nil {
			return nil, fmt.Errorf("opening destination: %w", oerr)
		}
		defer func() {
			if cerr := w.Close(); cerr != nil {
				err = errors.Join(err, fmt.Errorf("closing destination: %w", cerr))
			}
		}()
		opts = append(opts, simulator.WithDestination(w))
	}

	d, err := simulator.NewDriver(cfg, in, m.Estimator, m.Controller, m.Building, opts...)
	if err != nil {
		return nil, err
	}
	if err := d.Initialize(); err != nil {
		return nil, errors.Join(err, d.TearDown())
	}
	return d.Run(ctx)
}

// Session runs one co-simulation at a time on behalf of interactive
// clients. It satisfies ws.Runner.
type Session struct {
	cfg      simulator.Config
	in       simulator.Inputs
	scenario config.Scenario
	open     OpenFunc
	observer ErrorObserver
	logger   *slog.Logger

	parent context.Context

	mu      sync.Mutex
	cancel  context.CancelFunc
	state   simulator.State
	last    *simulator.Output
	lastErr error
	done    chan struct{}
}

// ErrorObserver also receives the error of a failed run.
type ErrorObserver interface {
	simulator.Observer
	OnError(err error)
}

// New returns a Session. Runs are cancelled when ctx is done.
func New(ctx context.Context, cfg simulator.Config, in simulator.Inputs, sc config.Scenario, open OpenFunc, observer ErrorObserver, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	s := &Session{
		cfg:      cfg,
		in:       in,
		scenario: sc,
		open:     open,
		observer: observer,
		logger:   logger,
		parent:   ctx,
		state:    simulator.State{Phase: simulator.PhaseUninitialized, Steps: cfg.Steps()},
	}
	return s
}

// Start launches a run in the background.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrRunInProgress
	}

	ctx, cancel := context.WithCancel(s.parent)
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done

	go func() {
		defer close(done)
		out, err := Run(ctx, s.cfg, s.in, NewModels(s.scenario), s.open, stateRecorder{s}, s.logger)

		s.mu.Lock()
		s.cancel = nil
		s.last, s.lastErr = out, err
		s.mu.Unlock()
		cancel()

		if err != nil {
			s.logger.Error("run failed", "error", err)
			s.observer.OnError(err)
		}
	}()
	return nil
}

// Cancel stops the current run, if any.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// Wait blocks until the current run, if any, has finished.
func (s *Session) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// State returns the last reported run state.
func (s *Session) State() simulator.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Last returns the output and error of the last finished run.
func (s *Session) Last() (*simulator.Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.lastErr
}

type nopObserver struct {
	simulator.NopObserver
}

func (nopObserver) OnError(error) {}

// stateRecorder keeps the latest state and forwards every event.
type stateRecorder struct {
	s *Session
}

func (r stateRecorder) OnState(st simulator.State) {
	r.s.mu.Lock()
	r.s.state = st
	r.s.mu.Unlock()
	r.s.observer.OnState(st)
}

func (r stateRecorder) OnStep(res simulator.StepResult) {
	r.s.observer.OnStep(res)
}

func (r stateRecorder) OnSettingsChange(c simulator.SettingsChange) {
	r.s.observer.OnSettingsChange(c)
}

func (r stateRecorder) OnSummary(sum simulator.Summary) {
	r.s.observer.OnSummary(sum)
}
