// Command cosim runs one thermostat co-simulation over historical channel
// data and persists the result. Configuration is read from the environment
// (see internal/config).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"thermostat_cosim/internal/config"
	"thermostat_cosim/internal/session"
	"thermostat_cosim/internal/simulator"
)

func main() {
	if err := run(); err != nil {
		slog.Error("co-simulation failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	sc, err := config.LoadScenario(cfg.Input.ScenarioFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in, err := session.LoadInputs(ctx, cfg.Input.Dir, session.WindowFromConfig(cfg), sc.NullCheck, logger)
	if err != nil {
		return fmt.Errorf("loading channels: %w", err)
	}

	out, err := session.Run(ctx, cfg.ToSimulator(), in, session.NewModels(sc), session.OpenFromConfig(cfg.Output), progress{logger: logger}, logger)
	if err != nil {
		return err
	}

	s := out.Summary
	logger.Info("run summary",
		"run_id", out.RunID,
		"rows", out.Frame.Len(),
		"full_data_periods", len(out.Periods),
		"heating_runtime_h", s.HeatingRuntimeSec/3600,
		"cooling_runtime_h", s.CoolingRuntimeSec/3600,
		"heating_cycles", s.HeatingCycles,
		"cooling_cycles", s.CoolingCycles,
		"mean_indoor_c", s.MeanIndoorTempC,
		"hvac_kwh", s.HVACEnergyKWh,
		"output", cfg.Output.Path)
	return nil
}

// progress logs a line every simulated day.
type progress struct {
	simulator.NopObserver
	logger *slog.Logger
}

const stepsPerLog = 288

func (p progress) OnStep(r simulator.StepResult) {
	if r.Step > 0 && r.Step%stepsPerLog == 0 {
		p.logger.Info("progress", "step", r.Step, "time", r.Timestamp, "schedule", r.Schedule)
	}
}

func (p progress) OnSettingsChange(c simulator.SettingsChange) {
	p.logger.Info("settings changed", "time", c.Timestamp, "hvac_mode", c.Settings.Mode)
}
