// Package config defines the process configuration of the co-simulation
// binaries. Values come from the environment, optionally seeded from a .env
// file, and are validated once at startup.
package config

import (
	"log/slog"
	"strings"
	"time"

	"thermostat_cosim/internal/simulator"
)

// Config is the top-level configuration. It is populated once by Load and
// never modified.
type Config struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Run    RunConfig
	Input  InputConfig
	Output OutputConfig
	Server ServerConfig
}

// RunConfig holds the simulation window and cadence.
type RunConfig struct {
	Identifier  string        `envconfig:"COSIM_IDENTIFIER" validate:"required"`
	Start       time.Time     `envconfig:"COSIM_START"`
	End         time.Time     `envconfig:"COSIM_END" validate:"gtfield=Start"`
	Step        time.Duration `envconfig:"COSIM_STEP" default:"5m" validate:"min=1s"`
	OutputStep  time.Duration `envconfig:"COSIM_OUTPUT_STEP" default:"0s" validate:"min=0"`
	StepTimeout time.Duration `envconfig:"COSIM_STEP_TIMEOUT" default:"0s" validate:"min=0"`
	Latitude    float64       `envconfig:"COSIM_LATITUDE" validate:"gte=-90,lte=90"`
	Longitude   float64       `envconfig:"COSIM_LONGITUDE" validate:"gte=-180,lte=180"`
}

// InputConfig locates the historical channel files.
type InputConfig struct {
	Dir          string `envconfig:"COSIM_INPUT_DIR" default:"input"`
	ScenarioFile string `envconfig:"COSIM_SCENARIO_FILE"`
	// HistoryDays of thermostat data before Start feed setting extraction.
	HistoryDays int `envconfig:"COSIM_HISTORY_DAYS" default:"28" validate:"gte=0"`
}

// OutputConfig selects where completed runs are persisted.
type OutputConfig struct {
	Kind     string `envconfig:"COSIM_OUTPUT_KIND" default:"csv" validate:"oneof=csv duckdb"`
	Path     string `envconfig:"COSIM_OUTPUT_PATH" default:"output/run.csv" validate:"required"`
	Compress bool   `envconfig:"COSIM_OUTPUT_ZSTD" default:"false"`
}

// ServerConfig holds the streaming server settings.
type ServerConfig struct {
	Addr string `envconfig:"COSIM_SERVER_ADDR" default:":8080"`
}

// ToSimulator converts the run section into a driver configuration.
func (c *Config) ToSimulator() simulator.Config {
	return simulator.Config{
		Start:       c.Run.Start,
		End:         c.Run.End,
		Step:        c.Run.Step,
		OutputStep:  c.Run.OutputStep,
		StepTimeout: c.Run.StepTimeout,
		Identifier:  c.Run.Identifier,
		Latitude:    c.Run.Latitude,
		Longitude:   c.Run.Longitude,
	}
}

// HistoryStart is the first thermostat timestamp loaded for extraction.
func (c *Config) HistoryStart() time.Time {
	return c.Run.Start.AddDate(0, 0, -c.Input.HistoryDays)
}

// SlogLevel maps LogLevel to a slog level. Unknown values map to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	// ErrParsing indicates an environment value could not be decoded.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
	// ErrValidation indicates a decoded value failed validation.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrScenario indicates the scenario file could not be read or is invalid.
	ErrScenario ConfigErrorType = "SCENARIO_INVALID"
)
