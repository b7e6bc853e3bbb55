package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"thermostat_cosim/internal/model"
	"thermostat_cosim/internal/simulator"
)

// Scenario holds the model parameters of a run, read from a YAML file.
//
//	estimator:
//	  alpha: 0.5
//	controller:
//	  deadband: 0.5
//	building:
//	  insulation: good
//	  heating_capacity_w: 6000
//	null_check:
//	  sensors: [thermostat_temperature]
type Scenario struct {
	Estimator  EstimatorParams         `yaml:"estimator"`
	Controller ControllerParams        `yaml:"controller"`
	Building   simulator.ThermalConfig `yaml:"building"`
	NullCheck  NullCheck               `yaml:"null_check"`
}

type EstimatorParams struct {
	// Alpha is the exponential smoothing weight of new samples. 1 disables smoothing.
	Alpha float64 `yaml:"alpha" validate:"gt=0,lte=1"`
}

type ControllerParams struct {
	Deadband float64 `yaml:"deadband" validate:"gte=0"`
}

// NullCheck lists, per channel, the columns a row needs to count as full data.
type NullCheck struct {
	Thermostat []string `yaml:"thermostat"`
	Sensors    []string `yaml:"sensors"`
	Weather    []string `yaml:"weather"`
	Forecast   []string `yaml:"weather_forecast"`
}

// Signals converts the names of one channel into signals.
func (n NullCheck) Signals(ch model.Channel) []model.Signal {
	var names []string
	switch ch {
	case model.ChannelThermostat:
		names = n.Thermostat
	case model.ChannelSensors:
		names = n.Sensors
	case model.ChannelWeather:
		names = n.Weather
	case model.ChannelForecast:
		names = n.Forecast
	}
	out := make([]model.Signal, len(names))
	for i, name := range names {
		out[i] = model.Signal(name)
	}
	return out
}

func (n NullCheck) validate() error {
	for _, ch := range []model.Channel{model.ChannelThermostat, model.ChannelSensors, model.ChannelWeather, model.ChannelForecast} {
		for _, s := range n.Signals(ch) {
			info, ok := model.SignalCatalog[s]
			if !ok {
				return fmt.Errorf("null check: unknown signal %q", s)
			}
			if info.Channel != ch {
				return fmt.Errorf("null check: signal %q belongs to %s, not %s", s, info.Channel, ch)
			}
		}
	}
	return nil
}

// DefaultScenario returns the parameters used when no scenario file is given.
func DefaultScenario() Scenario {
	return Scenario{
		Estimator:  EstimatorParams{Alpha: 1},
		Controller: ControllerParams{Deadband: 0.5},
		Building:   simulator.DefaultThermalConfig(),
		NullCheck: NullCheck{
			Thermostat: []string{
				string(model.SignalSchedule),
				string(model.SignalHVACMode),
				string(model.SignalHeatSetpoint),
				string(model.SignalCoolSetpoint),
			},
			Sensors: []string{string(model.SignalThermostatTemp)},
			Weather: []string{string(model.SignalOutdoorTemp)},
		},
	}
}

// LoadScenario reads a scenario file over the defaults. Keys absent from the
// file keep their default value. An empty path returns the defaults.
func LoadScenario(path string) (Scenario, error) {
	sc := DefaultScenario()
	if path == "" {
		return sc, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return sc, &ConfigError{Type: ErrScenario, Message: "reading " + path, Err: err}
	}
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return sc, &ConfigError{Type: ErrScenario, Message: "parsing " + path, Err: err}
	}

	if err := validator.New().Struct(sc); err != nil {
		return sc, &ConfigError{Type: ErrScenario, Message: "validating " + path, Err: err}
	}
	if err := sc.NullCheck.validate(); err != nil {
		return sc, &ConfigError{Type: ErrScenario, Message: "validating " + path, Err: err}
	}
	return sc, nil
}
