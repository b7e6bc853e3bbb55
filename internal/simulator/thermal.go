package simulator

import (
	"context"
	"fmt"

	"thermostat_cosim/internal/frame"
	"thermostat_cosim/internal/model"
)

// InsulationLevel categorizes building insulation quality.
type InsulationLevel string

const (
	InsulationVeryGood InsulationLevel = "very_good" // EP < 60 kWh/m²·year → ~100 W/°C
	InsulationGood     InsulationLevel = "good"      // EP 60-90 → ~150 W/°C
	InsulationNormal   InsulationLevel = "normal"    // EP 90-120 → ~200 W/°C
	InsulationBasic    InsulationLevel = "basic"     // EP > 120 → ~280 W/°C
)

// HeatLossForInsulation returns the heat loss coefficient (W/°C) for a ~120m² house.
func HeatLossForInsulation(level InsulationLevel) float64 {
	switch level {
	case InsulationVeryGood:
		return 100
	case InsulationGood:
		return 150
	case InsulationNormal:
		return 200
	case InsulationBasic:
		return 280
	default:
		return 150
	}
}

// ThermalConfig holds the lumped-capacitance building parameters.
type ThermalConfig struct {
	Insulation       InsulationLevel `yaml:"insulation"`
	ThermalMassKWhC  float64         `yaml:"thermal_mass_kwh_per_c"`
	HeatingCapacityW float64         `yaml:"heating_capacity_w"` // thermal output at stage 1
	CoolingCapacityW float64         `yaml:"cooling_capacity_w"`
	HeatingCOP       float64         `yaml:"heating_cop"`
	CoolingCOP       float64         `yaml:"cooling_cop"`
	SolarApertureM2  float64         `yaml:"solar_aperture_m2"` // effective glazing area for direct radiation
	InitialTempC     float64         `yaml:"initial_temp_c"`    // used when no sensor reading seeds the state
}

// DefaultThermalConfig returns a ~120m² house with a heat pump.
func DefaultThermalConfig() ThermalConfig {
	return ThermalConfig{
		Insulation:       InsulationGood,
		ThermalMassKWhC:  2.0,
		HeatingCapacityW: 6000,
		CoolingCapacityW: 5000,
		HeatingCOP:       3.0,
		CoolingCOP:       3.5,
		SolarApertureM2:  2.0,
		InitialTempC:     21.0,
	}
}

// ThermalBuilding is a single-zone RC building model. Each step integrates
// dT = (hvac + solar - UA·(Tin-Tout)) · dt / C.
type ThermalBuilding struct {
	config ThermalConfig

	IndoorTempC  float64 // current simulated indoor temperature
	ThermalMassJ float64 // building thermal capacity in joules/°C (kWh/°C * 3.6e6)
	HeatLossWC   float64 // heat loss coefficient from insulation level

	seeded bool
}

// NewThermalBuilding creates a building model from cfg.
func NewThermalBuilding(cfg ThermalConfig) *ThermalBuilding {
	return &ThermalBuilding{
		config:       cfg,
		IndoorTempC:  cfg.InitialTempC,
		ThermalMassJ: cfg.ThermalMassKWhC * 3.6e6,
		HeatLossWC:   HeatLossForInsulation(cfg.Insulation),
	}
}

func (b *ThermalBuilding) Name() string { return "thermal_building" }

func (b *ThermalBuilding) InputStates() []model.Signal {
	return []model.Signal{model.SignalHeatStage, model.SignalCoolStage, model.SignalOutdoorTemp}
}

// OutputStates includes the thermostat temperature so the simulated zone
// feeds back into the next step's sensor row.
func (b *ThermalBuilding) OutputStates() []model.Signal {
	return []model.Signal{model.SignalZoneAirTemp, model.SignalThermostatTemp, model.SignalHVACPower}
}

func (b *ThermalBuilding) Initialize(spec InitSpec) error {
	if b.ThermalMassJ <= 0 {
		return fmt.Errorf("thermal mass must be positive, got %.2f kWh/°C", b.config.ThermalMassKWhC)
	}
	if spec.TStep <= 0 {
		return fmt.Errorf("step must be positive, got %ds", spec.TStep)
	}
	b.IndoorTempC = b.config.InitialTempC
	b.seeded = false
	return nil
}

// DoStep advances the zone temperature by one step. The first step seeds the
// state from the sensor row when it has a reading.
func (b *ThermalBuilding) DoStep(ctx context.Context, clock Clock, control model.Values, sensors, weather frame.Row) (model.Values, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !b.seeded {
		if v, ok := sensors.Float(model.SignalThermostatTemp); ok {
			b.IndoorTempC = v
		}
		b.seeded = true
	}

	outdoorTempC, ok := weather.Float(model.SignalOutdoorTemp)
	if !ok {
		// No weather for this step: assume no conduction.
		outdoorTempC = b.IndoorTempC
	}
	dt := float64(clock.Step)

	// Heat loss from building to outside (W); negative when outside is warmer
	lossW := b.HeatLossWC * (b.IndoorTempC - outdoorTempC)

	var hvacThermalW, hvacElecW float64
	if stage, _ := control.Get(model.SignalHeatStage); stage > 0 {
		hvacThermalW += b.config.HeatingCapacityW * stage
		hvacElecW += b.config.HeatingCapacityW * stage / cop(b.config.HeatingCOP)
	}
	if stage, _ := control.Get(model.SignalCoolStage); stage > 0 {
		hvacThermalW -= b.config.CoolingCapacityW * stage
		hvacElecW += b.config.CoolingCapacityW * stage / cop(b.config.CoolingCOP)
	}

	var solarW float64
	if dnr, ok := weather.Float(model.SignalSolarRadiation); ok && dnr > 0 {
		solarW = dnr * b.config.SolarApertureM2
	}

	dT := (hvacThermalW + solarW - lossW) * dt / b.ThermalMassJ
	b.IndoorTempC += dT

	return model.Values{
		model.SignalZoneAirTemp:    b.IndoorTempC,
		model.SignalThermostatTemp: b.IndoorTempC,
		model.SignalHVACPower:      hvacElecW,
	}, nil
}

func (b *ThermalBuilding) TearDown() error { return nil }

func cop(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return v
}
