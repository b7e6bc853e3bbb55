// Package session assembles co-simulation runs from process configuration:
// it loads the historical channels, builds the models of a scenario and
// drives one run at a time.
package session

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"thermostat_cosim/internal/config"
	"thermostat_cosim/internal/ingest"
	"thermostat_cosim/internal/model"
	"thermostat_cosim/internal/simulator"
	"thermostat_cosim/internal/store"
)

// Channel files are looked up in the input directory under these names.
// Thermostat signals may additionally come from Home Assistant exports
// named <dir>/thermostat/<signal>.csv.
const (
	ThermostatFile = "thermostat.csv"
	SensorsFile    = "sensors.csv"
	WeatherFile    = "weather.csv"
	ForecastFile   = "weather_forecast.csv"
)

// Window is the time span and cadence channels are aligned to.
type Window struct {
	HistoryStart time.Time // thermostat data start, for setting extraction
	Start        time.Time
	End          time.Time
	Step         time.Duration
}

// WindowFromConfig returns the alignment window of cfg.
func WindowFromConfig(cfg *config.Config) Window {
	return Window{
		HistoryStart: cfg.HistoryStart(),
		Start:        cfg.Run.Start,
		End:          cfg.Run.End,
		Step:         cfg.Run.Step,
	}
}

// LoadInputs reads the four channel files of dir concurrently and aligns
// each onto the step grid. A channel without readings has a nil frame.
func LoadInputs(ctx context.Context, dir string, w Window, nullCheck config.NullCheck, logger *slog.Logger) (simulator.Inputs, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var in simulator.Inputs
	g, gctx := errgroup.WithContext(ctx)
	load := func(fn func() error) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn()
		})
	}

	load(func() error {
		s := store.New()
		readings, err := ingest.LoadFile(filepath.Join(dir, ThermostatFile), ingest.NewChannelParser(model.ChannelThermostat, logger), logger)
		if err != nil {
			return err
		}
		s.AddReadings(readings)
		if err := loadHomeAssistant(filepath.Join(dir, "thermostat"), s, w, logger); err != nil {
			return err
		}
		in.Thermostat = channel(ThermostatFile, s, w.HistoryStart, w, nullCheck.Signals(model.ChannelThermostat), logger)
		return nil
	})
	load(func() error {
		ch, err := loadChannel(filepath.Join(dir, SensorsFile), model.ChannelSensors, w, nullCheck.Signals(model.ChannelSensors), logger)
		in.Sensors = ch
		return err
	})
	load(func() error {
		ch, err := loadChannel(filepath.Join(dir, WeatherFile), model.ChannelWeather, w, nullCheck.Signals(model.ChannelWeather), logger)
		in.Weather = ch
		return err
	})
	load(func() error {
		// Forecast files carry weather columns.
		ch, err := loadChannel(filepath.Join(dir, ForecastFile), model.ChannelWeather, w, nullCheck.Signals(model.ChannelForecast), logger)
		in.Forecast = ch
		return err
	})

	if err := g.Wait(); err != nil {
		return simulator.Inputs{}, err
	}
	return in, nil
}

func loadChannel(path string, ch model.Channel, w Window, nullCheck []model.Signal, logger *slog.Logger) (simulator.Channel, error) {
	readings, err := ingest.LoadFile(path, ingest.NewChannelParser(ch, logger), logger)
	if err != nil {
		return simulator.Channel{}, err
	}
	s := store.New()
	s.AddReadings(readings)
	return channel(filepath.Base(path), s, w.Start, w, nullCheck, logger), nil
}

// loadHomeAssistant adds single-signal exports of thermostat signals found
// in dir. A missing dir is not an error.
func loadHomeAssistant(dir string, s *store.Store, w Window, logger *slog.Logger) error {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	for _, sig := range []model.Signal{
		model.SignalSchedule,
		model.SignalCalendarEvent,
		model.SignalHVACMode,
		model.SignalHeatSetpoint,
		model.SignalCoolSetpoint,
	} {
		path := filepath.Join(dir, string(sig)+".csv")
		readings, err := ingest.LoadFile(path, ingest.NewHomeAssistantParser(sig), logger)
		if err != nil {
			return err
		}
		s.AddReadings(ingest.HoldLast(readings, w.End, w.Step))
	}
	return nil
}

func channel(name string, s *store.Store, start time.Time, w Window, nullCheck []model.Signal, logger *slog.Logger) simulator.Channel {
	signals := s.Signals()
	if len(signals) == 0 {
		logger.Warn("channel has no readings", "channel", name)
		return simulator.Channel{NullCheck: nullCheck}
	}
	tr, _ := s.GlobalTimeRange()
	readings := 0
	for _, sig := range signals {
		readings += s.ReadingCount(sig)
	}
	logger.Info("channel loaded", "channel", name, "signals", len(signals), "readings", readings,
		"from", tr.Start.Format(time.RFC3339), "to", tr.End.Format(time.RFC3339))
	return simulator.Channel{
		Frame:     s.Frame(signals, start, w.End, w.Step),
		NullCheck: nullCheck,
	}
}
