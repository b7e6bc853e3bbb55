package destination

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"thermostat_cosim/internal/simulator"
)

// DuckDB stores runs in a DuckDB database: one row per run in runs and the
// output frame in long format in run_outputs.
type DuckDB struct {
	db   *sql.DB
	path string
}

// NewDuckDB opens the database at path, which can be ":memory:", and
// creates the tables.
func NewDuckDB(path string) (*DuckDB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}

	d := &DuckDB{db: db, path: path}
	if err := d.initializeSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func (d *DuckDB) initializeSchema() error {
	for _, schema := range []string{CreateRunsTable, CreateRunOutputsTable, CreateRunPeriodsTable} {
		if _, err := d.db.Exec(schema); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// DB returns the underlying sql.DB connection
func (d *DuckDB) DB() *sql.DB {
	return d.db
}

// Write stores the run, its full data periods and its outputs in one
// transaction.
func (d *DuckDB) Write(ctx context.Context, out *simulator.Output) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	cfg, sum := out.Config, out.Summary
	outputStep := cfg.OutputStep
	if outputStep == 0 {
		outputStep = cfg.Step
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, identifier, latitude, longitude, sim_start, sim_end, step_sec, output_step_sec,
			steps, heating_runtime_sec, cooling_runtime_sec, heating_cycles, cooling_cycles,
			mean_indoor_temp_c, hvac_energy_kwh, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		out.RunID, cfg.Identifier, cfg.Latitude, cfg.Longitude, cfg.Start.UTC(), cfg.End.UTC(),
		int(cfg.Step/time.Second), int(outputStep/time.Second),
		sum.Steps, sum.HeatingRuntimeSec, sum.CoolingRuntimeSec, sum.HeatingCycles, sum.CoolingCycles,
		sum.MeanIndoorTempC, sum.HVACEnergyKWh, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	periodStmt, err := tx.PrepareContext(ctx, `INSERT INTO run_periods (run_id, period_start, period_end) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer periodStmt.Close()
	for _, p := range out.Periods {
		if _, err := periodStmt.ExecContext(ctx, out.RunID, p.Start.UTC(), p.End.UTC()); err != nil {
			return fmt.Errorf("failed to insert period: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_outputs (run_id, ts, signal, value, label) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	fr := out.Frame
	for _, s := range fr.Signals() {
		texts, floats := fr.Text(s), fr.Float(s)
		for i := 0; i < fr.Len(); i++ {
			var value, label any
			if texts != nil {
				if texts[i] == "" {
					continue
				}
				label = texts[i]
			} else {
				if math.IsNaN(floats[i]) {
					continue
				}
				value = floats[i]
			}
			if _, err := stmt.ExecContext(ctx, out.RunID, fr.Time(i).UTC(), string(s), value, label); err != nil {
				return fmt.Errorf("failed to insert output %s: %w", s, err)
			}
		}
	}

	return tx.Commit()
}

// Close closes the database connection
func (d *DuckDB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
