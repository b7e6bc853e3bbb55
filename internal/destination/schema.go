package destination

// Table definitions for run persistence.
const (
	CreateRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
    run_id VARCHAR PRIMARY KEY,
    identifier VARCHAR NOT NULL,
    latitude DOUBLE,
    longitude DOUBLE,
    sim_start TIMESTAMP NOT NULL,
    sim_end TIMESTAMP NOT NULL,
    step_sec INTEGER NOT NULL,
    output_step_sec INTEGER NOT NULL,
    steps INTEGER NOT NULL,
    heating_runtime_sec DOUBLE,
    cooling_runtime_sec DOUBLE,
    heating_cycles INTEGER,
    cooling_cycles INTEGER,
    mean_indoor_temp_c DOUBLE,
    hvac_energy_kwh DOUBLE,
    created_at TIMESTAMP NOT NULL
);
`

	CreateRunOutputsTable = `
CREATE TABLE IF NOT EXISTS run_outputs (
    run_id VARCHAR NOT NULL,
    ts TIMESTAMP NOT NULL,
    signal VARCHAR NOT NULL,
    value DOUBLE,
    label VARCHAR,
    PRIMARY KEY (run_id, ts, signal)
);
`

	CreateRunPeriodsTable = `
CREATE TABLE IF NOT EXISTS run_periods (
    run_id VARCHAR NOT NULL,
    period_start TIMESTAMP NOT NULL,
    period_end TIMESTAMP NOT NULL,
    PRIMARY KEY (run_id, period_start)
);
`
)
