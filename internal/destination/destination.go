// Package destination persists co-simulation output.
package destination

import (
	"fmt"
	"math"
	"strconv"

	"thermostat_cosim/internal/simulator"
)

// Kind names a destination format.
type Kind string

const (
	KindCSV    Kind = "csv"
	KindDuckDB Kind = "duckdb"
)

// Writer is a destination that holds resources until closed.
type Writer interface {
	simulator.Destination
	Close() error
}

// Open returns the destination of the given kind writing to path.
// compress applies to CSV output only.
func Open(kind Kind, path string, compress bool) (Writer, error) {
	switch kind {
	case KindCSV:
		return NewCSV(path, compress), nil
	case KindDuckDB:
		return NewDuckDB(path)
	default:
		return nil, fmt.Errorf("unknown destination kind %q", kind)
	}
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
