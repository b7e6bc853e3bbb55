package ingest

import (
	"fmt"
	"io"
	"strings"
	"time"

	"thermostat_cosim/internal/model"
)

// Parser reads channel data from a source and returns readings.
type Parser interface {
	Parse(r io.Reader) ([]model.Reading, error)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// parseTimestamp accepts RFC3339 and the naive layouts thermostat exports
// use. Naive timestamps are read as UTC.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// isMissing reports whether a raw cell carries no observation.
func isMissing(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unavailable", "unknown", "nan", "null", "none":
		return true
	}
	return false
}
