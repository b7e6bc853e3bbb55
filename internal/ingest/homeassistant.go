package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"thermostat_cosim/internal/model"
)

// HomeAssistantParser parses Home Assistant history exports of one entity,
// such as a climate entity's preset (schedule) or a temperature sensor.
//
// Expected format:
//
//	entity_id,state,last_changed
//	climate.living_room,home,2024-11-21T13:00:00.000Z
type HomeAssistantParser struct {
	// Signal to assign to parsed readings.
	Signal model.Signal
}

func NewHomeAssistantParser(sig model.Signal) *HomeAssistantParser {
	return &HomeAssistantParser{Signal: sig}
}

func (p *HomeAssistantParser) Parse(r io.Reader) ([]model.Reading, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	if err := validateHeader(header); err != nil {
		return nil, err
	}

	var readings []model.Reading
	lineNum := 1 // header was line 1

	for {
		lineNum++
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV line %d: %w", lineNum, err)
		}

		reading, err := p.parseRecord(record, lineNum)
		if err != nil {
			// Skip unparseable rows (e.g. "unavailable" state)
			continue
		}

		readings = append(readings, reading)
	}

	return readings, nil
}

func validateHeader(header []string) error {
	if len(header) < 3 {
		return fmt.Errorf("expected at least 3 columns, got %d", len(header))
	}

	expected := []string{"entity_id", "state", "last_changed"}
	for i, col := range expected {
		if strings.TrimSpace(header[i]) != col {
			return fmt.Errorf("expected column %d to be %q, got %q", i, col, header[i])
		}
	}

	return nil
}

func (p *HomeAssistantParser) parseRecord(record []string, lineNum int) (model.Reading, error) {
	if len(record) < 3 {
		return model.Reading{}, fmt.Errorf("line %d: expected 3 fields, got %d", lineNum, len(record))
	}
	if isMissing(record[1]) {
		return model.Reading{}, fmt.Errorf("line %d: missing state", lineNum)
	}

	ts, err := parseTimestamp(record[2])
	if err != nil {
		return model.Reading{}, fmt.Errorf("line %d: %w", lineNum, err)
	}

	reading := model.Reading{Timestamp: ts, Signal: p.Signal}
	state := strings.TrimSpace(record[1])
	if model.KindOf(p.Signal) == model.Categorical {
		reading.Text = state
		return reading, nil
	}

	value, err := strconv.ParseFloat(state, 64)
	if err != nil {
		return model.Reading{}, fmt.Errorf("line %d: parsing value %q: %w", lineNum, state, err)
	}
	reading.Value = value
	return reading, nil
}

// HoldLast expands state-change readings into one reading per step: each
// state is repeated until the next change, the last one until end
// (exclusive). Home Assistant only records changes, while channel alignment
// expects one sample per step.
func HoldLast(readings []model.Reading, end time.Time, step time.Duration) []model.Reading {
	if len(readings) == 0 || step <= 0 {
		return nil
	}
	sorted := make([]model.Reading, len(readings))
	copy(sorted, readings)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	var out []model.Reading
	for i, r := range sorted {
		until := end
		if i+1 < len(sorted) && sorted[i+1].Timestamp.Before(end) {
			until = sorted[i+1].Timestamp
		}
		for ts := r.Timestamp; ts.Before(until); ts = ts.Add(step) {
			held := r
			held.Timestamp = ts
			out = append(out, held)
		}
	}
	return out
}
