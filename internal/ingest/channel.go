package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"thermostat_cosim/internal/model"
)

// ChannelParser parses a wide channel CSV export: a date_time column followed
// by one column per signal, named as in model.SignalCatalog.
//
// Expected format:
//
//	date_time,schedule,hvac_mode,temperature_stp_heat,temperature_stp_cool
//	2024-11-21 13:00:00,Home,heat,20.5,25.6
type ChannelParser struct {
	// Channel restricts columns to signals of one channel. Empty accepts all.
	Channel model.Channel
	Logger  *slog.Logger
}

func NewChannelParser(channel model.Channel, logger *slog.Logger) *ChannelParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChannelParser{Channel: channel, Logger: logger}
}

func (p *ChannelParser) Parse(r io.Reader) ([]model.Reading, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	columns, err := p.mapHeader(header)
	if err != nil {
		return nil, err
	}

	var readings []model.Reading
	skipped := 0
	lineNum := 1

	for {
		lineNum++
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV line %d: %w", lineNum, err)
		}

		rs, err := parseChannelRecord(record, columns, lineNum)
		if err != nil {
			// Skip unparseable rows; a dropped row becomes a gap downstream.
			skipped++
			continue
		}
		readings = append(readings, rs...)
	}

	if skipped > 0 {
		p.logger().Warn("skipped unparseable rows", "channel", p.Channel, "rows", skipped)
	}
	return readings, nil
}

func (p *ChannelParser) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

// mapHeader resolves column positions to signals. Column 0 must be date_time;
// columns that are not known signals of the channel are ignored.
func (p *ChannelParser) mapHeader(header []string) ([]column, error) {
	if len(header) < 2 {
		return nil, fmt.Errorf("expected at least 2 columns, got %d", len(header))
	}
	if strings.TrimSpace(header[0]) != "date_time" {
		return nil, fmt.Errorf("expected column 0 to be %q, got %q", "date_time", header[0])
	}

	var columns []column
	for i, col := range header[1:] {
		sig := model.Signal(strings.TrimSpace(col))
		info, ok := model.SignalCatalog[sig]
		if !ok || (p.Channel != "" && info.Channel != p.Channel) {
			p.logger().Debug("ignoring column", "column", col, "channel", p.Channel)
			continue
		}
		columns = append(columns, column{index: i + 1, signal: sig})
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("no known %s signal columns in header", p.Channel)
	}
	return columns, nil
}

type column struct {
	index  int
	signal model.Signal
}

func parseChannelRecord(record []string, columns []column, lineNum int) ([]model.Reading, error) {
	if len(record) == 0 {
		return nil, fmt.Errorf("line %d: empty record", lineNum)
	}
	ts, err := parseTimestamp(record[0])
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", lineNum, err)
	}

	readings := make([]model.Reading, 0, len(columns))
	for _, c := range columns {
		i, sig := c.index, c.signal
		if i >= len(record) || isMissing(record[i]) {
			continue
		}
		raw := strings.TrimSpace(record[i])
		r := model.Reading{Timestamp: ts, Signal: sig}
		if model.KindOf(sig) == model.Categorical {
			r.Text = raw
		} else {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				continue
			}
			r.Value = v
		}
		readings = append(readings, r)
	}
	return readings, nil
}
