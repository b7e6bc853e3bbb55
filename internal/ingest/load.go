package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"thermostat_cosim/internal/model"
)

// LoadFile parses the file at path. A missing file is logged and treated as
// an empty channel.
func LoadFile(path string, p Parser, logger *slog.Logger) ([]model.Reading, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("channel file missing, treated as empty", "path", path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	readings, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	logger.Info("loaded channel file", "path", path, "readings", len(readings))
	return readings, nil
}
