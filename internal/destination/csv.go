package destination

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"thermostat_cosim/internal/model"
	"thermostat_cosim/internal/simulator"
)

// CSV writes the output frame as a wide CSV file with a date_time column
// followed by one column per signal. With Compress the file is zstd
// compressed and gets a .zst suffix.
type CSV struct {
	Path     string
	Compress bool
}

func NewCSV(path string, compress bool) *CSV {
	if compress && !strings.HasSuffix(path, ".zst") {
		path += ".zst"
	}
	return &CSV{Path: path, Compress: compress}
}

func (c *CSV) Write(ctx context.Context, out *simulator.Output) (err error) {
	f, err := os.Create(c.Path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", c.Path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", c.Path, cerr)
		}
	}()

	var w io.Writer = f
	if c.Compress {
		enc, zerr := zstd.NewWriter(f)
		if zerr != nil {
			return fmt.Errorf("creating zstd encoder: %w", zerr)
		}
		defer func() {
			if cerr := enc.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("flushing zstd stream: %w", cerr)
			}
		}()
		w = enc
	}

	return writeCSV(ctx, w, out)
}

func writeCSV(ctx context.Context, w io.Writer, out *simulator.Output) error {
	cw := csv.NewWriter(w)
	fr := out.Frame
	signals := fr.Signals()

	header := make([]string, 0, len(signals)+1)
	header = append(header, "date_time")
	for _, s := range signals {
		header = append(header, string(s))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	record := make([]string, len(header))
	for i := 0; i < fr.Len(); i++ {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		record[0] = fr.Time(i).UTC().Format(time.RFC3339)
		for k, s := range signals {
			record[k+1] = cell(out, s, i)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func cell(out *simulator.Output, s model.Signal, i int) string {
	if out.Frame.IsText(s) {
		return out.Frame.Text(s)[i]
	}
	return formatFloat(out.Frame.Float(s)[i])
}

// Close is a no-op; each Write owns its file.
func (c *CSV) Close() error { return nil }
