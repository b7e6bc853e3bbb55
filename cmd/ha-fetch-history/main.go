// Command ha-fetch-history exports the history of a Home Assistant climate
// entity into per-signal CSV files (entity_id,state,last_changed) that the
// co-simulation loads from <input-dir>/thermostat. Reruns resume from the
// latest exported timestamp.
package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"thermostat_cosim/internal/model"
)

// exported lists the thermostat signals written, one file each.
var exported = []model.Signal{
	model.SignalSchedule,
	model.SignalHVACMode,
	model.SignalHeatSetpoint,
	model.SignalCoolSetpoint,
}

type record struct {
	entityID string
	signal   model.Signal
	state    string
	ts       time.Time
}

func main() {
	urlFlag := flag.String("url", "", "Home Assistant base URL (overrides HA_URL)")
	tokenFlag := flag.String("token", "", "Long-lived access token (overrides HA_TOKEN)")
	entityFlag := flag.String("entity", "", "climate entity ID (overrides HA_CLIMATE_ENTITY)")
	days := flag.Int("days", 28, "Days to fetch on first run (ignored if output files have data)")
	outDir := flag.String("output-dir", "input/thermostat", "Output directory")
	flag.Parse()

	_ = godotenv.Load()

	haURL := resolveFlag(*urlFlag, "HA_URL")
	haToken := resolveFlag(*tokenFlag, "HA_TOKEN")
	entity := resolveFlag(*entityFlag, "HA_CLIMATE_ENTITY")
	if haURL == "" || haToken == "" || entity == "" {
		slog.Error("HA_URL, HA_TOKEN and HA_CLIMATE_ENTITY must be set by flag or environment")
		os.Exit(1)
	}
	haURL = strings.TrimRight(haURL, "/")

	existing, latest, err := loadExisting(*outDir)
	if err != nil {
		slog.Error("reading existing export", "error", err)
		os.Exit(1)
	}

	var startTime time.Time
	if !latest.IsZero() {
		startTime = latest.Add(-time.Minute)
		slog.Info("resuming from latest exported timestamp", "start", startTime.Format(time.RFC3339))
	} else {
		startTime = time.Now().AddDate(0, 0, -*days)
		slog.Info("first run", "days", *days, "start", startTime.Format(time.RFC3339))
	}

	endTime := time.Now()
	client := &http.Client{Timeout: 30 * time.Second}

	var fetched []record
	for start := startTime; start.Before(endTime); start = start.Add(24 * time.Hour) {
		end := start.Add(24 * time.Hour)
		if end.After(endTime) {
			end = endTime
		}

		dayRecords, err := fetchDay(client, haURL, haToken, entity, start, end)
		if err != nil {
			slog.Error("fetching history", "day", start.Format("2006-01-02"), "error", err)
			os.Exit(1)
		}
		fetched = append(fetched, dayRecords...)
		slog.Info("fetched day", "day", start.Format("2006-01-02"), "records", len(dayRecords))

		if end.Before(endTime) {
			time.Sleep(500 * time.Millisecond)
		}
	}

	merged := mergeRecords(existing, fetched)

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		slog.Error("creating output directory", "error", err)
		os.Exit(1)
	}
	if err := writeFiles(*outDir, merged); err != nil {
		slog.Error("writing export", "error", err)
		os.Exit(1)
	}

	slog.Info("export complete", "dir", *outDir, "records", len(merged), "previous", len(existing), "fetched", len(fetched))
}

func resolveFlag(flagVal, envKey string) string {
	if flagVal != "" {
		return flagVal
	}
	return os.Getenv(envKey)
}

func signalFile(dir string, sig model.Signal) string {
	return filepath.Join(dir, string(sig)+".csv")
}

// loadExisting reads previously exported files and returns their records
// and the latest timestamp. Missing files are skipped.
func loadExisting(dir string) ([]record, time.Time, error) {
	var records []record
	var latest time.Time

	for _, sig := range exported {
		f, err := os.Open(signalFile(dir, sig))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, latest, err
		}

		cr := csv.NewReader(f)
		if _, err := cr.Read(); err != nil { // header
			f.Close()
			continue
		}
		for {
			row, err := cr.Read()
			if err == io.EOF {
				break
			}
			if err != nil || len(row) < 3 {
				continue
			}
			ts, err := time.Parse(time.RFC3339Nano, row[2])
			if err != nil {
				continue
			}
			records = append(records, record{entityID: row[0], signal: sig, state: row[1], ts: ts})
			if ts.After(latest) {
				latest = ts
			}
		}
		f.Close()
	}
	return records, latest, nil
}

func fetchDay(client *http.Client, baseURL, token, entity string, start, end time.Time) ([]record, error) {
	u := fmt.Sprintf("%s/api/history/period/%s?end_time=%s&filter_entity_id=%s",
		baseURL,
		url.PathEscape(start.Format(time.RFC3339)),
		url.QueryEscape(end.Format(time.RFC3339)),
		url.QueryEscape(entity),
	)

	var body []byte
	var err error
	for attempt := 0; attempt < 5; attempt++ {
		body, err = doRequest(client, u, token)
		if err == nil {
			break
		}
		if isRetryable(err) {
			wait := time.Duration(math.Pow(2, float64(attempt))) * time.Second
			slog.Warn("retrying request", "wait", wait, "error", err)
			time.Sleep(wait)
			continue
		}
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("after 5 attempts: %w", err)
	}

	return parseHistoryResponse(body)
}

type apiError struct {
	statusCode int
	message    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.statusCode, e.message)
}

func isRetryable(err error) bool {
	var ae *apiError
	if !errors.As(err, &ae) {
		return true // network errors are retryable
	}
	return ae.statusCode == http.StatusTooManyRequests || ae.statusCode >= 500
}

func doRequest(client *http.Client, url, token string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &apiError{statusCode: resp.StatusCode, message: "authentication failed, check HA_TOKEN"}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &apiError{statusCode: resp.StatusCode, message: string(body)}
	}
	return body, nil
}

type climateState struct {
	EntityID    string `json:"entity_id"`
	State       string `json:"state"`
	LastChanged string `json:"last_changed"`
	LastUpdated string `json:"last_updated"`
	Attributes  struct {
		PresetMode     string   `json:"preset_mode"`
		Temperature    *float64 `json:"temperature"`
		TargetTempLow  *float64 `json:"target_temp_low"`
		TargetTempHigh *float64 `json:"target_temp_high"`
	} `json:"attributes"`
}

// parseHistoryResponse splits climate entity states into per-signal
// records. The response is an array with one state array per entity.
// Attribute changes only move last_updated, so it takes precedence.
func parseHistoryResponse(data []byte) ([]record, error) {
	var outer [][]climateState
	if err := json.Unmarshal(data, &outer); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	var records []record
	for _, history := range outer {
		var entity string
		for _, st := range history {
			if st.EntityID != "" {
				entity = st.EntityID
			}
			if st.State == "unavailable" || st.State == "unknown" || st.State == "" {
				continue
			}

			raw := st.LastUpdated
			if raw == "" {
				raw = st.LastChanged
			}
			ts, err := time.Parse(time.RFC3339Nano, raw)
			if err != nil {
				continue
			}
			ts = ts.UTC()
			add := func(sig model.Signal, state string) {
				records = append(records, record{entityID: entity, signal: sig, state: state, ts: ts})
			}

			mode := hvacMode(st.State)
			add(model.SignalHVACMode, string(mode))
			if st.Attributes.PresetMode != "" {
				add(model.SignalSchedule, st.Attributes.PresetMode)
			}

			heat, cool := st.Attributes.TargetTempLow, st.Attributes.TargetTempHigh
			if t := st.Attributes.Temperature; t != nil {
				switch mode {
				case model.ModeHeat:
					heat = t
				case model.ModeCool:
					cool = t
				}
			}
			if heat != nil {
				add(model.SignalHeatSetpoint, strconv.FormatFloat(*heat, 'f', -1, 64))
			}
			if cool != nil {
				add(model.SignalCoolSetpoint, strconv.FormatFloat(*cool, 'f', -1, 64))
			}
		}
	}

	return records, nil
}

// hvacMode maps Home Assistant hvac modes onto thermostat modes.
func hvacMode(state string) model.HVACMode {
	switch state {
	case "heat_cool":
		return model.ModeAuto
	default:
		return model.ParseHVACMode(state)
	}
}

// mergeRecords unions existing and new records keyed by (signal, ts); new
// records win. The result is sorted by signal, then time.
func mergeRecords(existing, fresh []record) []record {
	type key struct {
		signal model.Signal
		ts     int64
	}

	seen := make(map[key]record, len(existing)+len(fresh))
	for _, r := range existing {
		seen[key{r.signal, r.ts.UnixNano()}] = r
	}
	for _, r := range fresh {
		seen[key{r.signal, r.ts.UnixNano()}] = r
	}

	merged := make([]record, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].signal != merged[j].signal {
			return merged[i].signal < merged[j].signal
		}
		return merged[i].ts.Before(merged[j].ts)
	})

	return merged
}

// writeFiles writes one Home Assistant export file per exported signal.
// Records must be sorted by mergeRecords.
func writeFiles(dir string, records []record) error {
	bySignal := make(map[model.Signal][]record)
	for _, r := range records {
		bySignal[r.signal] = append(bySignal[r.signal], r)
	}

	for _, sig := range exported {
		if err := writeCSV(signalFile(dir, sig), bySignal[sig]); err != nil {
			return fmt.Errorf("writing %s: %w", sig, err)
		}
	}
	return nil
}

func writeCSV(path string, records []record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"entity_id", "state", "last_changed"}); err != nil {
		return err
	}

	for _, r := range records {
		if err := w.Write([]string{r.entityID, r.state, r.ts.Format(time.RFC3339Nano)}); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
