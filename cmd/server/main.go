package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"thermostat_cosim/internal/config"
	"thermostat_cosim/internal/model"
	"thermostat_cosim/internal/session"
	"thermostat_cosim/internal/simulator"
	"thermostat_cosim/internal/ws"
)

func main() {
	frontendDir := flag.String("frontend-dir", "frontend/build", "directory containing frontend build")
	flag.Parse()

	if err := run(*frontendDir); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(frontendDir string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	sc, err := config.LoadScenario(cfg.Input.ScenarioFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in, err := session.LoadInputs(ctx, cfg.Input.Dir, session.WindowFromConfig(cfg), sc.NullCheck, logger)
	if err != nil {
		return fmt.Errorf("loading channels: %w", err)
	}

	hub := ws.NewHub()
	bridge := ws.NewBridge(hub, logger)
	sess := session.New(ctx, cfg.ToSimulator(), in, sc, session.OpenFromConfig(cfg.Output), bridge, logger)
	handler := ws.NewHandler(hub, sess, dataLoaded(in, cfg.Run.Start, cfg.Run.End), logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.Handle("/ws", handler)

	if _, err := os.Stat(frontendDir); err == nil {
		logger.Info("serving frontend", "dir", frontendDir)
		mux.Handle("/", http.FileServer(http.Dir(frontendDir)))
	}

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		sess.Cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", "error", err)
		}
	}()

	logger.Info("starting server", "addr", cfg.Server.Addr, "run", cfg.Run.Identifier)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	sess.Wait()
	return nil
}

// dataLoaded describes the loaded channels to connecting clients.
func dataLoaded(in simulator.Inputs, start, end time.Time) ws.DataLoadedPayload {
	seen := make(map[model.Signal]bool)
	var signals []ws.SignalInfo
	for _, ch := range []simulator.Channel{in.Thermostat, in.Sensors, in.Weather} {
		if ch.Frame == nil {
			continue
		}
		for _, s := range ch.Frame.Signals() {
			if seen[s] {
				continue
			}
			seen[s] = true
			signals = append(signals, signalInfo(s))
		}
	}
	sort.Slice(signals, func(i, j int) bool { return signals[i].ID < signals[j].ID })

	return ws.DataLoadedPayload{
		Signals: signals,
		TimeRange: ws.TimeRangeInfo{
			Start: start.UTC().Format(time.RFC3339),
			End:   end.UTC().Format(time.RFC3339),
		},
	}
}

func signalInfo(s model.Signal) ws.SignalInfo {
	info, ok := model.SignalCatalog[s]
	if !ok {
		return ws.SignalInfo{ID: string(s), Name: string(s)}
	}
	return ws.SignalInfo{ID: string(s), Name: info.Name, Unit: info.Unit, Channel: string(info.Channel)}
}
