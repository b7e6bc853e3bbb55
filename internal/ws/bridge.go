package ws

import (
	"log/slog"

	"thermostat_cosim/internal/simulator"
)

// Bridge implements simulator.Observer and broadcasts events to the WebSocket hub.
type Bridge struct {
	hub    *Hub
	logger *slog.Logger
}

func NewBridge(hub *Hub, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{hub: hub, logger: logger}
}

func (b *Bridge) OnState(s simulator.State) {
	b.broadcast(TypeRunState, RunStateFromDriver(s))
}

func (b *Bridge) OnStep(r simulator.StepResult) {
	b.broadcast(TypeRunStep, StepFromDriver(r))
}

func (b *Bridge) OnSettingsChange(c simulator.SettingsChange) {
	b.broadcast(TypeSettingsChange, SettingsChangeFromDriver(c))
}

func (b *Bridge) OnSummary(s simulator.Summary) {
	b.broadcast(TypeSummaryUpdate, SummaryFromDriver(s))
}

// OnError reports a failed run to every client.
func (b *Bridge) OnError(err error) {
	b.broadcast(TypeRunError, RunErrorPayload{Error: err.Error()})
}

func (b *Bridge) broadcast(msgType string, payload any) {
	msg, err := NewEnvelope(msgType, payload)
	if err != nil {
		b.logger.Error("marshaling message", "type", msgType, "error", err)
		return
	}
	b.hub.Broadcast(msg)
}
