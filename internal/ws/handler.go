package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"thermostat_cosim/internal/simulator"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Runner starts and cancels co-simulation runs on behalf of clients.
// Start returns an error when a run is already in progress.
type Runner interface {
	Start() error
	Cancel()
	State() simulator.State
}

// Handler manages WebSocket connections and routes messages to the runner.
type Handler struct {
	hub    *Hub
	runner Runner
	info   DataLoadedPayload
	logger *slog.Logger
}

func NewHandler(hub *Hub, runner Runner, info DataLoadedPayload, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{hub: hub, runner: runner, info: info, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:  h.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	h.hub.Register(client)
	go client.writePump()

	h.send(client, TypeDataLoaded, h.info)
	h.send(client, TypeRunState, RunStateFromDriver(h.runner.State()))

	h.readPump(client)
}

func (h *Handler) readPump(c *Client) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		h.handleMessage(c, msg)
	}
}

func (h *Handler) handleMessage(c *Client, msg []byte) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		h.logger.Warn("invalid message", "error", err)
		return
	}

	switch env.Type {
	case TypeRunStart:
		if err := h.runner.Start(); err != nil {
			h.send(c, TypeRunError, RunErrorPayload{Error: err.Error()})
		}

	case TypeRunCancel:
		h.runner.Cancel()

	default:
		h.logger.Warn("unknown message type", "type", env.Type)
	}
}

// send queues a message for one client without blocking.
func (h *Handler) send(c *Client, msgType string, payload any) {
	msg, err := NewEnvelope(msgType, payload)
	if err != nil {
		h.logger.Error("marshaling message", "type", msgType, "error", err)
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}
