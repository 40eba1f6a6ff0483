package stream

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cebartling/flightloop/internal/clock"
	"github.com/cebartling/flightloop/internal/httputil"
	"github.com/cebartling/flightloop/internal/metrics"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second

	// statePollInterval controls how quickly clock changes made through
	// other connections or the REST API appear on this socket.
	statePollInterval = 100 * time.Millisecond
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The UI is served from the same origin; tooling like wscat sends
	// no Origin header at all.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// controlMessage is a clock command sent by the client.
//
//	{"action":"seek","value":510}
//	{"action":"speed","value":120}
//	{"action":"loop","value":1}
//	{"action":"play"}
type controlMessage struct {
	Action string  `json:"action"`
	Value  float64 `json:"value"`
}

// clockMessage is the state update pushed to the client whenever the clock
// changes, and immediately after every accepted command.
type clockMessage struct {
	Type string `json:"type"`
	clock.State
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// HandleControl serves the WebSocket clock control channel.
// GET /api/v1/ws
func (h *Handler) HandleControl(w http.ResponseWriter, r *http.Request) {
	ip := httputil.ClientIP(r, h.config.TrustProxy)
	if !h.limiter.acquire(ip) {
		metrics.IncStreamErrors("rate_limit")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "too many concurrent streams"})
		return
	}
	defer h.limiter.release(ip)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.IncStreamErrors("upgrade_error")
		h.logger.Warn("websocket upgrade failed", "remote_ip", ip, "error", err)
		return
	}
	defer conn.Close()

	metrics.IncStreamConnections("ws", "connect")
	metrics.IncStreamsActive()

	startTime := time.Now()
	h.logger.Info("ws control connected", "remote_ip", ip)

	defer func() {
		metrics.IncStreamConnections("ws", "disconnect")
		metrics.DecStreamsActive()
		h.logger.Info("ws control disconnected",
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		)
	}()

	// Reader goroutine: commands in, applied to the clock. The writer
	// below is the only goroutine writing to the connection, so command
	// acknowledgements flow through the applied channel.
	applied := make(chan struct{}, 8)
	errs := make(chan string, 8)
	done := make(chan struct{})

	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		})

		for {
			var msg controlMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					h.logger.Debug("ws read error", "remote_ip", ip, "error", err)
				}
				return
			}

			if reason := h.apply(msg); reason != "" {
				select {
				case errs <- reason:
				default:
				}
				continue
			}

			metrics.IncClockCommand(msg.Action)
			select {
			case applied <- struct{}{}:
			default:
			}
		}
	}()

	poll := time.NewTicker(statePollInterval)
	defer poll.Stop()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	writeState := func() error {
		state := h.clk.Snapshot()
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteJSON(clockMessage{Type: "clock", State: state})
	}

	// Initial state so the client can render controls immediately.
	if err := writeState(); err != nil {
		metrics.IncStreamErrors("send_error")
		return
	}
	lastVersion := h.clk.Snapshot().Version

	for {
		select {
		case <-r.Context().Done():
			return
		case <-done:
			return

		case <-applied:
			if err := writeState(); err != nil {
				metrics.IncStreamErrors("send_error")
				return
			}
			lastVersion = h.clk.Snapshot().Version

		case reason := <-errs:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(errorMessage{Type: "error", Error: reason}); err != nil {
				metrics.IncStreamErrors("send_error")
				return
			}

		case <-poll.C:
			if v := h.clk.Snapshot().Version; v != lastVersion {
				if err := writeState(); err != nil {
					metrics.IncStreamErrors("send_error")
					return
				}
				lastVersion = v
			}

		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// apply routes a control message to the clock. It returns a non-empty
// rejection reason for invalid commands.
func (h *Handler) apply(msg controlMessage) string {
	switch msg.Action {
	case "play":
		h.clk.Play()
	case "pause":
		h.clk.Pause()
	case "toggle":
		h.clk.TogglePlayback()
	case "reset":
		h.clk.Reset()
	case "seek":
		h.clk.Seek(msg.Value)
	case "speed":
		if err := h.clk.SetSpeed(msg.Value); err != nil {
			return err.Error()
		}
	case "loop":
		h.clk.SetLoop(msg.Value != 0)
	default:
		return "unknown action: " + msg.Action
	}
	return ""
}
