package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/selekta/portal-backend/internal/service"
	ws "github.com/selekta/portal-backend/internal/websocket"
)

const keepAliveInterval = 30 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// MonitorHandler streams session lifecycle events to admin dashboards over
// WebSocket. Events come off the Redis PubSub channel the services publish
// to, so every server instance sees every event.
type MonitorHandler struct {
	monitor  *service.Monitor
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(monitor *service.Monitor, log zerolog.Logger, allowedOrigins []string) *MonitorHandler {
	return &MonitorHandler{
		monitor:  monitor,
		log:      log.With().Str("component", "monitor_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// MonitorStream godoc
// WS /ws/v1/admin/monitor?token=...
// Upgrades to WebSocket and forwards live session events.
func (h *MonitorHandler) MonitorStream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	reqCtx := c.Request.Context()

	pubsub := h.monitor.Subscribe(reqCtx)
	defer pubsub.Close()
	events := pubsub.Channel()

	h.log.Info().Str("remote", c.ClientIP()).Msg("Admin attached to monitor stream")

	// Reader loop: relays client actions to the select loop below, which is
	// the connection's only writer (gorilla admits one writer at a time;
	// WriteControl frames are exempt). A read error means the client went
	// away, which also tears down the write loop.
	done := make(chan struct{})
	writerGone := make(chan struct{})
	defer close(writerGone)
	actions := make(chan ws.Action)
	go func() {
		defer close(done)
		for {
			var req ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &req); err != nil {
				return
			}
			select {
			case actions <- req.Action:
			case <-writerGone:
				return
			}
		}
	}()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-reqCtx.Done():
			return
		case <-done:
			h.log.Info().Str("remote", c.ClientIP()).Msg("Admin left monitor stream")
			return
		case action := <-actions:
			var err error
			if action == ws.ActionPing {
				err = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
			} else {
				err = ws.WriteError(conn, "unknown action")
			}
			if err != nil {
				return
			}
		case msg, ok := <-events:
			if !ok {
				return
			}
			err := ws.WriteTyped(conn, ws.SessionEventResponse{
				Event:   ws.EventSession,
				Payload: []byte(msg.Payload),
			})
			if err != nil {
				return
			}
		case <-keepAlive.C:
			deadline := time.Now().Add(10 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}
