package gateway

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/couchplay/roomsync/go/internal/broadcast"
	"github.com/couchplay/roomsync/go/internal/session"
	"github.com/couchplay/roomsync/go/internal/turntimer"
)

// Handler upgrades HTTP requests to WebSocket sessions. Every accepted
// connection gets its own session coordinator and turn supervisor; nothing is
// shared between clients except the registry and the broadcast bus.
type Handler struct {
	registry   session.Registry
	bus        broadcast.Bus
	clock      clockwork.Clock
	sessionCfg session.Config
	config     Config
	upgrader   websocket.Upgrader
}

// NewHandler creates a WebSocket session handler.
func NewHandler(reg session.Registry, bus broadcast.Bus, clock clockwork.Clock, sessionCfg session.Config, config Config) *Handler {
	return &Handler{
		registry:   reg,
		bus:        bus,
		clock:      clock,
		sessionCfg: sessionCfg,
		config:     config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
	}
}

// ServeHTTP handles the WebSocket upgrade and runs the connection pumps.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return
	}

	cfg := h.sessionCfg
	if name := strings.TrimSpace(r.URL.Query().Get("name")); name != "" {
		cfg.DisplayName = name
	}

	conn := &connection{
		id:          uuid.New().String(),
		ws:          ws,
		send:        make(chan []byte, 64),
		config:      h.config,
		connectedAt: time.Now(),
	}
	conn.coord = session.New(h.registry, h.bus, h.clock, conn, cfg)
	conn.sup = turntimer.New(h.clock, conn.coord)

	log.Info().Str("connection_id", conn.id).Str("display_name", cfg.DisplayName).Msg("WebSocket connection established")

	go conn.writePump()
	conn.RenderSnapshot(conn.coord.CurrentSnapshot())
	conn.readPump()
}
