package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/couchplay/roomsync/go/internal/events"
	"github.com/couchplay/roomsync/go/internal/session"
	"github.com/couchplay/roomsync/go/internal/turntimer"
)

// Config holds configuration for WebSocket connections.
type Config struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConfig returns default WebSocket configuration.
func DefaultConfig() Config {
	return Config{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// connection bridges one WebSocket client to its session coordinator. The
// connection is the coordinator's render sink: snapshots, chat, and notices
// flow out through the send channel; intents flow in through the read pump.
type connection struct {
	id     string
	ws     *websocket.Conn
	send   chan []byte
	coord  *session.Coordinator
	sup    *turntimer.Supervisor
	config Config

	connectedAt time.Time

	// closeMu orders queue against close: background persist goroutines may
	// still try to push a notice after the read pump exits.
	closeMu sync.Mutex
	closed  bool
}

// RenderSnapshot implements session.Sink. It re-arms the turn countdown and
// ships the view to the client. Called under the coordinator's lock, so it
// must not block: a slow client drops frames and is corrected by the next
// snapshot.
func (c *connection) RenderSnapshot(snap session.Snapshot) {
	c.sup.Observe(snap)

	view := snapshotView{
		Phase:            string(snap.Phase),
		RoomCode:         snap.RoomCode,
		GameType:         snap.GameType,
		Status:           string(snap.Status),
		Seat:             snap.Seat,
		PlayerCount:      snap.PlayerCount,
		MaxPlayers:       snap.MaxPlayers,
		State:            snap.State,
		TurnSeat:         snap.TurnSeat,
		Deadline:         snap.Deadline,
		TimeRemainingSec: int(c.sup.Remaining(snap) / time.Second),
		Seq:              snap.Seq,
		WinnerSeat:       snap.WinnerSeat,
		Degraded:         snap.Degraded,
	}
	c.queue("snapshot", view)
}

func (c *connection) RenderChat(p events.ChatPayload) {
	c.queue("chat", p)
}

func (c *connection) RenderReaction(p events.ReactionPayload) {
	c.queue("reaction", p)
}

func (c *connection) RenderTyping(p events.TypingPayload) {
	c.queue("typing", p)
}

func (c *connection) Notify(message string) {
	c.queue("notice", noticeView{Message: message})
}

func (c *connection) sendError(message string) {
	c.queue("error", errorView{Message: message})
}

func (c *connection) queue(msgType string, data any) {
	payload, err := json.Marshal(serverMessage{Type: msgType, Data: data})
	if err != nil {
		log.Error().Err(err).Str("msg_type", msgType).Msg("failed to marshal server message")
		return
	}
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- payload:
	default:
		log.Warn().Str("connection_id", c.id).Str("msg_type", msgType).Msg("send buffer full, dropping message")
	}
}

func (c *connection) shutdown() {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump reads client intents and routes them to the coordinator.
func (c *connection) readPump() {
	defer func() {
		c.sup.Stop()
		c.coord.Leave(context.Background())
		c.shutdown()
		c.ws.Close()
		log.Info().Str("connection_id", c.id).Msg("connection closed")
	}()

	c.ws.SetReadLimit(c.config.MaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.id).Msg("unexpected WebSocket close error")
			}
			return
		}
		c.handleIntent(message)
		c.ws.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	}
}

func (c *connection) handleIntent(message []byte) {
	var intent clientIntent
	if err := json.Unmarshal(message, &intent); err != nil {
		c.sendError("malformed intent")
		return
	}

	ctx := context.Background()
	switch intent.Action {
	case "create":
		code, err := c.coord.Create(ctx, intent.GameType)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		log.Info().Str("connection_id", c.id).Str("room_code", code).Msg("room created for client")
	case "join":
		if _, err := c.coord.Join(ctx, intent.RoomCode); err != nil {
			c.sendError(err.Error())
		}
	case "move":
		if err := c.coord.SubmitIntent(ctx, intent.Move); err != nil {
			c.sendError(err.Error())
		}
	case "chat":
		c.coord.SendChat(intent.Text)
	case "reaction":
		c.coord.SendReaction(intent.Emoji)
	case "typing":
		c.coord.SetTyping(intent.Typing)
	case "leave":
		c.coord.Leave(ctx)
	case "resync":
		if err := c.coord.Resync(ctx); err != nil {
			c.sendError(err.Error())
		}
	default:
		c.sendError("unknown action " + intent.Action)
	}
}

// writePump handles sending messages to the WebSocket connection.
func (c *connection) writePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", c.id).Msg("failed to write message to WebSocket")
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Str("connection_id", c.id).Msg("failed to send ping")
				return
			}
		}
	}
}
