package gateway

import (
	"encoding/json"
	"time"

	"github.com/couchplay/roomsync/go/internal/models"
)

// clientIntent is the wire shape of an intent from the presentation layer.
type clientIntent struct {
	Action   string          `json:"action"` // create|join|move|chat|reaction|typing|leave|resync
	GameType string          `json:"game_type,omitempty"`
	RoomCode string          `json:"room_code,omitempty"`
	Move     json.RawMessage `json:"move,omitempty"`
	Text     string          `json:"text,omitempty"`
	Emoji    string          `json:"emoji,omitempty"`
	Typing   bool            `json:"typing,omitempty"`
}

// serverMessage wraps everything sent down the socket.
type serverMessage struct {
	Type string `json:"type"` // snapshot|chat|reaction|typing|notice|error
	Data any    `json:"data"`
}

// snapshotView is the render payload pushed after every accepted change.
// TimeRemainingSec is computed at send time from the shared deadline.
type snapshotView struct {
	Phase            string          `json:"phase"`
	RoomCode         string          `json:"room_code,omitempty"`
	GameType         string          `json:"game_type,omitempty"`
	Status           string          `json:"status,omitempty"`
	Seat             *models.Seat    `json:"seat,omitempty"`
	PlayerCount      int             `json:"player_count"`
	MaxPlayers       int             `json:"max_players"`
	State            json.RawMessage `json:"state,omitempty"`
	TurnSeat         int             `json:"turn_seat"`
	Deadline         *time.Time      `json:"deadline,omitempty"`
	TimeRemainingSec int             `json:"time_remaining_sec"`
	Seq              uint64          `json:"seq"`
	WinnerSeat       *int            `json:"winner_seat,omitempty"`
	Degraded         bool            `json:"degraded"`
}

type noticeView struct {
	Message string `json:"message"`
}

type errorView struct {
	Message string `json:"message"`
}
