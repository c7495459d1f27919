package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RoomStatus tracks the lifecycle of a room.
// Transitions only move forward: waiting -> playing -> ended.
type RoomStatus string

const (
	RoomStatusWaiting RoomStatus = "waiting"
	RoomStatusPlaying RoomStatus = "playing"
	RoomStatusEnded   RoomStatus = "ended"
)

// Room is the durable record backing a multiplayer session. The game_state
// blob is opaque here; its shape is owned by the game's rule engine. Whichever
// peer last applied a move owns the record at that moment - no peer owns it
// for its whole lifetime.
type Room struct {
	ID          uuid.UUID       `json:"id"`
	Code        string          `json:"room_code"`
	GameType    string          `json:"game_type"`
	GameState   json.RawMessage `json:"game_state"`
	StateSeq    uint64          `json:"state_seq"`
	PlayerCount int             `json:"player_count"`
	MaxPlayers  int             `json:"max_players"`
	Status      RoomStatus      `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
