package events

import (
	"encoding/json"
	"time"
)

// Event payload types shared between the session coordinator and the gateway.

// PlayerJoinedPayload is the payload for a player_joined event.
type PlayerJoinedPayload struct {
	SeatID      string `json:"seat_id"`
	DisplayName string `json:"display_name"`
	SeatIndex   int    `json:"seat_index"`
	PlayerCount int    `json:"player_count"`
}

// GameUpdatePayload is the payload for a game_update event. It always carries
// the full state snapshot, never a diff, so a laggard peer is corrected on the
// very next turn.
type GameUpdatePayload struct {
	State      json.RawMessage `json:"state"`
	Status     string          `json:"status"`
	TurnSeat   int             `json:"turn_seat"`
	Deadline   *time.Time      `json:"deadline,omitempty"`
	WinnerSeat *int            `json:"winner_seat,omitempty"`
}

// GameLeftPayload is the payload for a game_left event.
type GameLeftPayload struct {
	SeatID    string `json:"seat_id"`
	SeatIndex int    `json:"seat_index"`
}

// ChatPayload is the payload for a chat event.
type ChatPayload struct {
	SeatIndex   int       `json:"seat_index"`
	DisplayName string    `json:"display_name"`
	Text        string    `json:"text"`
	SentAt      time.Time `json:"sent_at"`
}

// ReactionPayload is the payload for a reaction event.
type ReactionPayload struct {
	SeatIndex int    `json:"seat_index"`
	Emoji     string `json:"emoji"`
}

// TypingPayload is the payload for a typing indicator event.
type TypingPayload struct {
	SeatIndex int  `json:"seat_index"`
	Typing    bool `json:"typing"`
}
