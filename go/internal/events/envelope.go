package events

import (
	"encoding/json"
	"time"
)

// Type identifies a broadcast event. These are the recurring wire types shared
// by every game module.
type Type string

const (
	TypePlayerJoined Type = "player_joined"
	TypeGameUpdate   Type = "game_update"
	TypeGameLeft     Type = "game_left"
	TypeReaction     Type = "reaction"
	TypeTyping       Type = "typing"
	TypeChat         Type = "chat"
)

// Envelope is the wire format for every broadcast event. Events are ephemeral:
// never stored, never replayed to late subscribers. Seq is the sender's state
// sequence at send time; receivers drop game updates that do not advance it.
type Envelope struct {
	EventID  string          `json:"event_id"`
	Type     Type            `json:"type"`
	SenderID string          `json:"sender_id"`
	Seq      uint64          `json:"seq"`
	SentAt   time.Time       `json:"sent_at"`
	Payload  json.RawMessage `json:"payload"`
}
