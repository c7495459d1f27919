package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/couchplay/roomsync/go/internal/events"
	"github.com/couchplay/roomsync/go/internal/models"
)

// Phase is the coordinator's position in the session state machine:
// Menu -> Creating/Joining -> Waiting (host only) -> Playing -> Ended.
type Phase string

const (
	PhaseMenu     Phase = "menu"
	PhaseCreating Phase = "creating"
	PhaseJoining  Phase = "joining"
	PhaseWaiting  Phase = "waiting"
	PhasePlaying  Phase = "playing"
	PhaseEnded    Phase = "ended"
)

// Registry is what the coordinator needs from the room record store.
// Implemented by registry.Repository.
type Registry interface {
	CreateRoom(ctx context.Context, gameType string, initialState json.RawMessage, maxPlayers int) (*models.Room, error)
	GetRoomByCode(ctx context.Context, code string) (*models.Room, error)
	JoinRoom(ctx context.Context, code string) (*models.Room, error)
	UpdateState(ctx context.Context, id uuid.UUID, state json.RawMessage, seq uint64) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.RoomStatus) error
	DeleteRoom(ctx context.Context, id uuid.UUID) error
}

// Snapshot is the render contract pushed to the sink after every accepted
// change. State is the full opaque game state; Deadline is the shared turn
// deadline carried in the broadcast, so every peer computes the same
// remaining time.
type Snapshot struct {
	Phase       Phase
	RoomCode    string
	GameType    string
	Status      models.RoomStatus
	Seat        *models.Seat
	PlayerCount int
	MaxPlayers  int
	State       json.RawMessage
	TurnSeat    int
	Deadline    *time.Time
	Seq         uint64
	WinnerSeat  *int
	Degraded    bool
}

// Sink receives everything the coordinator wants rendered. Implementations
// must not call back into the coordinator synchronously; snapshots are
// delivered under the coordinator's lock.
type Sink interface {
	RenderSnapshot(snap Snapshot)
	RenderChat(p events.ChatPayload)
	RenderReaction(p events.ReactionPayload)
	RenderTyping(p events.TypingPayload)
	Notify(message string)
}

// Config holds per-session settings.
type Config struct {
	// DisplayName is shown to the other seats.
	DisplayName string

	// TurnTimeout is the per-turn countdown duration.
	TurnTimeout time.Duration

	// MaxSkips is how many expired turns a seat survives before a timeout
	// becomes a forfeit.
	MaxSkips int
}

// DefaultConfig returns default session settings.
func DefaultConfig() Config {
	return Config{
		DisplayName: "player",
		TurnTimeout: 30 * time.Second,
		MaxSkips:    2,
	}
}
