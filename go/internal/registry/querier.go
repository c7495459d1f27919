package registry

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/couchplay/roomsync/go/internal/models"
)

// InsertRoomParams are the fields needed to create a room row.
type InsertRoomParams struct {
	ID           uuid.UUID
	Code         string
	GameType     string
	InitialState json.RawMessage
	MaxPlayers   int
}

// Querier defines what the repository needs from the database layer.
type Querier interface {
	InsertRoom(ctx context.Context, arg InsertRoomParams) (*models.Room, error)
	GetRoomByCode(ctx context.Context, code string) (*models.Room, error)
	JoinRoom(ctx context.Context, code string) (*models.Room, error)
	UpdateState(ctx context.Context, id uuid.UUID, state json.RawMessage, seq uint64) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.RoomStatus) error
	DeleteRoom(ctx context.Context, id uuid.UUID) error
}
