package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/couchplay/roomsync/go/internal/models"
	"github.com/couchplay/roomsync/go/internal/roomcode"
)

// createRoomAttempts bounds code-collision retries. Collisions in a 36^6
// space are rare enough that hitting the bound means something else is wrong.
const createRoomAttempts = 5

// Repository implements room record access: create with code generation,
// lookup, join, overwrite, delete. Writes are durable and visible to any
// peer that queries the registry directly; no history is kept beyond the
// latest row.
type Repository struct {
	querier Querier
}

// NewRepository creates a new room registry repository.
func NewRepository(querier Querier) *Repository {
	return &Repository{
		querier: querier,
	}
}

// CreateRoom generates a random room code and inserts the room, retrying on
// code collision. The creator occupies the first seat.
func (r *Repository) CreateRoom(ctx context.Context, gameType string, initialState json.RawMessage, maxPlayers int) (*models.Room, error) {
	for attempt := 0; attempt < createRoomAttempts; attempt++ {
		code, err := roomcode.Generate()
		if err != nil {
			return nil, fmt.Errorf("failed to generate room code: %w", err)
		}

		room, err := r.querier.InsertRoom(ctx, InsertRoomParams{
			ID:           uuid.New(),
			Code:         code,
			GameType:     gameType,
			InitialState: initialState,
			MaxPlayers:   maxPlayers,
		})
		if errors.Is(err, ErrCodeTaken) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create room: %w", err)
		}
		return room, nil
	}
	return nil, fmt.Errorf("failed to create room after %d attempts: %w", createRoomAttempts, ErrCodeTaken)
}

// GetRoomByCode fetches the latest room record. Used for late-join and
// reconnect bootstrap.
func (r *Repository) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	room, err := r.querier.GetRoomByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return room, nil
}

// JoinRoom claims a seat in the room or reports why it cannot be joined.
func (r *Repository) JoinRoom(ctx context.Context, code string) (*models.Room, error) {
	room, err := r.querier.JoinRoom(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to join room: %w", err)
	}
	return room, nil
}

// UpdateState overwrites the persisted game state.
func (r *Repository) UpdateState(ctx context.Context, id uuid.UUID, state json.RawMessage, seq uint64) error {
	if err := r.querier.UpdateState(ctx, id, state, seq); err != nil {
		return fmt.Errorf("failed to update room state: %w", err)
	}
	return nil
}

// UpdateStatus moves the room forward in its lifecycle.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.RoomStatus) error {
	if err := r.querier.UpdateStatus(ctx, id, status); err != nil {
		return fmt.Errorf("failed to update room status: %w", err)
	}
	return nil
}

// DeleteRoom removes the room record.
func (r *Repository) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	if err := r.querier.DeleteRoom(ctx, id); err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	return nil
}
