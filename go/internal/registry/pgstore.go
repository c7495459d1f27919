package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchplay/roomsync/go/internal/models"
	"github.com/couchplay/roomsync/go/internal/sqlutil"
)

const uniqueViolation = "23505"

const roomColumns = `id, room_code, game_type, game_state, state_seq, player_count, max_players, status, created_at, updated_at`

// PGStore implements Querier over a Postgres pool.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a Postgres-backed store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) InsertRoom(ctx context.Context, arg InsertRoomParams) (*models.Room, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO rooms (id, room_code, game_type, game_state, state_seq, player_count, max_players, status)
		VALUES ($1, $2, $3, $4, 0, 1, $5, 'waiting')
		RETURNING `+roomColumns,
		arg.ID, arg.Code, arg.GameType, arg.InitialState, arg.MaxPlayers,
	)
	room, err := scanRoom(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrCodeTaken
		}
		return nil, err
	}
	return room, nil
}

func (s *PGStore) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE room_code = $1`, code,
	)
	room, err := scanRoom(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	return room, err
}

// JoinRoom claims a seat transactionally: the row is locked, capacity and
// status are checked, and the player count is bumped. The room flips to
// playing when it fills.
func (s *PGStore) JoinRoom(ctx context.Context, code string) (*models.Room, error) {
	var room *models.Room
	err := sqlutil.Run(ctx, s.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`SELECT `+roomColumns+` FROM rooms WHERE room_code = $1 FOR UPDATE`, code,
		)
		current, err := scanRoom(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrRoomNotFound
		}
		if err != nil {
			return err
		}

		if current.Status == models.RoomStatusEnded {
			return ErrRoomEnded
		}
		if current.PlayerCount >= current.MaxPlayers {
			return ErrRoomFull
		}

		newCount := current.PlayerCount + 1
		status := current.Status
		if newCount == current.MaxPlayers && status == models.RoomStatusWaiting {
			status = models.RoomStatusPlaying
		}

		row = tx.QueryRow(ctx, `
			UPDATE rooms SET player_count = $1, status = $2, updated_at = now()
			WHERE id = $3
			RETURNING `+roomColumns,
			newCount, status, current.ID,
		)
		room, err = scanRoom(row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

// UpdateState is an unconditional overwrite; there is no compare-and-swap
// token. The state_seq column only informs late-join bootstrap.
func (s *PGStore) UpdateState(ctx context.Context, id uuid.UUID, state json.RawMessage, seq uint64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE rooms SET game_state = $1, state_seq = $2, updated_at = now()
		WHERE id = $3`,
		state, int64(seq), id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func (s *PGStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.RoomStatus) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE rooms SET status = $1, updated_at = now()
		WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func (s *PGStore) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	return err
}

func scanRoom(row pgx.Row) (*models.Room, error) {
	var room models.Room
	var seq int64
	if err := row.Scan(
		&room.ID,
		&room.Code,
		&room.GameType,
		&room.GameState,
		&seq,
		&room.PlayerCount,
		&room.MaxPlayers,
		&room.Status,
		&room.CreatedAt,
		&room.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if seq < 0 {
		return nil, fmt.Errorf("invalid state_seq %d", seq)
	}
	room.StateSeq = uint64(seq)
	return &room, nil
}
