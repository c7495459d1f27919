package rules

import (
	"encoding/json"
	"errors"
)

// ErrIllegalMove rejects a move (wrong turn, occupied cell, out of range).
// The coordinator swallows it as a local no-op; it is never surfaced to the
// remote peer.
var ErrIllegalMove = errors.New("illegal move")

// Result is the outcome of applying a move to a game state.
type Result struct {
	State      json.RawMessage
	TurnSeat   int
	Terminal   bool
	WinnerSeat *int
}

// Engine is the per-game rule strategy injected into the session coordinator.
// Implementations must be pure over the opaque JSON state: same inputs, same
// outputs, no side effects.
type Engine interface {
	// GameType is the key the engine registers under (e.g. "tictactoe").
	GameType() string

	// MaxPlayers is the seat capacity for rooms of this game.
	MaxPlayers() int

	// InitialState builds the state for a freshly created room.
	InitialState(maxPlayers int) (json.RawMessage, error)

	// Apply maps (state, move, seat) to a new state, or ErrIllegalMove.
	Apply(state, move json.RawMessage, seat int) (*Result, error)

	// TurnSeat reports which seat owns the turn in the given state.
	TurnSeat(state json.RawMessage) (int, error)

	// TimeoutMove synthesizes the default action for a seat whose countdown
	// expired. ok is false when the game has no skip action and a timeout is
	// an immediate forfeit.
	TimeoutMove(state json.RawMessage, seat int) (json.RawMessage, bool)

	// Forfeit ends the game as a timeout loss for the given seat.
	Forfeit(state json.RawMessage, seat int) (*Result, error)
}
