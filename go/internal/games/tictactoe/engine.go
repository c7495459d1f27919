package tictactoe

import (
	"encoding/json"
	"fmt"

	"github.com/couchplay/roomsync/go/internal/rules"
)

// Engine implements the tic-tac-toe rules. Seat 0 plays "X", seat 1 plays "O";
// seat 0 moves first.
type Engine struct{}

func init() {
	if err := rules.Register(&Engine{}); err != nil {
		panic(err)
	}
}

var marks = [2]string{"X", "O"}

type state struct {
	Board         [9]string `json:"board"`
	CurrentPlayer int       `json:"current_player"`
	WinnerSeat    *int      `json:"winner_seat,omitempty"`
	Over          bool      `json:"over"`
}

// Move is the wire shape of a tic-tac-toe intent.
type Move struct {
	Cell int `json:"cell"`
}

var winLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, // rows
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8}, // columns
	{0, 4, 8}, {2, 4, 6}, // diagonals
}

func (e *Engine) GameType() string { return "tictactoe" }

func (e *Engine) MaxPlayers() int { return 2 }

func (e *Engine) InitialState(maxPlayers int) (json.RawMessage, error) {
	return marshalState(&state{CurrentPlayer: 0})
}

func (e *Engine) Apply(raw, move json.RawMessage, seat int) (*rules.Result, error) {
	st, err := unmarshalState(raw)
	if err != nil {
		return nil, err
	}
	var m Move
	if err := json.Unmarshal(move, &m); err != nil {
		return nil, rules.ErrIllegalMove
	}

	if st.Over || seat != st.CurrentPlayer {
		return nil, rules.ErrIllegalMove
	}
	if m.Cell < 0 || m.Cell > 8 || st.Board[m.Cell] != "" {
		return nil, rules.ErrIllegalMove
	}

	st.Board[m.Cell] = marks[seat]
	if wins(st.Board, marks[seat]) {
		st.Over = true
		winner := seat
		st.WinnerSeat = &winner
	} else if full(st.Board) {
		st.Over = true // draw: no winner seat
	} else {
		st.CurrentPlayer = 1 - seat
	}

	return resultFrom(st)
}

func (e *Engine) TurnSeat(raw json.RawMessage) (int, error) {
	st, err := unmarshalState(raw)
	if err != nil {
		return 0, err
	}
	return st.CurrentPlayer, nil
}

// TimeoutMove auto-plays the first empty cell so a stalled turn still moves
// the game forward.
func (e *Engine) TimeoutMove(raw json.RawMessage, seat int) (json.RawMessage, bool) {
	st, err := unmarshalState(raw)
	if err != nil || st.Over {
		return nil, false
	}
	for i, cell := range st.Board {
		if cell == "" {
			move, err := json.Marshal(Move{Cell: i})
			if err != nil {
				return nil, false
			}
			return move, true
		}
	}
	return nil, false
}

func (e *Engine) Forfeit(raw json.RawMessage, seat int) (*rules.Result, error) {
	st, err := unmarshalState(raw)
	if err != nil {
		return nil, err
	}
	st.Over = true
	winner := 1 - seat
	st.WinnerSeat = &winner
	return resultFrom(st)
}

func wins(board [9]string, mark string) bool {
	for _, line := range winLines {
		if board[line[0]] == mark && board[line[1]] == mark && board[line[2]] == mark {
			return true
		}
	}
	return false
}

func full(board [9]string) bool {
	for _, cell := range board {
		if cell == "" {
			return false
		}
	}
	return true
}

func unmarshalState(raw json.RawMessage) (*state, error) {
	var st state
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tictactoe state: %w", err)
	}
	return &st, nil
}

func marshalState(st *state) (json.RawMessage, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tictactoe state: %w", err)
	}
	return data, nil
}

func resultFrom(st *state) (*rules.Result, error) {
	data, err := marshalState(st)
	if err != nil {
		return nil, err
	}
	return &rules.Result{
		State:      data,
		TurnSeat:   st.CurrentPlayer,
		Terminal:   st.Over,
		WinnerSeat: st.WinnerSeat,
	}, nil
}
