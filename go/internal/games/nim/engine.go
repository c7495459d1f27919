package nim

import (
	"encoding/json"
	"fmt"

	"github.com/couchplay/roomsync/go/internal/rules"
)

// Engine implements misère nim: players alternate taking 1-3 sticks from a
// shared pile, and whoever takes the last stick loses.
type Engine struct{}

func init() {
	if err := rules.Register(&Engine{}); err != nil {
		panic(err)
	}
}

const startingSticks = 21

type state struct {
	Remaining     int  `json:"remaining"`
	CurrentPlayer int  `json:"current_player"`
	WinnerSeat    *int `json:"winner_seat,omitempty"`
	Over          bool `json:"over"`
}

// Move is the wire shape of a nim intent.
type Move struct {
	Take int `json:"take"`
}

func (e *Engine) GameType() string { return "nim" }

func (e *Engine) MaxPlayers() int { return 2 }

func (e *Engine) InitialState(maxPlayers int) (json.RawMessage, error) {
	return marshalState(&state{Remaining: startingSticks, CurrentPlayer: 0})
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
	if m.Take < 1 || m.Take > 3 || m.Take > st.Remaining {
		return nil, rules.ErrIllegalMove
	}

	st.Remaining -= m.Take
	if st.Remaining == 0 {
		st.Over = true
		winner := 1 - seat
		st.WinnerSeat = &winner
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

func (e *Engine) TimeoutMove(raw json.RawMessage, seat int) (json.RawMessage, bool) {
	st, err := unmarshalState(raw)
	if err != nil || st.Over {
		return nil, false
	}
	move, err := json.Marshal(Move{Take: 1})
	if err != nil {
		return nil, false
	}
	return move, true
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

func unmarshalState(raw json.RawMessage) (*state, error) {
	var st state
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal nim state: %w", err)
	}
	return &st, nil
}

func marshalState(st *state) (json.RawMessage, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal nim state: %w", err)
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
