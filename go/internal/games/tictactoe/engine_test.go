package tictactoe

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchplay/roomsync/go/internal/rules"
)

func mustMove(t *testing.T, cell int) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(Move{Cell: cell})
	require.NoError(t, err)
	return data
}

func TestApplyFlipsTurn(t *testing.T) {
	e := &Engine{}
	initial, err := e.InitialState(2)
	require.NoError(t, err)

	res, err := e.Apply(initial, mustMove(t, 4), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TurnSeat)
	assert.False(t, res.Terminal)

	var st state
	require.NoError(t, json.Unmarshal(res.State, &st))
	assert.Equal(t, "X", st.Board[4])
	assert.Equal(t, 1, st.CurrentPlayer)
}

func TestApplyRejectsWrongTurn(t *testing.T) {
	e := &Engine{}
	initial, err := e.InitialState(2)
	require.NoError(t, err)

	_, err = e.Apply(initial, mustMove(t, 0), 1)
	assert.ErrorIs(t, err, rules.ErrIllegalMove)
}

func TestApplyRejectsOccupiedCell(t *testing.T) {
	e := &Engine{}
	initial, err := e.InitialState(2)
	require.NoError(t, err)

	res, err := e.Apply(initial, mustMove(t, 4), 0)
	require.NoError(t, err)

	_, err = e.Apply(res.State, mustMove(t, 4), 1)
	assert.ErrorIs(t, err, rules.ErrIllegalMove)
}

func TestApplyRejectsOutOfRange(t *testing.T) {
	e := &Engine{}
	initial, err := e.InitialState(2)
	require.NoError(t, err)

	_, err = e.Apply(initial, mustMove(t, 9), 0)
	assert.ErrorIs(t, err, rules.ErrIllegalMove)

	_, err = e.Apply(initial, mustMove(t, -1), 0)
	assert.ErrorIs(t, err, rules.ErrIllegalMove)
}

func TestWinDetection(t *testing.T) {
	e := &Engine{}
	st, err := e.InitialState(2)
	require.NoError(t, err)

	// X takes the top row, O plays along the middle row.
	moves := []struct {
		seat int
		cell int
	}{
		{0, 0}, {1, 3}, {0, 1}, {1, 4},
	}
	for _, m := range moves {
		res, err := e.Apply(st, mustMove(t, m.cell), m.seat)
		require.NoError(t, err)
		st = res.State
	}

	res, err := e.Apply(st, mustMove(t, 2), 0)
	require.NoError(t, err)
	assert.True(t, res.Terminal)
	require.NotNil(t, res.WinnerSeat)
	assert.Equal(t, 0, *res.WinnerSeat)

	// The game is over; no further move is legal.
	_, err = e.Apply(res.State, mustMove(t, 5), 1)
	assert.ErrorIs(t, err, rules.ErrIllegalMove)
}

func TestDraw(t *testing.T) {
	e := &Engine{}
	st, err := e.InitialState(2)
	require.NoError(t, err)

	// A full board with no line: X O X / X O O / O X X.
	moves := []struct {
		seat int
		cell int
	}{
		{0, 0}, {1, 1}, {0, 2}, {1, 4}, {0, 3}, {1, 5}, {0, 7}, {1, 6}, {0, 8},
	}
	var res *rules.Result
	for _, m := range moves {
		res, err = e.Apply(st, mustMove(t, m.cell), m.seat)
		require.NoError(t, err)
		st = res.State
	}
	assert.True(t, res.Terminal)
	assert.Nil(t, res.WinnerSeat)
}

func TestTimeoutMovePicksEmptyCell(t *testing.T) {
	e := &Engine{}
	initial, err := e.InitialState(2)
	require.NoError(t, err)

	res, err := e.Apply(initial, mustMove(t, 0), 0)
	require.NoError(t, err)

	move, ok := e.TimeoutMove(res.State, 1)
	require.True(t, ok)
	var m Move
	require.NoError(t, json.Unmarshal(move, &m))
	assert.Equal(t, 1, m.Cell, "first empty cell after 0 is taken")

	applied, err := e.Apply(res.State, move, 1)
	require.NoError(t, err, "the synthesized move must be legal")
	assert.Equal(t, 0, applied.TurnSeat)
}

func TestForfeit(t *testing.T) {
	e := &Engine{}
	initial, err := e.InitialState(2)
	require.NoError(t, err)

	res, err := e.Forfeit(initial, 0)
	require.NoError(t, err)
	assert.True(t, res.Terminal)
	require.NotNil(t, res.WinnerSeat)
	assert.Equal(t, 1, *res.WinnerSeat)
}
