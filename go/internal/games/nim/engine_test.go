package nim

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchplay/roomsync/go/internal/rules"
)

func mustMove(t *testing.T, take int) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(Move{Take: take})
	require.NoError(t, err)
	return data
}

func TestApplyTakesSticksAndFlipsTurn(t *testing.T) {
	e := &Engine{}
	initial, err := e.InitialState(2)
	require.NoError(t, err)

	res, err := e.Apply(initial, mustMove(t, 3), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TurnSeat)
	assert.False(t, res.Terminal)

	var st state
	require.NoError(t, json.Unmarshal(res.State, &st))
	assert.Equal(t, startingSticks-3, st.Remaining)
}

func TestApplyRejectsBadTake(t *testing.T) {
	e := &Engine{}
	initial, err := e.InitialState(2)
	require.NoError(t, err)

	for _, take := range []int{0, 4, -1} {
		_, err := e.Apply(initial, mustMove(t, take), 0)
		assert.ErrorIs(t, err, rules.ErrIllegalMove, "take=%d", take)
	}

	_, err = e.Apply(initial, mustMove(t, 1), 1)
	assert.ErrorIs(t, err, rules.ErrIllegalMove, "wrong turn")
}

func TestLastStickLoses(t *testing.T) {
	e := &Engine{}
	st, err := marshalState(&state{Remaining: 2, CurrentPlayer: 0})
	require.NoError(t, err)

	res, err := e.Apply(st, mustMove(t, 2), 0)
	require.NoError(t, err)
	assert.True(t, res.Terminal)
	require.NotNil(t, res.WinnerSeat)
	assert.Equal(t, 1, *res.WinnerSeat, "taking the last stick loses")
}

func TestCannotTakeMoreThanRemaining(t *testing.T) {
	e := &Engine{}
	st, err := marshalState(&state{Remaining: 2, CurrentPlayer: 0})
	require.NoError(t, err)

	_, err = e.Apply(st, mustMove(t, 3), 0)
	assert.ErrorIs(t, err, rules.ErrIllegalMove)
}

func TestTimeoutMoveTakesOne(t *testing.T) {
	e := &Engine{}
	initial, err := e.InitialState(2)
	require.NoError(t, err)

	move, ok := e.TimeoutMove(initial, 0)
	require.True(t, ok)

	res, err := e.Apply(initial, move, 0)
	require.NoError(t, err)

	var st state
	require.NoError(t, json.Unmarshal(res.State, &st))
	assert.Equal(t, startingSticks-1, st.Remaining)
}

func TestForfeit(t *testing.T) {
	e := &Engine{}
	initial, err := e.InitialState(2)
	require.NoError(t, err)

	res, err := e.Forfeit(initial, 1)
	require.NoError(t, err)
	assert.True(t, res.Terminal)
	require.NotNil(t, res.WinnerSeat)
	assert.Equal(t, 0, *res.WinnerSeat)
}
