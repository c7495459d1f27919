package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/couchplay/roomsync/go/internal/broadcast"
	"github.com/couchplay/roomsync/go/internal/events"
	"github.com/couchplay/roomsync/go/internal/models"
	"github.com/couchplay/roomsync/go/internal/rules"
)

const (
	persistAttempts   = 3
	persistRetryDelay = 200 * time.Millisecond
	persistTimeout    = 5 * time.Second
)

// Coordinator owns the room/turn state machine for one peer's session. It
// applies local intents optimistically, broadcasts full-state snapshots,
// persists them to the registry in the background, and reconciles inbound
// remote updates by sequence number.
//
// One coordinator per session; all exported methods are safe for concurrent
// use.
type Coordinator struct {
	registry Registry
	bus      broadcast.Bus
	clock    clockwork.Clock
	sink     Sink
	cfg      Config

	// id identifies this peer on the broadcast channel so its own events
	// are not echoed back.
	id string

	mu       sync.Mutex
	phase    Phase
	room     *models.Room
	seat     *models.Seat
	engine   rules.Engine
	channel  *broadcast.Channel
	state    json.RawMessage
	seq      uint64
	turnSeat int
	deadline *time.Time
	winner   *int
	degraded bool
}

// New creates a coordinator in the Menu phase.
func New(reg Registry, bus broadcast.Bus, clock clockwork.Clock, sink Sink, cfg Config) *Coordinator {
	return &Coordinator{
		registry: reg,
		bus:      bus,
		clock:    clock,
		sink:     sink,
		cfg:      cfg,
		id:       uuid.New().String(),
		phase:    PhaseMenu,
	}
}

// Create opens a new room for the given game type and takes the first seat.
// The coordinator moves to Waiting until the room fills.
func (c *Coordinator) Create(ctx context.Context, gameType string) (string, error) {
	if err := c.enterTransient(PhaseCreating); err != nil {
		return "", err
	}

	engine, err := rules.Get(gameType)
	if err != nil {
		c.resetToMenu()
		return "", err
	}

	initial, err := engine.InitialState(engine.MaxPlayers())
	if err != nil {
		c.resetToMenu()
		return "", fmt.Errorf("failed to build initial state: %w", err)
	}

	room, err := c.registry.CreateRoom(ctx, gameType, initial, engine.MaxPlayers())
	if err != nil {
		c.resetToMenu()
		return "", err
	}

	channel := broadcast.NewChannel(c.bus, room.Code, c.id)
	if err := channel.Subscribe(c.handleEvent); err != nil {
		if derr := c.registry.DeleteRoom(ctx, room.ID); derr != nil {
			log.Warn().Err(derr).Str("room_code", room.Code).Msg("failed to clean up room after subscribe failure")
		}
		c.resetToMenu()
		return "", fmt.Errorf("failed to subscribe to room channel: %w", err)
	}

	turnSeat, err := engine.TurnSeat(initial)
	if err != nil {
		channel.Unsubscribe()
		c.resetToMenu()
		return "", fmt.Errorf("failed to read turn seat: %w", err)
	}

	c.mu.Lock()
	c.phase = PhaseWaiting
	c.room = room
	c.engine = engine
	c.channel = channel
	c.seat = &models.Seat{
		ID:             uuid.New(),
		DisplayName:    c.cfg.DisplayName,
		SeatIndex:      0,
		SkipsRemaining: c.cfg.MaxSkips,
	}
	c.state = initial
	c.seq = 0
	c.turnSeat = turnSeat
	c.pushSnapshotLocked()
	c.mu.Unlock()

	log.Info().Str("room_code", room.Code).Str("game_type", gameType).Msg("room created")
	return room.Code, nil
}

// Join claims a seat in an existing room, bootstraps the current state from
// the registry record, then announces the join on the channel. Subscription
// happens before the announce so the joiner cannot miss the host's response.
func (c *Coordinator) Join(ctx context.Context, code string) (*models.Seat, error) {
	if err := c.enterTransient(PhaseJoining); err != nil {
		return nil, err
	}

	room, err := c.registry.JoinRoom(ctx, code)
	if err != nil {
		c.resetToMenu()
		return nil, err
	}

	engine, err := rules.Get(room.GameType)
	if err != nil {
		c.resetToMenu()
		return nil, err
	}

	channel := broadcast.NewChannel(c.bus, room.Code, c.id)
	if err := channel.Subscribe(c.handleEvent); err != nil {
		c.resetToMenu()
		return nil, fmt.Errorf("failed to subscribe to room channel: %w", err)
	}

	turnSeat, err := engine.TurnSeat(room.GameState)
	if err != nil {
		channel.Unsubscribe()
		c.resetToMenu()
		return nil, fmt.Errorf("failed to read turn seat: %w", err)
	}

	seat := &models.Seat{
		ID:             uuid.New(),
		DisplayName:    c.cfg.DisplayName,
		SeatIndex:      room.PlayerCount - 1,
		SkipsRemaining: c.cfg.MaxSkips,
	}

	c.mu.Lock()
	c.room = room
	c.engine = engine
	c.channel = channel
	c.seat = seat
	c.state = room.GameState
	c.seq = room.StateSeq
	c.turnSeat = turnSeat
	if room.Status == models.RoomStatusPlaying {
		c.phase = PhasePlaying
	} else {
		c.phase = PhaseWaiting
	}
	seq := c.seq
	c.pushSnapshotLocked()
	c.mu.Unlock()

	channel.Send(events.TypePlayerJoined, seq, events.PlayerJoinedPayload{
		SeatID:      seat.ID.String(),
		DisplayName: seat.DisplayName,
		SeatIndex:   seat.SeatIndex,
		PlayerCount: room.PlayerCount,
	})

	log.Info().Str("room_code", code).Int("seat_index", seat.SeatIndex).Msg("joined room")
	return seat, nil
}

// SubmitIntent runs the optimistic apply path for a local move:
// validate, apply to the local view immediately, broadcast the full new
// state, persist in the background. A rejection (wrong turn, illegal move)
// is a silent no-op and is never surfaced to the remote peer.
func (c *Coordinator) SubmitIntent(ctx context.Context, move json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhasePlaying || c.seat == nil {
		return nil
	}
	if c.turnSeat != c.seat.SeatIndex {
		log.Debug().Int("turn_seat", c.turnSeat).Int("seat_index", c.seat.SeatIndex).Msg("refusing out-of-turn move")
		return nil
	}

	res, err := c.engine.Apply(c.state, move, c.seat.SeatIndex)
	if errors.Is(err, rules.ErrIllegalMove) {
		log.Debug().Str("room_code", c.room.Code).Msg("illegal move dropped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to apply move: %w", err)
	}

	c.advanceLocked(res)
	return nil
}

// SubmitTimeout applies the engine's default action for an expired turn.
// armedSeq is the sequence the timer was armed at; if the state has moved on
// since, the fire is stale and nothing happens (a late timer must not apply
// a second synthesized move). While the seat has skips left the engine's
// timeout move is used; after that the timeout is a forfeit.
func (c *Coordinator) SubmitTimeout(armedSeq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhasePlaying || c.seat == nil {
		return
	}
	if c.seq != armedSeq || c.turnSeat != c.seat.SeatIndex {
		return // turn already resolved
	}

	res := c.synthesizeLocked()
	if res == nil {
		return
	}

	log.Info().Str("room_code", c.room.Code).Int("seat_index", c.seat.SeatIndex).
		Int("skips_remaining", c.seat.SkipsRemaining).Msg("turn timed out")
	c.advanceLocked(res)
}

// SendChat broadcasts a chat line. Broadcast-only: chat is never persisted.
func (c *Coordinator) SendChat(text string) {
	channel, seat, seq := c.channelSeat()
	if channel == nil || seat == nil {
		return
	}
	channel.Send(events.TypeChat, seq, events.ChatPayload{
		SeatIndex:   seat.SeatIndex,
		DisplayName: seat.DisplayName,
		Text:        text,
		SentAt:      c.clock.Now(),
	})
}

// SendReaction broadcasts an emoji reaction.
func (c *Coordinator) SendReaction(emoji string) {
	channel, seat, seq := c.channelSeat()
	if channel == nil || seat == nil {
		return
	}
	channel.Send(events.TypeReaction, seq, events.ReactionPayload{
		SeatIndex: seat.SeatIndex,
		Emoji:     emoji,
	})
}

// SetTyping broadcasts a typing indicator.
func (c *Coordinator) SetTyping(typing bool) {
	channel, seat, seq := c.channelSeat()
	if channel == nil || seat == nil {
		return
	}
	channel.Send(events.TypeTyping, seq, events.TypingPayload{
		SeatIndex: seat.SeatIndex,
		Typing:    typing,
	})
}

// Leave emits a best-effort game_left broadcast, then deletes the room
// record. A failed delete leaves an orphaned row; there is no cleanup sweep.
func (c *Coordinator) Leave(ctx context.Context) {
	c.mu.Lock()
	room := c.room
	seat := c.seat
	channel := c.channel
	seq := c.seq
	c.phase = PhaseMenu
	c.room = nil
	c.seat = nil
	c.engine = nil
	c.channel = nil
	c.state = nil
	c.seq = 0
	c.turnSeat = 0
	c.deadline = nil
	c.winner = nil
	c.degraded = false
	c.pushSnapshotLocked()
	c.mu.Unlock()

	if channel == nil || room == nil {
		return
	}

	channel.Send(events.TypeGameLeft, seq, events.GameLeftPayload{
		SeatID:    seat.ID.String(),
		SeatIndex: seat.SeatIndex,
	})
	channel.Unsubscribe()

	if err := c.registry.DeleteRoom(ctx, room.ID); err != nil {
		log.Warn().Err(err).Str("room_code", room.Code).Msg("failed to delete room record; orphaned row remains")
	}
	log.Info().Str("room_code", room.Code).Msg("left room")
}

// Resync re-reads the registry record and resubscribes to the channel after
// a dropped subscription. The fetched state may lag the live peer by at most
// one turn; the next full-state broadcast corrects it. The local view never
// moves backwards.
func (c *Coordinator) Resync(ctx context.Context) error {
	c.mu.Lock()
	room := c.room
	channel := c.channel
	c.mu.Unlock()
	if room == nil || channel == nil {
		return fmt.Errorf("no active session to resync")
	}

	fetched, err := c.registry.GetRoomByCode(ctx, room.Code)
	if err != nil {
		return err
	}

	channel.Unsubscribe()
	if err := channel.Subscribe(c.handleEvent); err != nil {
		return fmt.Errorf("failed to resubscribe to room channel: %w", err)
	}

	c.mu.Lock()
	if fetched.StateSeq > c.seq {
		c.room = fetched
		c.state = fetched.GameState
		c.seq = fetched.StateSeq
		if ts, terr := c.engine.TurnSeat(fetched.GameState); terr == nil {
			c.turnSeat = ts
		}
		c.deadline = nil // unknown until the next broadcast
		c.applyStatusLocked(fetched.Status)
	}
	c.pushSnapshotLocked()
	c.mu.Unlock()
	return nil
}

// CurrentSnapshot returns the coordinator's present view.
func (c *Coordinator) CurrentSnapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// handleEvent reconciles one inbound broadcast event. Events arrive in this
// peer's local delivery order only; nothing is guaranteed across peers.
func (c *Coordinator) handleEvent(env *events.Envelope) {
	switch env.Type {
	case events.TypePlayerJoined:
		c.handlePlayerJoined(env)
	case events.TypeGameUpdate:
		c.handleGameUpdate(env)
	case events.TypeGameLeft:
		c.handleGameLeft(env)
	case events.TypeChat:
		var p events.ChatPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			log.Warn().Err(err).Msg("dropping malformed chat event")
			return
		}
		if c.sink != nil {
			c.sink.RenderChat(p)
		}
	case events.TypeReaction:
		var p events.ReactionPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			log.Warn().Err(err).Msg("dropping malformed reaction event")
			return
		}
		if c.sink != nil {
			c.sink.RenderReaction(p)
		}
	case events.TypeTyping:
		var p events.TypingPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			log.Warn().Err(err).Msg("dropping malformed typing event")
			return
		}
		if c.sink != nil {
			c.sink.RenderTyping(p)
		}
	default:
		log.Warn().Str("event_type", string(env.Type)).Msg("unknown event type - ignoring")
	}
}

func (c *Coordinator) handlePlayerJoined(env *events.Envelope) {
	var p events.PlayerJoinedPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		log.Warn().Err(err).Msg("dropping malformed player_joined event")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.room == nil {
		return
	}

	if p.PlayerCount > c.room.PlayerCount {
		c.room.PlayerCount = p.PlayerCount
	}

	log.Info().Str("room_code", c.room.Code).Str("display_name", p.DisplayName).
		Int("player_count", c.room.PlayerCount).Msg("player joined")

	// The host watches the room fill and opens play with the first turn
	// deadline, re-broadcasting the full state so everyone starts aligned.
	if c.phase == PhaseWaiting && c.room.PlayerCount >= c.room.MaxPlayers {
		c.phase = PhasePlaying
		c.room.Status = models.RoomStatusPlaying
		c.seq++
		d := c.clock.Now().Add(c.cfg.TurnTimeout)
		c.deadline = &d
		c.broadcastStateLocked()
		c.persistLocked(true)
	}

	c.pushSnapshotLocked()
}

func (c *Coordinator) handleGameUpdate(env *events.Envelope) {
	var p events.GameUpdatePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		log.Warn().Err(err).Msg("dropping malformed game_update event")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.room == nil {
		return
	}

	// A remote state only replaces ours when its sequence advances past our
	// local one, so a racing or replayed broadcast cannot roll us back.
	if env.Seq <= c.seq {
		log.Debug().Uint64("inbound_seq", env.Seq).Uint64("local_seq", c.seq).Msg("stale game_update ignored")
		return
	}

	c.seq = env.Seq
	c.state = p.State
	c.turnSeat = p.TurnSeat
	c.deadline = p.Deadline
	c.winner = p.WinnerSeat
	if p.Status != "" {
		c.applyStatusLocked(models.RoomStatus(p.Status))
	}

	c.pushSnapshotLocked()
}

func (c *Coordinator) handleGameLeft(env *events.Envelope) {
	var p events.GameLeftPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		log.Warn().Err(err).Msg("dropping malformed game_left event")
		return
	}

	c.mu.Lock()
	if c.room == nil {
		c.mu.Unlock()
		return
	}
	log.Info().Str("room_code", c.room.Code).Int("seat_index", p.SeatIndex).Msg("player left")
	c.phase = PhaseEnded
	c.room.Status = models.RoomStatusEnded
	c.deadline = nil
	c.pushSnapshotLocked()
	sink := c.sink
	c.mu.Unlock()

	if sink != nil {
		sink.Notify("a player left the room")
	}
}

// advanceLocked commits an accepted engine result: bump the sequence, update
// the local view, broadcast the full state, persist in the background.
func (c *Coordinator) advanceLocked(res *rules.Result) {
	c.seq++
	c.state = res.State
	c.turnSeat = res.TurnSeat
	c.winner = res.WinnerSeat

	statusChanged := false
	if res.Terminal {
		c.phase = PhaseEnded
		c.room.Status = models.RoomStatusEnded
		c.deadline = nil
		statusChanged = true
	} else {
		d := c.clock.Now().Add(c.cfg.TurnTimeout)
		c.deadline = &d
	}

	c.broadcastStateLocked()
	c.persistLocked(statusChanged)
	c.pushSnapshotLocked()
}

// synthesizeLocked produces the engine result for an expired turn.
func (c *Coordinator) synthesizeLocked() *rules.Result {
	if c.seat.SkipsRemaining > 0 {
		if move, ok := c.engine.TimeoutMove(c.state, c.seat.SeatIndex); ok {
			res, err := c.engine.Apply(c.state, move, c.seat.SeatIndex)
			if err == nil {
				c.seat.SkipsRemaining--
				return res
			}
			log.Warn().Err(err).Msg("synthesized timeout move rejected; forfeiting")
		}
	}

	res, err := c.engine.Forfeit(c.state, c.seat.SeatIndex)
	if err != nil {
		log.Error().Err(err).Str("room_code", c.room.Code).Msg("failed to forfeit timed-out seat")
		return nil
	}
	return res
}

func (c *Coordinator) broadcastStateLocked() {
	status := ""
	if c.room != nil {
		status = string(c.room.Status)
	}
	c.channel.Send(events.TypeGameUpdate, c.seq, events.GameUpdatePayload{
		State:      c.state,
		Status:     status,
		TurnSeat:   c.turnSeat,
		Deadline:   c.deadline,
		WinnerSeat: c.winner,
	})
}

// persistLocked writes the current state to the registry in the background
// with bounded retry. Persistence failing while broadcast still works only
// degrades the session (the peers stay live); it is reported once.
func (c *Coordinator) persistLocked(statusChanged bool) {
	roomID := c.room.ID
	state := c.state
	seq := c.seq
	status := c.room.Status

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		opts := []retry.Option{
			retry.Attempts(persistAttempts),
			retry.Delay(persistRetryDelay),
			retry.DelayType(retry.BackOffDelay),
			retry.Context(ctx),
			retry.LastErrorOnly(true),
		}

		err := retry.Do(func() error {
			return c.registry.UpdateState(ctx, roomID, state, seq)
		}, opts...)
		if err == nil && statusChanged {
			err = retry.Do(func() error {
				return c.registry.UpdateStatus(ctx, roomID, status)
			}, opts...)
		}
		c.finishPersist(err)
	}()
}

func (c *Coordinator) finishPersist(err error) {
	c.mu.Lock()
	wasDegraded := c.degraded
	c.degraded = err != nil
	sink := c.sink
	c.mu.Unlock()

	if err != nil {
		log.Warn().Err(err).Msg("failed to persist game state; broadcast continues")
		if !wasDegraded && sink != nil {
			sink.Notify("saving game state is failing; live play continues")
		}
	}
}

func (c *Coordinator) applyStatusLocked(status models.RoomStatus) {
	c.room.Status = status
	switch status {
	case models.RoomStatusPlaying:
		c.phase = PhasePlaying
	case models.RoomStatusEnded:
		c.phase = PhaseEnded
		c.deadline = nil
	}
}

func (c *Coordinator) snapshotLocked() Snapshot {
	snap := Snapshot{
		Phase:      c.phase,
		State:      c.state,
		TurnSeat:   c.turnSeat,
		Deadline:   c.deadline,
		Seq:        c.seq,
		WinnerSeat: c.winner,
		Degraded:   c.degraded,
	}
	if c.room != nil {
		snap.RoomCode = c.room.Code
		snap.GameType = c.room.GameType
		snap.Status = c.room.Status
		snap.PlayerCount = c.room.PlayerCount
		snap.MaxPlayers = c.room.MaxPlayers
	}
	if c.seat != nil {
		seat := *c.seat
		snap.Seat = &seat
	}
	return snap
}

func (c *Coordinator) pushSnapshotLocked() {
	if c.sink != nil {
		c.sink.RenderSnapshot(c.snapshotLocked())
	}
}

func (c *Coordinator) enterTransient(next Phase) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseMenu {
		return fmt.Errorf("cannot enter %s from phase %q", next, c.phase)
	}
	c.phase = next
	return nil
}

func (c *Coordinator) resetToMenu() {
	c.mu.Lock()
	c.phase = PhaseMenu
	c.mu.Unlock()
}

func (c *Coordinator) channelSeat() (*broadcast.Channel, *models.Seat, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel, c.seat, c.seq
}
