package broadcast

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/couchplay/roomsync/go/internal/events"
)

// Handler receives inbound envelopes from the room channel.
type Handler func(env *events.Envelope)

// Channel scopes a Bus to a single room code and handles envelope framing.
// Outbound sends are fire-and-forget; inbound delivery suppresses the
// sender's own echo by sender ID.
type Channel struct {
	bus      Bus
	code     string
	senderID string
	sub      Subscription
}

// SubjectFor maps a room code to its bus subject.
func SubjectFor(code string) string {
	return "room.events." + code
}

// NewChannel creates a channel for one room. senderID identifies this peer
// so its own events are not delivered back to it.
func NewChannel(bus Bus, code, senderID string) *Channel {
	return &Channel{
		bus:      bus,
		code:     code,
		senderID: senderID,
	}
}

// Send broadcasts an event to the room. It never blocks and never fails the
// caller: a lost broadcast is corrected by the next full-state update, so
// publish errors are only logged.
func (c *Channel) Send(typ events.Type, seq uint64, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("type", string(typ)).Msg("failed to marshal event payload")
		return
	}

	env := events.Envelope{
		EventID:  uuid.New().String(),
		Type:     typ,
		SenderID: c.senderID,
		Seq:      seq,
		SentAt:   time.Now(),
		Payload:  data,
	}

	envData, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Str("type", string(typ)).Msg("failed to marshal event envelope")
		return
	}

	if err := c.bus.Publish(SubjectFor(c.code), envData); err != nil {
		log.Warn().Err(err).Str("type", string(typ)).Str("room_code", c.code).Msg("broadcast send failed")
	}
}

// Subscribe starts delivering inbound events to handler, in local-arrival
// order. Events published before Subscribe are never seen; a peer joining
// late must bootstrap from the registry instead.
func (c *Channel) Subscribe(handler Handler) error {
	sub, err := c.bus.Subscribe(SubjectFor(c.code), func(data []byte) {
		var env events.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Warn().Err(err).Str("room_code", c.code).Msg("dropping malformed broadcast event")
			return
		}
		if env.SenderID == c.senderID {
			return // self echo
		}
		handler(&env)
	})
	if err != nil {
		return err
	}
	c.sub = sub
	return nil
}

// Unsubscribe stops inbound delivery. Safe to call when not subscribed.
func (c *Channel) Unsubscribe() {
	if c.sub != nil {
		if err := c.sub.Unsubscribe(); err != nil {
			log.Warn().Err(err).Str("room_code", c.code).Msg("failed to unsubscribe from room channel")
		}
		c.sub = nil
	}
}
