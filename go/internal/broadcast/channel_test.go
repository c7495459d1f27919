package broadcast

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchplay/roomsync/go/internal/events"
)

type capture struct {
	mu   sync.Mutex
	envs []*events.Envelope
}

func (c *capture) handler(env *events.Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.envs = append(c.envs, env)
}

func (c *capture) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.envs)
}

func (c *capture) last() *events.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.envs) == 0 {
		return nil
	}
	return c.envs[len(c.envs)-1]
}

func TestChannelDeliversToOtherPeer(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	sender := NewChannel(bus, "ABC123", "peer-a")
	receiver := NewChannel(bus, "ABC123", "peer-b")

	var got capture
	require.NoError(t, receiver.Subscribe(got.handler))

	sender.Send(events.TypeChat, 0, events.ChatPayload{Text: "hello"})

	require.Eventually(t, func() bool { return got.count() == 1 }, time.Second, 5*time.Millisecond)
	env := got.last()
	assert.Equal(t, events.TypeChat, env.Type)
	assert.Equal(t, "peer-a", env.SenderID)
}

func TestChannelSuppressesSelfEcho(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	ch := NewChannel(bus, "ABC123", "peer-a")
	var got capture
	require.NoError(t, ch.Subscribe(got.handler))

	ch.Send(events.TypeChat, 0, events.ChatPayload{Text: "talking to myself"})

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, got.count(), "a peer must not receive its own events")
}

func TestChannelScopedByRoomCode(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	sender := NewChannel(bus, "ROOM01", "peer-a")
	other := NewChannel(bus, "ROOM02", "peer-b")

	var got capture
	require.NoError(t, other.Subscribe(got.handler))

	sender.Send(events.TypeGameUpdate, 1, events.GameUpdatePayload{})

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, got.count(), "events must not cross rooms")
}

func TestNoReplayForLateSubscriber(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	sender := NewChannel(bus, "ABC123", "peer-a")
	sender.Send(events.TypeGameUpdate, 1, events.GameUpdatePayload{})

	late := NewChannel(bus, "ABC123", "peer-b")
	var got capture
	require.NoError(t, late.Subscribe(got.handler))

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, got.count(), "late subscribers see no history")
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	sender := NewChannel(bus, "ABC123", "peer-a")
	receiver := NewChannel(bus, "ABC123", "peer-b")

	var got capture
	require.NoError(t, receiver.Subscribe(got.handler))

	sender.Send(events.TypeChat, 0, events.ChatPayload{Text: "one"})
	require.Eventually(t, func() bool { return got.count() == 1 }, time.Second, 5*time.Millisecond)

	receiver.Unsubscribe()
	sender.Send(events.TypeChat, 0, events.ChatPayload{Text: "two"})

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, got.count())
}

func TestMalformedEventIsDropped(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	receiver := NewChannel(bus, "ABC123", "peer-b")
	var got capture
	require.NoError(t, receiver.Subscribe(got.handler))

	require.NoError(t, bus.Publish(SubjectFor("ABC123"), []byte("not json")))

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, got.count())
}
