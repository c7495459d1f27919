package broadcast

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// MemoryBus is a simple in-process Bus for development and testing. It keeps
// the transport contract honest: delivery is asynchronous per subscriber,
// late subscribers see nothing that was sent before they subscribed, and a
// slow subscriber drops messages instead of blocking the sender.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[string]map[*memorySub]bool
	closed bool
}

type memorySub struct {
	bus     *MemoryBus
	subject string
	ch      chan []byte
	done    chan struct{}
}

// NewMemoryBus creates an in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		subs: make(map[string]map[*memorySub]bool),
	}
}

func (b *MemoryBus) Publish(subject string, data []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs[subject] {
		select {
		case sub.ch <- data:
		default:
			log.Warn().Str("subject", subject).Msg("subscriber buffer full, dropping message")
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(subject string, handler func(data []byte)) (Subscription, error) {
	sub := &memorySub{
		bus:     b,
		subject: subject,
		ch:      make(chan []byte, 64),
		done:    make(chan struct{}),
	}

	b.mu.Lock()
	if b.subs[subject] == nil {
		b.subs[subject] = make(map[*memorySub]bool)
	}
	b.subs[subject][sub] = true
	b.mu.Unlock()

	go func() {
		for {
			select {
			case <-sub.done:
				return
			case data := <-sub.ch:
				handler(data)
			}
		}
	}()

	return sub, nil
}

func (b *MemoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for subject, subs := range b.subs {
		for sub := range subs {
			close(sub.done)
		}
		delete(b.subs, subject)
	}
}

func (s *memorySub) Unsubscribe() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if subs, ok := s.bus.subs[s.subject]; ok {
		if subs[s] {
			delete(subs, s)
			close(s.done)
			if len(subs) == 0 {
				delete(s.bus.subs, s.subject)
			}
		}
	}
	return nil
}
