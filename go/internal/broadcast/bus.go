package broadcast

// Bus is the transport under a room channel: best-effort publish/subscribe
// with no persistence, no replay for late subscribers, and no ordering
// guarantee across senders. Each subscriber sees messages in its own local
// arrival order only.
type Bus interface {
	// Publish is non-blocking, fire-and-forget. Delivery is best effort.
	Publish(subject string, data []byte) error

	// Subscribe registers a handler for a subject. The handler is invoked
	// from the bus's delivery goroutine; it must not block.
	Subscribe(subject string, handler func(data []byte)) (Subscription, error)

	// Close tears down the transport connection.
	Close()
}

// Subscription is a handle to an active subscription.
type Subscription interface {
	Unsubscribe() error
}
