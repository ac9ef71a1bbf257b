package broadcast

import "context"

// Message carries one event of type T.
type Message[T any] struct {
	Data T
}

// Subscriber is one listener's view of a Broadcaster.
type Subscriber[T any] interface {
	// Receive returns the delivery channel. It is closed once the subscription
	// ends, whichever side ends it.
	Receive(ctx context.Context) <-chan Message[T]

	// Close ends the subscription. Calling it again is a no-op.
	Close() error
}

// Broadcaster fans events out to its subscribers. Publishing never waits on a
// slow listener.
type Broadcaster[T any] interface {
	// Subscribe registers a listener for events published from now on.
	// The subscription ends when ctx is done.
	Subscribe(ctx context.Context) Subscriber[T]

	Broadcast(ctx context.Context, msg Message[T]) error

	// Close ends every subscription. Later subscriptions start closed.
	Close() error
}
