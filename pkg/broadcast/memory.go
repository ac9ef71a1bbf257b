package broadcast

import (
	"context"
	"sync"
	"sync/atomic"
)

// MemoryBroadcaster delivers events to subscribers in the same process.
// A subscriber with a full buffer misses the event and stays subscribed.
type MemoryBroadcaster[T any] struct {
	// mu guards subs and closed. Channels are sent to under the read lock and
	// closed under the write lock, so a send never hits a closed channel.
	mu     sync.RWMutex
	subs   map[*memorySubscriber[T]]struct{}
	closed bool

	buffer  int
	dropped atomic.Int64
}

// NewMemoryBroadcaster creates a broadcaster whose subscribers buffer up to
// buffer events each (at least one).
func NewMemoryBroadcaster[T any](buffer int) *MemoryBroadcaster[T] {
	return &MemoryBroadcaster[T]{
		subs:   make(map[*memorySubscriber[T]]struct{}),
		buffer: max(buffer, 1),
	}
}

func (b *MemoryBroadcaster[T]) Subscribe(ctx context.Context) Subscriber[T] {
	sub := &memorySubscriber[T]{
		owner: b,
		ch:    make(chan Message[T], b.buffer),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(sub.ch)
		return sub
	}
	b.subs[sub] = struct{}{}
	sub.detach = context.AfterFunc(ctx, func() { _ = sub.Close() })

	return sub
}

// Broadcast hands msg to every subscriber that has room for it. It returns nil
// after Close.
func (b *MemoryBroadcaster[T]) Broadcast(_ context.Context, msg Message[T]) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		select {
		case sub.ch <- msg:
		default:
			b.dropped.Add(1)
		}
	}
	return nil
}

// Subscribers returns the number of open subscriptions
func (b *MemoryBroadcaster[T]) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped on a full buffer
func (b *MemoryBroadcaster[T]) Dropped() int64 {
	return b.dropped.Load()
}

func (b *MemoryBroadcaster[T]) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for sub := range b.subs {
		b.end(sub)
	}
	return nil
}

func (b *MemoryBroadcaster[T]) remove(sub *memorySubscriber[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; ok {
		b.end(sub)
	}
}

// end must be called with mu held for writing.
func (b *MemoryBroadcaster[T]) end(sub *memorySubscriber[T]) {
	delete(b.subs, sub)
	if sub.detach != nil {
		sub.detach()
	}
	close(sub.ch)
}

type memorySubscriber[T any] struct {
	owner  *MemoryBroadcaster[T]
	ch     chan Message[T]
	detach func() bool
}

func (s *memorySubscriber[T]) Receive(context.Context) <-chan Message[T] {
	return s.ch
}

func (s *memorySubscriber[T]) Close() error {
	s.owner.remove(s)
	return nil
}
