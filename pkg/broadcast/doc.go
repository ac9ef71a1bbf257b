// Package broadcast provides type-safe, non-blocking one-to-many message delivery.
//
// The client uses it at the presentation boundary: the session lifecycle publishes a
// terminal "session expired" event and any number of listeners (a CLI prompt, a UI
// router, a background agent supervisor) subscribe to it.
//
// Basic usage:
//
//	b := broadcast.NewMemoryBroadcaster[string](4)
//	defer b.Close()
//
//	sub := b.Subscribe(ctx) // unsubscribed automatically when ctx is cancelled
//	defer sub.Close()
//
//	b.Broadcast(ctx, broadcast.Message[string]{Data: "hello"})
//
//	for msg := range sub.Receive(ctx) {
//	    fmt.Println(msg.Data)
//	}
//
// Broadcast never blocks. When a subscriber's buffer is full the message is skipped
// for that subscriber (see MemoryBroadcaster.Dropped) and the subscription stays open.
package broadcast
