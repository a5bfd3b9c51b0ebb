// Package event provides a pub-sub event bus for decoupled inter-component
// communication in glimpse.
//
// The vault publishes queue and cache lifecycle events here; the CLI and any
// embedding UI subscribe without the core knowing about them.
//
// # Main Types
//
//   - [Event]: Interface that all events must implement, providing EventType() and Timestamp()
//   - [Bus]: Synchronous pub-sub event dispatcher with thread-safe operations
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Categories
//
// Queue:
//   - [ArtifactCapturedEvent]: a capture was stored and enqueued
//   - [ArtifactEvictedEvent]: overflow pushed the oldest artifact out
//   - [ArtifactDeletedEvent]: an artifact was deleted on request
//   - [ArtifactVanishedEvent]: a queued file disappeared out from under the queue
//   - [CaptureFailedEvent]: the OS capture primitive failed
//   - [QueueClearedEvent]: a sequence was cleared
//
// Erase and derivatives:
//   - [EraseFailedEvent]: a secure erase could not remove a file
//   - [DerivativeFallbackEvent]: raw bytes were served because a transform failed
//
// # Thread Safety
//
// The [Bus] type is safe for concurrent use. Handlers are called
// synchronously on the publishing goroutine, and a panicking handler is
// recovered so it cannot stop delivery to the others.
//
// # Basic Usage
//
//	bus := event.NewBus(logger)
//	id := bus.Subscribe(event.TypeArtifactEvicted, func(e event.Event) {
//	    ev := e.(event.ArtifactEvictedEvent)
//	    fmt.Println("evicted", ev.Path)
//	})
//	defer bus.Unsubscribe(id)
package event
