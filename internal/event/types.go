package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "artifact.captured")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypeArtifactCaptured   = "artifact.captured"
	TypeArtifactEvicted    = "artifact.evicted"
	TypeArtifactDeleted    = "artifact.deleted"
	TypeArtifactVanished   = "artifact.vanished"
	TypeCaptureFailed      = "capture.failed"
	TypeQueueCleared       = "queue.cleared"
	TypeEraseFailed        = "erase.failed"
	TypeDerivativeFallback = "derivative.fallback"
)

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Queue Events
// -----------------------------------------------------------------------------

// ArtifactCapturedEvent is emitted after a capture is stored and enqueued.
type ArtifactCapturedEvent struct {
	baseEvent
	View string
	Path string
	Seq  uint64
}

// NewArtifactCapturedEvent creates an ArtifactCapturedEvent.
func NewArtifactCapturedEvent(view, path string, seq uint64) ArtifactCapturedEvent {
	return ArtifactCapturedEvent{
		baseEvent: newBaseEvent(TypeArtifactCaptured),
		View:      view,
		Path:      path,
		Seq:       seq,
	}
}

// ArtifactEvictedEvent is emitted when overflow pushes an artifact out.
type ArtifactEvictedEvent struct {
	baseEvent
	View   string
	Path   string
	Seq    uint64
	Erased bool // false when the secure erase failed
}

// NewArtifactEvictedEvent creates an ArtifactEvictedEvent.
func NewArtifactEvictedEvent(view, path string, seq uint64, erased bool) ArtifactEvictedEvent {
	return ArtifactEvictedEvent{
		baseEvent: newBaseEvent(TypeArtifactEvicted),
		View:      view,
		Path:      path,
		Seq:       seq,
		Erased:    erased,
	}
}

// ArtifactDeletedEvent is emitted when an artifact is deleted on request.
type ArtifactDeletedEvent struct {
	baseEvent
	View  string // empty when the path was not queued
	Path  string
	Found bool
}

// NewArtifactDeletedEvent creates an ArtifactDeletedEvent.
func NewArtifactDeletedEvent(view, path string, found bool) ArtifactDeletedEvent {
	return ArtifactDeletedEvent{
		baseEvent: newBaseEvent(TypeArtifactDeleted),
		View:      view,
		Path:      path,
		Found:     found,
	}
}

// ArtifactVanishedEvent is emitted when a queued file disappears without
// going through the queue.
type ArtifactVanishedEvent struct {
	baseEvent
	View string
	Path string
}

// NewArtifactVanishedEvent creates an ArtifactVanishedEvent.
func NewArtifactVanishedEvent(view, path string) ArtifactVanishedEvent {
	return ArtifactVanishedEvent{
		baseEvent: newBaseEvent(TypeArtifactVanished),
		View:      view,
		Path:      path,
	}
}

// CaptureFailedEvent is emitted when the capture source fails.
type CaptureFailedEvent struct {
	baseEvent
	View        string
	Message     string
	Remediation string
}

// NewCaptureFailedEvent creates a CaptureFailedEvent.
func NewCaptureFailedEvent(view, message, remediation string) CaptureFailedEvent {
	return CaptureFailedEvent{
		baseEvent:   newBaseEvent(TypeCaptureFailed),
		View:        view,
		Message:     message,
		Remediation: remediation,
	}
}

// QueueClearedEvent is emitted after a sequence is cleared.
type QueueClearedEvent struct {
	baseEvent
	View  string
	Count int
}

// NewQueueClearedEvent creates a QueueClearedEvent.
func NewQueueClearedEvent(view string, count int) QueueClearedEvent {
	return QueueClearedEvent{
		baseEvent: newBaseEvent(TypeQueueCleared),
		View:      view,
		Count:     count,
	}
}

// -----------------------------------------------------------------------------
// Erase and Derivative Events
// -----------------------------------------------------------------------------

// EraseFailedEvent is emitted when a secure erase could not remove a file.
type EraseFailedEvent struct {
	baseEvent
	Path   string
	Reason string
}

// NewEraseFailedEvent creates an EraseFailedEvent.
func NewEraseFailedEvent(path, reason string) EraseFailedEvent {
	return EraseFailedEvent{
		baseEvent: newBaseEvent(TypeEraseFailed),
		Path:      path,
		Reason:    reason,
	}
}

// DerivativeFallbackEvent is emitted when a transform failed and raw bytes
// were served instead.
type DerivativeFallbackEvent struct {
	baseEvent
	Kind   string
	Path   string
	Reason string
}

// NewDerivativeFallbackEvent creates a DerivativeFallbackEvent.
func NewDerivativeFallbackEvent(kind, path, reason string) DerivativeFallbackEvent {
	return DerivativeFallbackEvent{
		baseEvent: newBaseEvent(TypeDerivativeFallback),
		Kind:      kind,
		Path:      path,
		Reason:    reason,
	}
}
