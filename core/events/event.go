package events

import "github.com/zibert/ACDM/core/types"

// Event represents a structured state change emitted by a native module.
type Event interface {
	EventType() string
}

// Typed is implemented by events that render into a broadcastable payload.
type Typed interface {
	Event
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Buffer collects events in emission order.
type Buffer struct {
	events []Event
}

// Emit implements the Emitter interface.
func (b *Buffer) Emit(e Event) {
	if e == nil {
		return
	}
	b.events = append(b.events, e)
}

// Events returns the buffered events.
func (b *Buffer) Events() []Event {
	return append([]Event(nil), b.events...)
}

// Reset drops buffered events.
func (b *Buffer) Reset() { b.events = nil }
