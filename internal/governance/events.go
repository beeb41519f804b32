package governance

import "stakegov/core/events"

// Event adapts an AuditRecord to the core/events.Event interface so the
// daemon's websocket feed can subscribe to governance activity without a
// second notification path.
type Event struct {
	AuditRecord
}

var _ events.Event = Event{}

func (e Event) EventType() string { return string(e.AuditRecord.Event) }
