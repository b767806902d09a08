package driven

import "github.com/thomassicaud/teams-portal/internal/core/domain"

// EventSink receives progress events in emission order.
// Emit must not block for long; slow transports should buffer.
type EventSink interface {
	Emit(event domain.Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(event domain.Event)

// Emit calls f.
func (f EventSinkFunc) Emit(event domain.Event) {
	f(event)
}

// DiscardEvents is a sink that drops every event.
var DiscardEvents EventSink = EventSinkFunc(func(domain.Event) {})
