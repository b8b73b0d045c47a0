package bus

import "time"

// Event is one notification on the bus. Kind is a dotted topic, for example
// "session.state_changed" or "wa.message"; subscribers select events by kind
// prefix. Payload carries the kind-specific value and may be nil.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
