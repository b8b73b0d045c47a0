package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/wabridge/wabridge/internal/bus"
)

// State represents a session lifecycle state. The string values appear
// verbatim in health and error payloads.
type State string

const (
	Uninitialized State = "uninitialized"
	Initializing  State = "initializing"
	QRPending     State = "qr_pending"
	AwaitingScan  State = "awaiting_scan"
	Authenticated State = "authenticated"
	Ready         State = "ready"
	Disconnected  State = "disconnected"
	Destroyed     State = "destroyed"
)

// validTransitions defines allowed state transitions. Destroyed is terminal
// and reachable from every state.
var validTransitions = map[State][]State{
	Uninitialized: {Initializing, Destroyed},
	Initializing:  {QRPending, Authenticated, Disconnected, Destroyed},
	QRPending:     {AwaitingScan, Authenticated, Disconnected, Destroyed},
	AwaitingScan:  {QRPending, Authenticated, Disconnected, Destroyed},
	Authenticated: {Ready, Disconnected, Destroyed},
	Ready:         {Disconnected, Destroyed},
	Disconnected:  {Initializing, Destroyed},
	Destroyed:     {},
}

// Machine tracks and enforces session lifecycle transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Uninitialized state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Uninitialized,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      "session.state_changed",
			Timestamp: time.Now(),
			Payload: StateChange{
				From: from,
				To:   to,
			},
		})
	}
	return nil
}

// StateChange is the payload for state change events.
type StateChange struct {
	From State `json:"from"`
	To   State `json:"to"`
}
