package status

import (
	"testing"

	"github.com/wabridge/wabridge/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Uninitialized {
		t.Errorf("initial state = %s, want uninitialized", m.Current())
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Uninitialized, Initializing},
		{Initializing, QRPending},
		{Initializing, Authenticated},
		{QRPending, AwaitingScan},
		{AwaitingScan, QRPending},
		{AwaitingScan, Authenticated},
		{Authenticated, Ready},
		{Ready, Disconnected},
		{Disconnected, Initializing},
		{Ready, Destroyed},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine(nil)
			// Walk to the "from" state.
			walkTo(t, m, tt.from)
			if err := m.Transition(tt.to); err != nil {
				t.Errorf("Transition(%s -> %s) error = %v", tt.from, tt.to, err)
			}
			if m.Current() != tt.to {
				t.Errorf("state = %s, want %s", m.Current(), tt.to)
			}
		})
	}
}

func TestInvalidTransition(t *testing.T) {
	m := NewMachine(nil)
	if err := m.Transition(Ready); err == nil {
		t.Error("Transition(uninitialized -> ready) should fail")
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("session.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.Transition(Initializing); err != nil {
		t.Fatal(err)
	}

	evt := <-ch
	if evt.Kind != "session.state_changed" {
		t.Errorf("event kind = %q, want session.state_changed", evt.Kind)
	}
	change, ok := evt.Payload.(StateChange)
	if !ok {
		t.Fatalf("payload type = %T, want StateChange", evt.Payload)
	}
	if change.From != Uninitialized || change.To != Initializing {
		t.Errorf("change = %v -> %v, want uninitialized -> initializing", change.From, change.To)
	}
}

// TestAuthenticatedGatesReady verifies that the qr states cannot jump straight
// to ready. The readiness gate depends on authenticated always preceding
// ready, so a scan must land on authenticated first.
func TestAuthenticatedGatesReady(t *testing.T) {
	m := NewMachine(nil)
	walkTo(t, m, AwaitingScan)

	if err := m.Transition(Ready); err == nil {
		t.Fatal("Transition(awaiting_scan -> ready) should fail; must go through authenticated first")
	}
	if m.Current() != AwaitingScan {
		t.Errorf("state = %s, want awaiting_scan (should not have changed)", m.Current())
	}

	if err := m.Transition(Authenticated); err != nil {
		t.Fatalf("awaiting_scan -> authenticated: %v", err)
	}
	if err := m.Transition(Ready); err != nil {
		t.Fatalf("authenticated -> ready: %v", err)
	}
	if m.Current() != Ready {
		t.Errorf("state = %s, want ready", m.Current())
	}
}

// TestFirstRunLifecycle simulates the complete first-run lifecycle:
// uninitialized → initializing → qr_pending → awaiting_scan → authenticated → ready
func TestFirstRunLifecycle(t *testing.T) {
	m := NewMachine(nil)

	steps := []State{Initializing, QRPending, AwaitingScan, Authenticated, Ready}
	for _, s := range steps {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
	if m.Current() != Ready {
		t.Errorf("final state = %s, want ready", m.Current())
	}
}

// TestReturningUserLifecycle simulates a session that already has credentials:
// uninitialized → initializing → authenticated → ready
func TestReturningUserLifecycle(t *testing.T) {
	m := NewMachine(nil)

	steps := []State{Initializing, Authenticated, Ready}
	for _, s := range steps {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
	if m.Current() != Ready {
		t.Errorf("final state = %s, want ready", m.Current())
	}
}

// TestDisconnectReinitCycle verifies the reconnect loop:
// ready → disconnected → initializing → authenticated → ready
func TestDisconnectReinitCycle(t *testing.T) {
	m := NewMachine(nil)
	walkTo(t, m, Ready)

	steps := []State{Disconnected, Initializing, Authenticated, Ready}
	for _, s := range steps {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
	if m.Current() != Ready {
		t.Errorf("final state = %s, want ready", m.Current())
	}
}

// TestQRRegeneration verifies the qr_pending ⇄ awaiting_scan cycle for
// expiring codes.
func TestQRRegeneration(t *testing.T) {
	m := NewMachine(nil)
	walkTo(t, m, QRPending)

	steps := []State{AwaitingScan, QRPending, AwaitingScan}
	for _, s := range steps {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
}

// TestDestroyedIsTerminal verifies destroyed is reachable from every state
// and nothing leaves it.
func TestDestroyedIsTerminal(t *testing.T) {
	all := []State{Uninitialized, Initializing, QRPending, AwaitingScan, Authenticated, Ready, Disconnected}
	for _, from := range all {
		t.Run(string(from), func(t *testing.T) {
			m := NewMachine(nil)
			walkTo(t, m, from)
			if err := m.Transition(Destroyed); err != nil {
				t.Fatalf("%s -> destroyed: %v", from, err)
			}
			if err := m.Transition(Initializing); err == nil {
				t.Error("Transition(destroyed -> initializing) should fail")
			}
		})
	}
}

// walkTo is a helper that transitions the machine to a target state.
func walkTo(t *testing.T, m *Machine, target State) {
	t.Helper()
	paths := map[State][]State{
		Uninitialized: {},
		Initializing:  {Initializing},
		QRPending:     {Initializing, QRPending},
		AwaitingScan:  {Initializing, QRPending, AwaitingScan},
		Authenticated: {Initializing, Authenticated},
		Ready:         {Initializing, Authenticated, Ready},
		Disconnected:  {Initializing, Authenticated, Ready, Disconnected},
		Destroyed:     {Destroyed},
	}
	for _, s := range paths[target] {
		if err := m.Transition(s); err != nil {
			t.Fatalf("walkTo(%s): %v", target, err)
		}
	}
}
