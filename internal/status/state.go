// Package status tracks the connection state of the WhatsApp event source.
package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/wppledger/internal/bus"
)

// State of the event source.
type State string

const (
	Booting      State = "BOOTING"
	Disabled     State = "DISABLED"
	AuthRequired State = "AUTH_REQUIRED"
	Connecting   State = "CONNECTING"
	Ready        State = "READY"
	Reconnecting State = "RECONNECTING"
	Error        State = "ERROR"
)

// DISABLED and AUTH_REQUIRED have no way out until the daemon restarts.
var transitions = map[State][]State{
	Booting:      {Disabled, AuthRequired, Connecting},
	Connecting:   {Ready, AuthRequired, Reconnecting, Error},
	Ready:        {Reconnecting, AuthRequired},
	Reconnecting: {Ready, Connecting, AuthRequired, Error},
	Error:        {Connecting},
}

// Snapshot is the state together with the time it was entered.
type Snapshot struct {
	State State
	Since time.Time
}

// Machine holds the source state. Changes are announced on the bus as
// source.status_changed with a StatusChange payload.
type Machine struct {
	mu    sync.RWMutex
	snap  Snapshot
	bus   *bus.Bus
	clock func() time.Time
}

func NewMachine(b *bus.Bus) *Machine {
	m := &Machine{bus: b, clock: time.Now}
	m.snap = Snapshot{State: Booting, Since: m.clock()}
	return m
}

func (m *Machine) Current() State {
	return m.Snapshot().State
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}

// Transition moves to the given state, or returns an error and leaves the
// state alone when the move is not allowed.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	from := m.snap.State
	if !slices.Contains(transitions[from], to) {
		m.mu.Unlock()
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	m.snap = Snapshot{State: to, Since: m.clock()}
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.Emit(bus.KindSourceStatus, StatusChange{From: from, To: to})
	}
	return nil
}

// StatusChange is the payload of source.status_changed.
type StatusChange struct {
	From State
	To   State
}
