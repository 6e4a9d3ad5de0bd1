// Package hover tracks which zone the pointer occupies and reports transitions.
package hover

import (
	"time"

	"github.com/ayusman/pointerzone/internal/log"
)

// EventType is the kind of a hover transition.
type EventType string

// Event types carry the names used on the event bus.
const (
	Enter EventType = "window-in"
	Exit  EventType = "window-out"
)

// Event is a single zone transition.
type Event struct {
	Type      EventType `json:"type"`
	ZoneID    string    `json:"zone"`
	Timestamp time.Time `json:"timestamp"`
}

// Machine is the Idle / InZone state machine. It is not safe for concurrent
// use; the engine serializes access.
type Machine struct {
	active string
	now    func() time.Time
}

// NewMachine creates a machine in the Idle state.
func NewMachine() *Machine {
	return &Machine{now: time.Now}
}

// Active returns the zone occupied in the last update and whether one is occupied.
func (m *Machine) Active() (string, bool) {
	return m.active, m.active != ""
}

// Reset returns the machine to Idle without emitting anything.
func (m *Machine) Reset() {
	m.active = ""
}

// Update advances the machine with the ordered ids of the zones hit this frame.
// The first id is the frame's active zone. It returns the transition events:
// an exit for the previously occupied zone when it is left, and an enter for
// a newly occupied zone. Changing zones directly emits only the enter.
func (m *Machine) Update(hits []string) []Event {
	next := ""
	if len(hits) > 0 {
		next = hits[0]
	}
	if next == m.active {
		return nil
	}

	prev := m.active
	m.active = next
	ts := m.now()

	if next == "" {
		log.Debug("exit zone %s", prev)
		return []Event{{Type: Exit, ZoneID: prev, Timestamp: ts}}
	}
	log.Debug("into zone %s", next)
	return []Event{{Type: Enter, ZoneID: next, Timestamp: ts}}
}
