// Package tray shows the pointerzone system tray menu.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// State is the set of switches the menu shows.
type State struct {
	Enabled    bool
	ShowLayout bool
	EmitEvents bool
}

// Handlers receive menu actions. Nil fields are skipped. Handlers run on
// the menu goroutine with no tray lock held.
type Handlers struct {
	Toggle     func(enabled bool)
	ShowLayout func(show bool)
	EmitEvents func(emit bool)
	Settings   func()
	Quit       func()
}

// Tray is the menu plus the state it reflects.
type Tray struct {
	h Handlers

	mu       sync.Mutex
	state    State
	lastZone string
	items    struct {
		toggle, showLayout, emitEvents, lastZone *systray.MenuItem
	}
}

// New returns a tray for the given initial state. Call Run to show it.
func New(initial State, h Handlers) *Tray {
	return &Tray{state: initial, h: h}
}

// Run shows the menu and blocks until Quit.
func (t *Tray) Run() {
	systray.Run(t.build, func() {})
}

// Quit removes the tray icon and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) build() {
	systray.SetTitle("Pointerzone")
	systray.SetTooltip("Pointerzone zone events")

	t.mu.Lock()
	t.items.toggle = systray.AddMenuItem(toggleTitle(t.state.Enabled), "Toggle pointer detection")
	systray.AddSeparator()
	t.items.showLayout = systray.AddMenuItemCheckbox("Show zones", "Draw zone icons on the preview", t.state.ShowLayout)
	t.items.emitEvents = systray.AddMenuItemCheckbox("Emit events", "Run bindings on zone events", t.state.EmitEvents)
	systray.AddSeparator()
	t.items.lastZone = systray.AddMenuItem(lastTitle(t.lastZone), "Last zone entered")
	t.items.lastZone.Disable()
	items := t.items
	t.mu.Unlock()

	systray.AddSeparator()
	settings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	quit := systray.AddMenuItem("Quit", "Quit Pointerzone")

	go func() {
		for {
			select {
			case <-items.toggle.ClickedCh:
				v := t.flip(func(s *State) *bool { return &s.Enabled })
				items.toggle.SetTitle(toggleTitle(v))
				call(t.h.Toggle, v)
			case <-items.showLayout.ClickedCh:
				call(t.h.ShowLayout, check(items.showLayout, t.flip(func(s *State) *bool { return &s.ShowLayout })))
			case <-items.emitEvents.ClickedCh:
				call(t.h.EmitEvents, check(items.emitEvents, t.flip(func(s *State) *bool { return &s.EmitEvents })))
			case <-settings.ClickedCh:
				if t.h.Settings != nil {
					t.h.Settings()
				}
			case <-quit.ClickedCh:
				if t.h.Quit != nil {
					t.h.Quit()
				}
				systray.Quit()
				return
			}
		}
	}()
}

// flip inverts the switch picked by field and returns its new value.
func (t *Tray) flip(field func(*State) *bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := field(&t.state)
	*p = !*p
	return *p
}

func check(item *systray.MenuItem, v bool) bool {
	if v {
		item.Check()
	} else {
		item.Uncheck()
	}
	return v
}

func call(fn func(bool), v bool) {
	if fn != nil {
		fn(v)
	}
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

func lastTitle(zone string) string {
	if zone == "" {
		return "Last: none"
	}
	return "Last: " + zone
}

// SetLastZone updates the last entered zone shown in the menu.
func (t *Tray) SetLastZone(zone string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastZone = zone
	if t.items.lastZone != nil {
		t.items.lastZone.SetTitle(lastTitle(zone))
	}
}

// LastZone returns the last zone passed to SetLastZone.
func (t *Tray) LastZone() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastZone
}

// State returns the current switch positions.
func (t *Tray) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}
