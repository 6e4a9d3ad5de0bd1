// Command keyboard is a pointerzone plugin that presses a key combination
// when a bound zone event fires. It drives osascript on macOS and xdotool
// on Linux.
//
// Binding config:
//
//	{"key": "space", "modifiers": ["ctrl", "shift"]}
//
// params, when present, override config for a single request.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

type request struct {
	Event  string          `json:"event"`
	Zone   string          `json:"zone"`
	Action string          `json:"action"`
	Config json.RawMessage `json:"config"`
	Params json.RawMessage `json:"params"`
}

type response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type keystroke struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"`
}

// modifier holds the spelling of one modifier for each backend.
type modifier struct{ apple, xdo string }

var modifiers = map[string]modifier{
	"command": {"command down", "super"},
	"cmd":     {"command down", "super"},
	"super":   {"command down", "super"},
	"option":  {"option down", "alt"},
	"alt":     {"option down", "alt"},
	"control": {"control down", "ctrl"},
	"ctrl":    {"control down", "ctrl"},
	"shift":   {"shift down", "shift"},
}

// namedKeys maps key names to an AppleScript key code and an X keysym.
var namedKeys = map[string]struct {
	code   int
	keysym string
}{
	"return": {36, "Return"},
	"enter":  {36, "Return"},
	"tab":    {48, "Tab"},
	"space":  {49, "space"},
	"escape": {53, "Escape"},
	"left":   {123, "Left"},
	"right":  {124, "Right"},
	"down":   {125, "Down"},
	"up":     {126, "Up"},
}

var errUnsupportedOS = errors.New("keystrokes are not supported on " + runtime.GOOS)

func main() {
	var req request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		reply(fmt.Errorf("decode request: %w", err), nil)
		return
	}
	if req.Action != "keystroke" && req.Action != "shortcut" {
		reply(fmt.Errorf("unknown action: %s", req.Action), nil)
		return
	}

	k, err := parseKeystroke(req.Config, req.Params)
	if err != nil {
		reply(err, nil)
		return
	}
	argv, err := commandFor(runtime.GOOS, k)
	if err != nil {
		reply(err, nil)
		return
	}
	if out, err := exec.Command(argv[0], argv[1:]...).CombinedOutput(); err != nil {
		reply(fmt.Errorf("%s on %s: %w: %s", req.Event, req.Zone, err, out), nil)
		return
	}
	data, _ := json.Marshal(map[string]string{"zone": req.Zone, "key": k.Key})
	reply(nil, data)
}

func parseKeystroke(config, params json.RawMessage) (keystroke, error) {
	var k keystroke
	for _, raw := range []json.RawMessage{config, params} {
		if len(raw) == 0 {
			continue
		}
		if err := json.Unmarshal(raw, &k); err != nil {
			return k, fmt.Errorf("parse keystroke: %w", err)
		}
	}
	if k.Key == "" {
		return k, errors.New("key is required")
	}
	return k, nil
}

// commandFor returns the command line that presses k on goos.
// Unknown modifiers are dropped.
func commandFor(goos string, k keystroke) ([]string, error) {
	switch goos {
	case "darwin":
		return []string{"osascript", "-e", appleScript(k)}, nil
	case "linux":
		return []string{"xdotool", "key", "--clearmodifiers", xdoCombo(k)}, nil
	}
	return nil, errUnsupportedOS
}

func appleScript(k keystroke) string {
	var mods []string
	for _, m := range k.Modifiers {
		if mod, ok := modifiers[strings.ToLower(m)]; ok {
			mods = append(mods, mod.apple)
		}
	}

	press := fmt.Sprintf("keystroke %q", k.Key)
	if nk, ok := namedKeys[strings.ToLower(k.Key)]; ok {
		press = fmt.Sprintf("key code %d", nk.code)
	}

	script := `tell application "System Events" to ` + press
	if len(mods) > 0 {
		script += " using {" + strings.Join(mods, ", ") + "}"
	}
	return script
}

func xdoCombo(k keystroke) string {
	var parts []string
	for _, m := range k.Modifiers {
		if mod, ok := modifiers[strings.ToLower(m)]; ok {
			parts = append(parts, mod.xdo)
		}
	}
	key := k.Key
	if nk, ok := namedKeys[strings.ToLower(k.Key)]; ok {
		key = nk.keysym
	}
	return strings.Join(append(parts, key), "+")
}

func reply(err error, data json.RawMessage) {
	resp := response{Success: err == nil, Data: data}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
