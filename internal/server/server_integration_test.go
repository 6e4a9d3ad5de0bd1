package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/pointerzone/internal/hover"
	"github.com/ayusman/pointerzone/internal/store"
	"github.com/ayusman/pointerzone/internal/zone"
)

func TestAPI_LayoutAndBindingWorkflow(t *testing.T) {
	// Setup
	tmpDir := t.TempDir()
	s, err := store.New(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	ctrl := newFakeController()
	ctrl.store = s
	ctrl.specs = []zone.Spec{zone.NewSpec("btn1", 50, 50, 100, 100)}

	srv := New(Config{Store: s, Controller: ctrl})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	// 1. Save the layout in use
	resp, err := client.Post(ts.URL+"/api/layout/save", "application/json", bytes.NewBufferString(`{"name":"desk"}`))
	if err != nil {
		t.Fatalf("POST /api/layout/save error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var saved struct {
		ID        string `json:"id"`
		ZoneCount int    `json:"zone_count"`
	}
	json.NewDecoder(resp.Body).Decode(&saved)
	resp.Body.Close()
	if saved.ZoneCount != 1 || ctrl.LayoutID() != saved.ID {
		t.Errorf("saved = %+v, active = %q", saved, ctrl.LayoutID())
	}

	// 2. Saving the same name again conflicts
	resp, _ = client.Post(ts.URL+"/api/layout/save", "application/json", bytes.NewBufferString(`{"name":"desk"}`))
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate save status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
	resp.Body.Close()

	// 3. Create a stored layout through the CRUD API
	createBody := `{"name":"kiosk","zones":[{"id":"next","x":0,"y":0,"width":80,"height":80}]}`
	resp, err = client.Post(ts.URL+"/api/layouts", "application/json", bytes.NewBufferString(createBody))
	if err != nil {
		t.Fatalf("POST /api/layouts error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /api/layouts status = %d", resp.StatusCode)
	}
	var created struct {
		ID string `json:"id"`
	}
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	// 4. Bind an event to a zone
	bindBody := `{"zone_id":"next","event":"window-out","plugin_name":"webhook","action_name":"post","config":{"url":"http://localhost:9/hook"}}`
	resp, _ = client.Post(ts.URL+"/api/bindings", "application/json", bytes.NewBufferString(bindBody))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /api/bindings status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	bindings, err := s.Bindings().ListForEvent("next", store.EventExit)
	if err != nil || len(bindings) != 1 {
		t.Fatalf("ListForEvent() = %v, %v", bindings, err)
	}

	// 5. Activating goes through the controller
	resp, _ = client.Post(ts.URL+"/api/layouts/"+saved.ID+"/activate", "application/json", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("activate status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	resp.Body.Close()

	// 6. Delete the stored layout
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/layouts/"+created.ID, nil)
	resp, _ = client.Do(req)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	resp.Body.Close()

	resp, _ = client.Get(ts.URL + "/api/layouts/" + created.ID)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET after delete status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	resp.Body.Close()
}

func TestAPI_HealthCheck(t *testing.T) {
	srv := New(Config{})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var health struct {
		Status string `json:"status"`
		Uptime string `json:"uptime"`
	}
	json.NewDecoder(resp.Body).Decode(&health)

	if health.Status != "ok" {
		t.Errorf("status = %s, want ok", health.Status)
	}
}

// staticFrames serves one fixed frame per signal on its channel.
type staticFrames struct {
	data   []byte
	notify chan struct{}
}

func (f *staticFrames) WatchFrames() (<-chan struct{}, func()) { return f.notify, func() {} }
func (f *staticFrames) LatestFrame() ([]byte, uint64)         { return f.data, 1 }

func TestAPI_Stream(t *testing.T) {
	frames := &staticFrames{data: []byte("jpeg-bytes"), notify: make(chan struct{}, 1)}
	frames.notify <- struct{}{}

	ts := httptest.NewServer(New(Config{Frames: frames}))
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/stream")
	if err != nil {
		t.Fatalf("GET /api/stream error = %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Errorf("Content-Type = %q", ct)
	}

	r := bufio.NewReader(resp.Body)
	var header []string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("reading part header: %v", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		header = append(header, line)
	}
	if len(header) != 3 || header[0] != "--frame" || header[2] != "Content-Length: 10" {
		t.Errorf("part header = %q", header)
	}

	body := make([]byte, 10)
	if _, err := io.ReadFull(r, body); err != nil {
		t.Fatalf("reading part body: %v", err)
	}
	if string(body) != "jpeg-bytes" {
		t.Errorf("part body = %q", body)
	}
}

func TestAPI_EventsWebSocket(t *testing.T) {
	hub := NewEventHub()
	ts := httptest.NewServer(New(Config{Events: hub}))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	ts0 := time.UnixMilli(1700000000123)
	hub.Publish(hover.Event{Type: hover.Enter, ZoneID: "btn1", Timestamp: ts0})
	hub.Publish(hover.Event{Type: hover.Exit, ZoneID: "btn1", Timestamp: ts0.Add(time.Second)})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msgs []EventMessage
	for i := 0; i < 2; i++ {
		var m EventMessage
		if err := conn.ReadJSON(&m); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		msgs = append(msgs, m)
	}

	if msgs[0].Type != "window-in" || msgs[0].Zone != "btn1" || msgs[0].Timestamp != 1700000000123 {
		t.Errorf("first message = %+v", msgs[0])
	}
	if msgs[1].Type != "window-out" {
		t.Errorf("second message = %+v", msgs[1])
	}
	if msgs[0].ID == "" || msgs[0].ID == msgs[1].ID {
		t.Errorf("message ids = %q, %q, want distinct", msgs[0].ID, msgs[1].ID)
	}

	hub.Close()
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected connection to close after hub.Close()")
	}
}
