package api

import (
	"encoding/json"
	"net/http"
	"testing"
)

func createBinding(t *testing.T, h http.Handler, body map[string]any) bindingResponse {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/bindings", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp bindingResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestBindingHandler_Create(t *testing.T) {
	h := NewBindingHandler(newTestStore(t))

	b := createBinding(t, h, map[string]any{
		"zone_id":     "btn1",
		"plugin_name": "keyboard",
		"action_name": "keystroke",
		"config":      map[string]string{"key": "space"},
	})
	if b.ID == "" {
		t.Error("binding has no id")
	}
	if b.Event != "window-in" {
		t.Errorf("event = %q, want default window-in", b.Event)
	}
	if !b.Enabled {
		t.Error("binding should default to enabled")
	}
	if string(b.Config) != `{"key":"space"}` {
		t.Errorf("config = %s", b.Config)
	}
}

func TestBindingHandler_CreateValidation(t *testing.T) {
	h := NewBindingHandler(newTestStore(t))

	base := func() map[string]any {
		return map[string]any{
			"zone_id":     "btn1",
			"event":       "window-out",
			"plugin_name": "keyboard",
			"action_name": "keystroke",
		}
	}

	tests := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"missing zone", func(m map[string]any) { delete(m, "zone_id") }},
		{"missing plugin", func(m map[string]any) { delete(m, "plugin_name") }},
		{"missing action", func(m map[string]any) { delete(m, "action_name") }},
		{"unknown event", func(m map[string]any) { m["event"] = "click" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := base()
			tt.mutate(body)
			rec := doJSON(t, h, http.MethodPost, "/api/bindings", body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestBindingHandler_ListFiltersByZone(t *testing.T) {
	h := NewBindingHandler(newTestStore(t))

	for _, z := range []string{"btn1", "btn2", "btn1"} {
		createBinding(t, h, map[string]any{"zone_id": z, "plugin_name": "webhook", "action_name": "post"})
	}

	rec := doJSON(t, h, http.MethodGet, "/api/bindings", nil)
	var all listBindingsResponse
	json.NewDecoder(rec.Body).Decode(&all)
	if len(all.Bindings) != 3 {
		t.Errorf("len(all) = %d, want 3", len(all.Bindings))
	}

	rec = doJSON(t, h, http.MethodGet, "/api/bindings?zone=btn1", nil)
	var filtered listBindingsResponse
	json.NewDecoder(rec.Body).Decode(&filtered)
	if len(filtered.Bindings) != 2 {
		t.Fatalf("len(filtered) = %d, want 2", len(filtered.Bindings))
	}
	for _, b := range filtered.Bindings {
		if b.ZoneID != "btn1" {
			t.Errorf("filtered binding for zone %q", b.ZoneID)
		}
	}
}

func TestBindingHandler_GetUpdateDelete(t *testing.T) {
	h := NewBindingHandler(newTestStore(t))
	b := createBinding(t, h, map[string]any{"zone_id": "btn1", "plugin_name": "webhook", "action_name": "post"})

	rec := doJSON(t, h, http.MethodGet, "/api/bindings/"+b.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPut, "/api/bindings/"+b.ID, map[string]any{
		"event":   "window-out",
		"enabled": false,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}
	var updated bindingResponse
	json.NewDecoder(rec.Body).Decode(&updated)
	if updated.Event != "window-out" || updated.Enabled {
		t.Errorf("updated = %+v", updated)
	}
	if updated.PluginName != "webhook" || updated.ZoneID != "btn1" {
		t.Errorf("omitted fields changed: %+v", updated)
	}

	rec = doJSON(t, h, http.MethodPut, "/api/bindings/"+b.ID, map[string]any{"event": "click"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad event update status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/bindings/"+b.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rec = doJSON(t, h, method, "/api/bindings/"+b.ID, map[string]any{})
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s after delete status = %d, want 404", method, rec.Code)
		}
	}
}

func TestBindingHandler_Routing(t *testing.T) {
	h := NewBindingHandler(newTestStore(t))

	rec := doJSON(t, h, http.MethodPatch, "/api/bindings", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("PATCH status = %d, want 405", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, "/api/bindings/a/b", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("nested path status = %d, want 404", rec.Code)
	}
}
