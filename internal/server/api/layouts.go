package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/ayusman/pointerzone/internal/store"
)

// Activator swaps a stored layout into the running engine.
type Activator interface {
	ActivateLayout(ctx context.Context, id string) error
	LayoutID() string
}

// LayoutHandler handles HTTP requests for stored layouts.
//
//	GET    /api/layouts
//	POST   /api/layouts
//	GET    /api/layouts/{id}
//	PUT    /api/layouts/{id}
//	DELETE /api/layouts/{id}
//	POST   /api/layouts/{id}/activate
type LayoutHandler struct {
	store     *store.Store
	activator Activator
}

// NewLayoutHandler creates a LayoutHandler. activator may be nil, in which
// case activation is unavailable.
func NewLayoutHandler(s *store.Store, activator Activator) *LayoutHandler {
	return &LayoutHandler{store: s, activator: activator}
}

// ServeHTTP routes layout requests.
func (h *LayoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/api/layouts")

	switch len(parts) {
	case 0:
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case 1:
		id := parts[0]
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodPut:
			h.update(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case 2:
		if parts[1] != "activate" {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.activate(w, r, parts[0])
	default:
		http.NotFound(w, r)
	}
}

// Request and response types

type zoneJSON struct {
	ID           string   `json:"id"`
	X            int      `json:"x"`
	Y            int      `json:"y"`
	Width        int      `json:"width"`
	Height       int      `json:"height"`
	InactiveURI  string   `json:"inactive_uri,omitempty"`
	ActiveURI    string   `json:"active_uri,omitempty"`
	Transparency *float64 `json:"transparency,omitempty"`
}

type layoutRequest struct {
	Name  string     `json:"name"`
	Zones []zoneJSON `json:"zones"`
}

type layoutResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Active    bool       `json:"active"`
	Zones     []zoneJSON `json:"zones,omitempty"`
	CreatedAt string     `json:"created_at"`
	UpdatedAt string     `json:"updated_at"`
}

type listLayoutsResponse struct {
	Layouts []layoutResponse `json:"layouts"`
}

func (h *LayoutHandler) toResponse(l *store.Layout) layoutResponse {
	resp := layoutResponse{
		ID:        l.ID,
		Name:      l.Name,
		CreatedAt: l.CreatedAt.Format(timeFormat),
		UpdatedAt: l.UpdatedAt.Format(timeFormat),
	}
	if h.activator != nil {
		resp.Active = h.activator.LayoutID() == l.ID
	}
	for _, z := range l.Zones {
		resp.Zones = append(resp.Zones, zoneJSON{
			ID:           z.ZoneID,
			X:            z.X,
			Y:            z.Y,
			Width:        z.Width,
			Height:       z.Height,
			InactiveURI:  z.InactiveURI,
			ActiveURI:    z.ActiveURI,
			Transparency: z.Transparency,
		})
	}
	return resp
}

// zoneRecords validates the zones of a request. Unlike configuration, the API
// rejects a bad zone instead of skipping it so the caller sees the problem.
func zoneRecords(zones []zoneJSON) ([]store.ZoneRecord, error) {
	seen := make(map[string]bool, len(zones))
	records := make([]store.ZoneRecord, 0, len(zones))
	for i, z := range zones {
		switch {
		case z.ID == "":
			return nil, fmt.Errorf("zone %d: id is required", i)
		case seen[z.ID]:
			return nil, fmt.Errorf("zone %s: duplicate id", z.ID)
		case z.Width <= 0 || z.Height <= 0:
			return nil, fmt.Errorf("zone %s: size %dx%d must be positive", z.ID, z.Width, z.Height)
		}
		seen[z.ID] = true
		records = append(records, store.ZoneRecord{
			ZoneID:       z.ID,
			X:            z.X,
			Y:            z.Y,
			Width:        z.Width,
			Height:       z.Height,
			InactiveURI:  z.InactiveURI,
			ActiveURI:    z.ActiveURI,
			Transparency: z.Transparency,
		})
	}
	return records, nil
}

// list handles GET /api/layouts. Zones are not included.
func (h *LayoutHandler) list(w http.ResponseWriter, r *http.Request) {
	layouts, err := h.store.Layouts().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list layouts")
		return
	}

	response := listLayoutsResponse{Layouts: make([]layoutResponse, 0, len(layouts))}
	for _, l := range layouts {
		response.Layouts = append(response.Layouts, h.toResponse(l))
	}
	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/layouts/{id}.
func (h *LayoutHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	l, err := h.store.Layouts().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Layout not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get layout")
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(l))
}

// create handles POST /api/layouts.
func (h *LayoutHandler) create(w http.ResponseWriter, r *http.Request) {
	var req layoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	zones, err := zoneRecords(req.Zones)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	l := &store.Layout{ID: uuid.New().String(), Name: req.Name, Zones: zones}
	if err := h.store.Layouts().Create(l); err != nil {
		writeError(w, http.StatusConflict, "Failed to create layout")
		return
	}
	writeJSON(w, http.StatusCreated, h.toResponse(l))
}

// update handles PUT /api/layouts/{id}. The zone list is replaced as a whole.
// Updating the active layout re-applies it.
func (h *LayoutHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	l, err := h.store.Layouts().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Layout not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get layout")
		return
	}

	var req layoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	zones, err := zoneRecords(req.Zones)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name != "" {
		l.Name = req.Name
	}
	l.Zones = zones

	if err := h.store.Layouts().Update(l); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update layout")
		return
	}

	if h.activator != nil && h.activator.LayoutID() == id {
		if err := h.activator.ActivateLayout(r.Context(), id); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to apply layout")
			return
		}
	}
	writeJSON(w, http.StatusOK, h.toResponse(l))
}

// delete handles DELETE /api/layouts/{id}.
func (h *LayoutHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Layouts().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Layout not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete layout")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// activate handles POST /api/layouts/{id}/activate.
func (h *LayoutHandler) activate(w http.ResponseWriter, r *http.Request, id string) {
	if h.activator == nil {
		writeError(w, http.StatusServiceUnavailable, "Layout activation unavailable")
		return
	}
	if err := h.activator.ActivateLayout(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Layout not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to activate layout")
		return
	}

	l, err := h.store.Layouts().GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get layout")
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(l))
}
