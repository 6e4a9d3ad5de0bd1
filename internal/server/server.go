// Package server provides the HTTP server for the pointerzone engine.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/pointerzone/internal/app"
	"github.com/ayusman/pointerzone/internal/engine"
	"github.com/ayusman/pointerzone/internal/mask"
	"github.com/ayusman/pointerzone/internal/server/api"
	"github.com/ayusman/pointerzone/internal/store"
	"github.com/ayusman/pointerzone/internal/zone"
)

// maxBodySize bounds the request bodies the control endpoints accept.
const maxBodySize = 1 << 20

// Controller is the running engine as seen by the HTTP surface.
type Controller interface {
	Settings() engine.Settings
	SetColorRange(r mask.ColorRange) error
	SetShowLayout(v bool) error
	SetEmitEvents(v bool) error
	SetShowDebugRegion(v bool) error
	State() app.State

	LayoutSpecs() []zone.Spec
	LayoutID() string
	ApplyLayout(ctx context.Context, specs []zone.Spec) error
	ActivateLayout(ctx context.Context, id string) error
	SaveCurrentLayout(id, name string) (*store.Layout, error)
}

// FrameSource provides encoded preview frames.
type FrameSource interface {
	WatchFrames() (<-chan struct{}, func())
	LatestFrame() ([]byte, uint64)
}

// Config holds the server configuration.
type Config struct {
	StaticDir  string
	Store      *store.Store
	Controller Controller
	Frames     FrameSource
	Events     *EventHub
}

// Server represents the HTTP server for the pointerzone application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	http   *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.http = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if c := s.config.Controller; c != nil {
		s.mux.HandleFunc("/api/state", s.handleState)
		s.mux.HandleFunc("/api/settings", s.handleSettings)
		s.mux.HandleFunc("/api/color-target", s.handleColorTarget)
		s.mux.HandleFunc("/api/layout", s.handleLayout)
		if s.config.Store != nil {
			s.mux.HandleFunc("/api/layout/save", s.handleSaveLayout)
		}
	}

	if s.config.Store != nil {
		var activator api.Activator
		if s.config.Controller != nil {
			activator = s.config.Controller
		}
		layouts := api.NewLayoutHandler(s.config.Store, activator)
		s.mux.Handle("/api/layouts", layouts)
		s.mux.Handle("/api/layouts/", layouts)

		bindings := api.NewBindingHandler(s.config.Store)
		s.mux.Handle("/api/bindings", bindings)
		s.mux.Handle("/api/bindings/", bindings)
	}

	if s.config.Frames != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Frames))
	}

	if s.config.Events != nil {
		s.mux.Handle("/api/events", s.config.Events)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

// handleState handles GET /api/state.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.config.Controller.State())
}

type settingsRequest struct {
	ColorTarget     *mask.ColorRange `json:"color_target"`
	ShowLayout      *bool            `json:"show_layout"`
	EmitEvents      *bool            `json:"emit_events"`
	ShowDebugRegion *bool            `json:"show_debug_region"`
}

// handleSettings handles GET and PUT /api/settings. PUT applies only the
// fields present in the body.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	c := s.config.Controller
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, c.Settings())
	case http.MethodPut:
		var req settingsRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if req.ColorTarget != nil {
			if err := validateRange(*req.ColorTarget); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		}

		var errs []error
		if req.ColorTarget != nil {
			errs = append(errs, c.SetColorRange(*req.ColorTarget))
		}
		if req.ShowLayout != nil {
			errs = append(errs, c.SetShowLayout(*req.ShowLayout))
		}
		if req.EmitEvents != nil {
			errs = append(errs, c.SetEmitEvents(*req.EmitEvents))
		}
		if req.ShowDebugRegion != nil {
			errs = append(errs, c.SetShowDebugRegion(*req.ShowDebugRegion))
		}
		if err := errors.Join(errs...); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to persist settings")
			return
		}
		writeJSON(w, http.StatusOK, c.Settings())
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleColorTarget handles GET and PUT /api/color-target.
func (s *Server) handleColorTarget(w http.ResponseWriter, r *http.Request) {
	c := s.config.Controller
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, c.Settings().ColorRange)
	case http.MethodPut:
		var cr mask.ColorRange
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&cr); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if err := validateRange(cr); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := c.SetColorRange(cr); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to persist color target")
			return
		}
		writeJSON(w, http.StatusOK, c.Settings().ColorRange)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

var errRangeBounds = errors.New("color target values must be within 0-255")

// validateRange rejects values outside the 8-bit channel range. Inverted
// bounds are allowed; they select nothing.
func validateRange(r mask.ColorRange) error {
	for _, v := range []int{r.HueMin, r.HueMax, r.SatMin, r.SatMax} {
		if v < 0 || v > 255 {
			return errRangeBounds
		}
	}
	return nil
}

type layoutBody struct {
	LayoutID string      `json:"layout_id,omitempty"`
	Zones    []zone.Spec `json:"zones"`
	Skipped  []string    `json:"skipped,omitempty"`
}

// handleLayout handles GET and PUT /api/layout, the layout in use.
// PUT takes a JSON array of zones. Entries that do not decode or validate
// are skipped and reported; the rest are applied.
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	c := s.config.Controller
	switch r.Method {
	case http.MethodGet:
		specs := c.LayoutSpecs()
		if specs == nil {
			specs = []zone.Spec{}
		}
		writeJSON(w, http.StatusOK, layoutBody{LayoutID: c.LayoutID(), Zones: specs})
	case http.MethodPut:
		data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Failed to read body")
			return
		}
		specs, skipped, err := zone.ParseSpecs(data)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		valid := make([]zone.Spec, 0, len(specs))
		for _, sp := range specs {
			if err := sp.Validate(); err != nil {
				skipped = append(skipped, err)
				continue
			}
			valid = append(valid, sp)
		}

		if err := c.ApplyLayout(r.Context(), valid); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to apply layout")
			return
		}

		resp := layoutBody{Zones: c.LayoutSpecs()}
		if resp.Zones == nil {
			resp.Zones = []zone.Spec{}
		}
		for _, e := range skipped {
			resp.Skipped = append(resp.Skipped, e.Error())
		}
		writeJSON(w, http.StatusOK, resp)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSaveLayout handles POST /api/layout/save, storing the layout in use
// under a new name.
func (s *Server) handleSaveLayout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	l, err := s.config.Controller.SaveCurrentLayout(uuid.New().String(), req.Name)
	if err != nil {
		writeError(w, http.StatusConflict, "Failed to save layout")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":         l.ID,
		"name":       l.Name,
		"zone_count": len(l.Zones),
	})
}

// ListenAndServe starts the HTTP server on the given address. It returns
// http.ErrServerClosed after Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.http.Serve(ln)
}

// Shutdown gracefully stops a server started with ListenAndServe.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.config.Events != nil {
		s.config.Events.Close()
	}
	return s.http.Shutdown(ctx)
}
