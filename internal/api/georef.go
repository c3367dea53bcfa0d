package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"georefgo/pkg/core"
	"georefgo/pkg/geo"
	"georefgo/pkg/georef"
	"georefgo/pkg/stream"
	"georefgo/pkg/sublevel"
)

// Engine is what the handlers need from core.Engine. Mutations are queued
// to the scheduler goroutine; Snapshot is lock-free.
type Engine interface {
	Snapshot() *core.Snapshot
	SetOrigin(ctx context.Context, g geo.Geodetic) (georef.Snapshot, error)
	PlaceOriginAtViewer(ctx context.Context) (georef.Snapshot, error)
	SelectSubLevel(ctx context.Context, k int) error
	JumpToCurrentLevel(ctx context.Context) error
	RefreshOverrides(ctx context.Context) error
}

var errNotReady = errors.New("engine not initialized")

// GeorefHandler serves the origin, sub-level and sun endpoints.
type GeorefHandler struct {
	engine Engine
}

func NewGeorefHandler(e Engine) *GeorefHandler {
	return &GeorefHandler{engine: e}
}

// OriginRequest is the body of POST /api/origin.
type OriginRequest struct {
	Longitude *float64 `json:"longitude"`
	Latitude  *float64 `json:"latitude"`
	Height    *float64 `json:"height"`
}

// SubLevelsResponse lists the declared levels.
type SubLevelsResponse struct {
	Levels      []sublevel.Level `json:"levels"`
	ActiveIndex int              `json:"active_index"`
	ActiveID    string           `json:"active_id,omitempty"`
	Loaded      []string         `json:"loaded"`
}

func (h *GeorefHandler) snapshot(w http.ResponseWriter) (*core.Snapshot, bool) {
	s := h.engine.Snapshot()
	if s == nil {
		writeError(w, http.StatusServiceUnavailable, errNotReady)
		return nil, false
	}
	return s, true
}

// HandleGeoref returns the full published snapshot.
func (h *GeorefHandler) HandleGeoref(w http.ResponseWriter, r *http.Request) {
	if s, ok := h.snapshot(w); ok {
		writeJSON(w, http.StatusOK, s)
	}
}

// HandleSetOrigin moves the origin to the posted geodetic position.
func (h *GeorefHandler) HandleSetOrigin(w http.ResponseWriter, r *http.Request) {
	var req OriginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if req.Longitude == nil || req.Latitude == nil {
		writeError(w, http.StatusBadRequest, errors.New("longitude and latitude are required"))
		return
	}
	target := geo.Geodetic{Longitude: *req.Longitude, Latitude: *req.Latitude}
	if req.Height != nil {
		target.Height = *req.Height
	}

	snap, err := h.engine.SetOrigin(r.Context(), target)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleOriginHere moves the origin under the viewer.
func (h *GeorefHandler) HandleOriginHere(w http.ResponseWriter, r *http.Request) {
	snap, err := h.engine.PlaceOriginAtViewer(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleSubLevels lists the declared levels and the active one.
func (h *GeorefHandler) HandleSubLevels(w http.ResponseWriter, r *http.Request) {
	s, ok := h.snapshot(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, SubLevelsResponse{
		Levels:      s.Levels,
		ActiveIndex: s.ActiveIndex,
		ActiveID:    s.ActiveID,
		Loaded:      s.Loaded,
	})
}

// HandleSelectSubLevel activates the level at the path index.
func (h *GeorefHandler) HandleSelectSubLevel(w http.ResponseWriter, r *http.Request) {
	k, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid index %q", r.PathValue("index")))
		return
	}
	if err := h.engine.SelectSubLevel(r.Context(), k); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	h.HandleSubLevels(w, r)
}

// HandleJump re-applies the active level's origin.
func (h *GeorefHandler) HandleJump(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.JumpToCurrentLevel(r.Context()); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	h.HandleSubLevels(w, r)
}

// HandleSubLevelsGeoJSON exports the load radii as a FeatureCollection.
func (h *GeorefHandler) HandleSubLevelsGeoJSON(w http.ResponseWriter, r *http.Request) {
	s, ok := h.snapshot(w)
	if !ok {
		return
	}
	segments := stream.CircleSegments
	if v := r.URL.Query().Get("segments"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 3 || n > 1024 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("segments must be in [3, 1024]"))
			return
		}
		segments = n
	}

	data, err := stream.LevelsFeatureCollection(s.Levels, s.ActiveIndex, segments).MarshalJSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(data)
}

// HandleSunSky returns the sun position at the origin.
func (h *GeorefHandler) HandleSunSky(w http.ResponseWriter, r *http.Request) {
	s, ok := h.snapshot(w)
	if !ok {
		return
	}
	if s.Sun == nil {
		writeError(w, http.StatusNotFound, errors.New("sun position unavailable: disabled or origin not cartographic"))
		return
	}
	writeJSON(w, http.StatusOK, s.Sun)
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, georef.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, georef.ErrWrongPlacement), errors.Is(err, core.ErrNoViewer):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
