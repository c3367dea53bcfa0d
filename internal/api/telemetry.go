package api

import (
	"net/http"
	"sync"

	"georefgo/pkg/core"
	"georefgo/pkg/viewer"
)

// TelemetryResponse is the API response structure.
type TelemetryResponse struct {
	Frame       *core.Frame `json:"frame,omitempty"`
	ViewerState string      `json:"viewer_state"`
}

// TelemetryHandler keeps the latest frame for readers outside the
// scheduler goroutine.
type TelemetryHandler struct {
	mu          sync.RWMutex
	frame       *core.Frame
	viewerState viewer.State
}

func NewTelemetryHandler() *TelemetryHandler {
	return &TelemetryHandler{viewerState: viewer.StateDisconnected}
}

// Update implements core.TelemetrySink.
func (h *TelemetryHandler) Update(f *core.Frame) {
	cp := *f
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frame = &cp
}

// UpdateState updates the viewer state.
func (h *TelemetryHandler) UpdateState(s viewer.State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.viewerState = s
}

func (h *TelemetryHandler) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	resp := TelemetryResponse{
		Frame:       h.frame,
		ViewerState: string(h.viewerState),
	}
	h.mu.RUnlock()

	writeJSON(w, http.StatusOK, resp)
}
