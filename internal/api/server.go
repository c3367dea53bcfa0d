package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"georefgo/pkg/version"
)

// NewServer creates and configures the HTTP server.
// metricsH may be nil when metrics are disabled. shutdown is called once a
// POST /api/shutdown response has been written.
func NewServer(addr string, tel *TelemetryHandler, geoH *GeorefHandler, cfg *ConfigHandler, events *EventsHandler, hub *Hub, metricsH http.Handler, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// 1. Health Endpoint
	mux.HandleFunc("GET /health", handleHealth)

	// 2. Version Endpoint
	mux.HandleFunc("GET /api/version", handleVersion)

	// 3. Georeference Endpoints
	mux.HandleFunc("GET /api/georef", geoH.HandleGeoref)
	mux.HandleFunc("POST /api/origin", geoH.HandleSetOrigin)
	mux.HandleFunc("POST /api/origin/here", geoH.HandleOriginHere)
	mux.HandleFunc("GET /api/sunsky", geoH.HandleSunSky)

	// 4. Sub-level Endpoints
	mux.HandleFunc("GET /api/sublevels", geoH.HandleSubLevels)
	mux.HandleFunc("GET /api/sublevels.geojson", geoH.HandleSubLevelsGeoJSON)
	mux.HandleFunc("POST /api/sublevels/current/jump", geoH.HandleJump)
	mux.HandleFunc("POST /api/sublevels/{index}", geoH.HandleSelectSubLevel)

	// 5. Viewer, Journal, Config
	mux.HandleFunc("GET /api/telemetry", tel.handleTelemetry)
	mux.Handle("GET /api/events", events)
	mux.HandleFunc("/api/config", cfg.HandleConfig)
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)

	// 6. Push and scrape
	mux.HandleFunc("GET /ws", hub.HandleWS)
	if metricsH != nil {
		mux.Handle("GET /metrics", metricsH)
	}

	// 7. Shutdown Endpoint
	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		// Call shutdown in a goroutine to allow response to flush
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.Current())
}

// errorResponse is the body of every non-2xx JSON reply.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
