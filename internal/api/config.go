package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"georefgo/pkg/config"
	"georefgo/pkg/rebase"
	"georefgo/pkg/store"
)

// ConfigHandler reads and writes the runtime overrides.
type ConfigHandler struct {
	store  store.StateStore
	engine Engine
}

// NewConfigHandler creates a new ConfigHandler.
func NewConfigHandler(st store.StateStore, e Engine) *ConfigHandler {
	return &ConfigHandler{store: st, engine: e}
}

// ConfigResponse represents the config API response.
type ConfigResponse struct {
	Placement     string            `json:"placement"`
	UnitsPerMeter float64           `json:"units_per_meter"`
	LeftHanded    bool              `json:"left_handed"`
	Rebase        rebase.Settings   `json:"rebase"`
	SunSky        bool              `json:"sunsky_enabled"`
	Overrides     map[string]string `json:"overrides"`
}

// ConfigRequest holds override updates. Absent fields are left alone and
// an empty string removes the override.
type ConfigRequest map[string]*string

// HandleConfig is a unified handler for all config-related methods, facilitating CORS/OPTIONS.
func (h *ConfigHandler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.HandleGetConfig(w, r)
	case http.MethodPut, http.MethodPost:
		h.HandleSetConfig(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleGetConfig returns the effective configuration.
func (h *ConfigHandler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	s := h.engine.Snapshot()
	if s == nil {
		writeError(w, http.StatusServiceUnavailable, errNotReady)
		return
	}
	writeJSON(w, http.StatusOK, ConfigResponse{
		Placement:     string(s.Georeference.Placement),
		UnitsPerMeter: s.Georeference.Frame.UnitsPerMeter,
		LeftHanded:    s.Georeference.Frame.LeftHanded,
		Rebase:        s.RebaseSettings,
		SunSky:        s.Sun != nil,
		Overrides:     h.overrides(r.Context()),
	})
}

func (h *ConfigHandler) overrides(ctx context.Context) map[string]string {
	out := make(map[string]string)
	for key := range config.OverridableKeys {
		if val, ok := h.store.GetState(ctx, key); ok && val != "" {
			out[key] = val
		}
	}
	return out
}

// HandleSetConfig validates and stores overrides, then asks the engine to
// re-read them.
func (h *ConfigHandler) HandleSetConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req ConfigRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	keys := make([]string, 0, len(req))
	for key, val := range req {
		if !config.OverridableKeys[key] {
			writeError(w, http.StatusBadRequest, fmt.Errorf("%q is not overridable", key))
			return
		}
		if val != nil && *val != "" {
			norm, err := normalizeOverride(key, *val)
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			req[key] = &norm
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	ctx := r.Context()
	for _, key := range keys {
		val := req[key]
		if val == nil {
			continue
		}
		if *val == "" {
			err = h.store.DeleteState(ctx, key)
		} else {
			err = h.store.SetState(ctx, key, *val)
		}
		if err != nil {
			slog.Error("Failed to store override", "key", key, "error", err)
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}
	slog.Info("Config overrides updated", "keys", keys)

	if err := h.engine.RefreshOverrides(ctx); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	h.HandleGetConfig(w, r)
}

// normalizeOverride checks val and returns the form the config provider
// reads back.
func normalizeOverride(key, val string) (string, error) {
	switch key {
	case config.KeyMaxOriginDistance:
		d, err := config.ParseDistance(val)
		if err != nil {
			return "", fmt.Errorf("%s: %w", key, err)
		}
		if d <= 0 {
			return "", fmt.Errorf("%s must be positive", key)
		}
		return val, nil
	case config.KeyViewerSpeed:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 {
			return "", fmt.Errorf("%s must be a non-negative number", key)
		}
		return val, nil
	default:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return "", fmt.Errorf("%s must be true or false", key)
		}
		return strconv.FormatBool(b), nil
	}
}
