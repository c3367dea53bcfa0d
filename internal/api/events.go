package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"georefgo/pkg/store"
)

const maxEventLimit = 500

// EventsHandler lists the origin and sub-level journal.
type EventsHandler struct {
	journal store.JournalStore
}

func NewEventsHandler(j store.JournalStore) *EventsHandler {
	return &EventsHandler{journal: j}
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultEventLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxEventLimit {
			writeError(w, http.StatusBadRequest, fmt.Errorf("limit must be in [1, %d]", maxEventLimit))
			return
		}
		limit = n
	}

	events, err := h.journal.RecentEvents(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to list events", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if events == nil {
		events = []store.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}
