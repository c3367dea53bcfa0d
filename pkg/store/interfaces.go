package store

import (
	"context"
	"time"
)

// StateStore handles persistent application state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}

// Event kinds stored in the journal.
const (
	KindOrigin   = "origin"
	KindSubLevel = "sublevel"
)

// OriginEvent records one committed origin change.
type OriginEvent struct {
	ID        string     `json:"id"`
	SessionID string     `json:"session_id"`
	Revision  uint64     `json:"revision"`
	Cause     string     `json:"cause"` // "set_origin", "rebase", "sublevel", "config", ...
	Placement string     `json:"placement"`
	Longitude float64    `json:"longitude"`
	Latitude  float64    `json:"latitude"`
	Height    float64    `json:"height"`
	Floating  [3]float64 `json:"floating_origin"`
	CreatedAt time.Time  `json:"created_at"`
}

// Transition records one sub-level switch. An empty ID with index -1 means
// no level was active.
type Transition struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	FromID    string    `json:"from_id"`
	ToID      string    `json:"to_id"`
	FromIndex int       `json:"from_index"`
	ToIndex   int       `json:"to_index"`
	CreatedAt time.Time `json:"created_at"`
}

// Event is a journal row of either kind, newest first in listings.
type Event struct {
	Kind       string       `json:"kind"`
	Origin     *OriginEvent `json:"origin,omitempty"`
	Transition *Transition  `json:"transition,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// JournalStore appends and lists origin and sub-level events.
type JournalStore interface {
	AppendOriginEvent(ctx context.Context, e *OriginEvent) error
	AppendTransition(ctx context.Context, tr *Transition) error
	RecentEvents(ctx context.Context, limit int) ([]Event, error)
}
