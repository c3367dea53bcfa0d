package core

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"georefgo/pkg/config"
	"georefgo/pkg/geo"
	"georefgo/pkg/georef"
	"georefgo/pkg/store"
)

// persistInterval is how often origin state is considered for saving.
const persistInterval = 5 * time.Second

// PersistedOrigin is the last_origin state value.
type PersistedOrigin struct {
	Placement georef.Placement `json:"placement"`
	Origin    geo.Geodetic     `json:"origin"`
}

// OriginPersistenceJob saves the origin and the active sub-level so the next
// run can pick up where this one stopped.
type OriginPersistenceJob struct {
	BaseJob
	engine   *Engine
	st       store.StateStore
	lastTime time.Time

	lastSavedOrigin []byte
	lastSavedLevel  string
	levelSaved      bool
}

// NewOriginPersistenceJob creates a new persistence job.
func NewOriginPersistenceJob(e *Engine, st store.StateStore) *OriginPersistenceJob {
	return &OriginPersistenceJob{
		BaseJob: NewBaseJob("OriginPersistence"),
		engine:  e,
		st:      st,
	}
}

func (j *OriginPersistenceJob) ShouldFire(f *Frame) bool {
	return j.st != nil && f.Now.Sub(j.lastTime) >= persistInterval
}

func (j *OriginPersistenceJob) Run(ctx context.Context, f *Frame) {
	if !j.TryLock() {
		return
	}
	defer j.Unlock()

	j.lastTime = f.Now
	j.Save(ctx)
}

// Save writes whatever changed since the last save.
func (j *OriginPersistenceJob) Save(ctx context.Context) {
	g := j.engine.Georeference()
	data, err := json.Marshal(PersistedOrigin{Placement: g.Placement(), Origin: g.Origin()})
	if err != nil {
		slog.Error("Persistence: Failed to serialize origin", "error", err)
		return
	}

	// Dirty Check
	if !bytes.Equal(data, j.lastSavedOrigin) {
		if err := j.st.SetState(ctx, config.KeyLastOrigin, string(data)); err != nil {
			slog.Error("Persistence: Failed to save origin", "error", err)
		} else {
			j.lastSavedOrigin = data
			slog.Debug("Persistence: Origin saved", "origin", g.Origin().String())
		}
	}

	id := ""
	if l, _, ok := j.engine.Switcher().Current(); ok {
		id = l.ID
	}
	if j.levelSaved && id == j.lastSavedLevel {
		return
	}
	if err := j.st.SetState(ctx, config.KeyActiveSubLevel, id); err != nil {
		slog.Error("Persistence: Failed to save sub-level", "error", err)
		return
	}
	j.lastSavedLevel, j.levelSaved = id, true
}
