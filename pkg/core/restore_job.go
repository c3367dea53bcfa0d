package core

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"

	"georefgo/pkg/config"
	"georefgo/pkg/georef"
	"georefgo/pkg/store"
)

// RestoreJob applies the state saved by OriginPersistenceJob on the first
// active frame.
type RestoreJob struct {
	BaseJob
	engine *Engine
	st     store.StateStore
	done   int32 // 1 if attempted
}

func NewRestoreJob(e *Engine, st store.StateStore) *RestoreJob {
	return &RestoreJob{
		BaseJob: NewBaseJob("Restore"),
		engine:  e,
		st:      st,
	}
}

func (j *RestoreJob) ShouldFire(f *Frame) bool {
	if atomic.LoadInt32(&j.done) == 1 {
		return false
	}
	return !j.Busy()
}

func (j *RestoreJob) Run(ctx context.Context, f *Frame) {
	if !j.TryLock() {
		return
	}
	defer j.Unlock()

	atomic.StoreInt32(&j.done, 1)
	if j.st == nil {
		return
	}
	j.engine.SetCause(CauseRestore)
	j.restoreOrigin(ctx)
	j.restoreSubLevel(ctx)
	j.engine.Refresh(f)
}

func (j *RestoreJob) restoreOrigin(ctx context.Context) {
	raw, ok := j.st.GetState(ctx, config.KeyLastOrigin)
	if !ok || raw == "" {
		return
	}
	var saved PersistedOrigin
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		slog.Warn("Restore: Discarding unreadable origin", "error", err)
		return
	}
	// bounding volume origins are derived, not restored
	g := j.engine.Georeference()
	if saved.Placement != georef.PlacementCartographic || g.Placement() != georef.PlacementCartographic {
		return
	}
	if saved.Origin == g.Origin() {
		return
	}
	if err := g.SetOrigin(saved.Origin); err != nil {
		slog.Warn("Restore: Discarding invalid origin", "error", err)
		return
	}
	slog.Info("Restore: Origin restored", "origin", saved.Origin.String())
}

func (j *RestoreJob) restoreSubLevel(ctx context.Context) {
	id, ok := j.st.GetState(ctx, config.KeyActiveSubLevel)
	if !ok || id == "" {
		return
	}
	for i, l := range j.engine.Switcher().Levels() {
		if l.ID != id {
			continue
		}
		if err := j.engine.Switcher().SelectByIndex(i); err != nil {
			slog.Warn("Restore: Failed to select sub-level", "id", id, "error", err)
			return
		}
		slog.Info("Restore: Sub-level restored", "id", id)
		return
	}
	slog.Info("Restore: Saved sub-level no longer declared", "id", id)
}
