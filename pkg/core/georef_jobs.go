package core

import (
	"context"
	"log/slog"
	"time"
)

// RebaseJob keeps the floating origin near the viewer.
type RebaseJob struct {
	BaseJob
	engine *Engine
}

func NewRebaseJob(e *Engine) *RebaseJob {
	return &RebaseJob{BaseJob: NewBaseJob("Rebase"), engine: e}
}

func (j *RebaseJob) ShouldFire(f *Frame) bool {
	return j.engine.Monitor().Active()
}

func (j *RebaseJob) Run(ctx context.Context, f *Frame) {
	if !j.TryLock() {
		return
	}
	defer j.Unlock()

	j.engine.Refresh(f)
	j.engine.SetCause(CauseRebase)
	rebased, err := j.engine.Monitor().CheckAndRebase(f.Relative)
	if err != nil {
		slog.Warn("Rebase failed", "error", err)
		return
	}
	if !rebased {
		return
	}

	last := j.engine.Monitor().Last()
	j.engine.metrics.ObserveRebase(last.Moved)
	j.engine.MarkDirty()
	j.engine.Refresh(f)
	slog.Debug("Rebased", "distance_m", last.Distance, "moved", last.Moved)
}

// SubLevelJob activates the sub-level the viewer is inside of.
type SubLevelJob struct {
	BaseJob
	engine *Engine
}

func NewSubLevelJob(e *Engine) *SubLevelJob {
	return &SubLevelJob{BaseJob: NewBaseJob("SubLevel"), engine: e}
}

func (j *SubLevelJob) ShouldFire(f *Frame) bool {
	return len(j.engine.Switcher().Levels()) > 0
}

func (j *SubLevelJob) Run(ctx context.Context, f *Frame) {
	if !j.TryLock() {
		return
	}
	defer j.Unlock()

	j.engine.Refresh(f)
	j.engine.SetCause(CauseSubLevel)
	switched, err := j.engine.Switcher().SelectByProximity(f.Absolute)
	if err != nil {
		slog.Warn("Sub-level selection failed", "error", err)
		return
	}
	if switched {
		j.engine.Refresh(f)
	}
}

// NewSnapshotJob publishes the viewer position at a fixed rate even when
// the origin is idle.
func NewSnapshotJob(e *Engine, interval time.Duration) *TimeJob {
	return NewTimeJob("Snapshot", interval, func(ctx context.Context, f *Frame) {
		e.MarkDirty()
	})
}

// NewSunSkyJob moves the sun with wall time at the current origin.
func NewSunSkyJob(e *Engine, interval time.Duration) *TimeJob {
	return NewTimeJob("SunSky", interval, func(ctx context.Context, f *Frame) {
		if e.Sky() == nil {
			return
		}
		if _, ok := e.Sky().Refresh(e.Georeference().Ellipsoid()); ok {
			e.MarkDirty()
		}
	})
}
