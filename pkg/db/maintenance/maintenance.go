package maintenance

import (
	"context"
	"log/slog"
	"time"

	"georefgo/pkg/db"
	"georefgo/pkg/store"
)

// DefaultRetention is how long journal rows are kept.
const DefaultRetention = 30 * 24 * time.Hour

const lastRunStateKey = "maintenance_last_run"

// Run prunes the event journal and records the run time in the state store.
// It blocks until completion. Failures are logged, not returned, so startup
// continues with an unpruned journal.
func Run(ctx context.Context, s store.StateStore, d *db.DB, retention time.Duration) error {
	if retention <= 0 {
		retention = DefaultRetention
	}
	slog.Info("Starting database maintenance...", "retention", retention)

	n, err := d.PruneEvents(retention)
	if err != nil {
		slog.Error("Journal pruning failed", "error", err)
		return nil
	}
	slog.Info("Journal pruning completed", "deleted", n)

	if err := s.SetState(ctx, lastRunStateKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
		slog.Warn("Failed to record maintenance run", "error", err)
	}
	return nil
}

// LastRun returns the time of the previous maintenance run, if any.
func LastRun(ctx context.Context, s store.StateStore) (time.Time, bool) {
	val, ok := s.GetState(ctx, lastRunStateKey)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
