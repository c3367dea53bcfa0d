package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"georefgo/pkg/db"
)

// setupTestStore creates a test database and store for each test.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	d, err := db.Init(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to init DB: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return NewSQLiteStore(d)
}

func TestStateStore(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if _, ok := store.GetState(ctx, "missing"); ok {
		t.Error("expected missing key to be absent")
	}

	if err := store.SetState(ctx, "rebase_enabled", "true"); err != nil {
		t.Fatalf("SetState failed: %v", err)
	}
	if err := store.SetState(ctx, "rebase_enabled", "false"); err != nil {
		t.Fatalf("SetState overwrite failed: %v", err)
	}
	val, ok := store.GetState(ctx, "rebase_enabled")
	if !ok || val != "false" {
		t.Errorf("GetState = %q,%v, want false,true", val, ok)
	}

	if err := store.DeleteState(ctx, "rebase_enabled"); err != nil {
		t.Fatalf("DeleteState failed: %v", err)
	}
	if _, ok := store.GetState(ctx, "rebase_enabled"); ok {
		t.Error("expected key to be deleted")
	}
}

func TestJournal_AppendAndList(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 4, 15, 12, 0, 0, 0, time.UTC)

	origin := &OriginEvent{
		SessionID: "s1",
		Revision:  2,
		Cause:     "rebase",
		Placement: "cartographic",
		Longitude: -105.25737,
		Latitude:  39.736401,
		Height:    2250,
		Floating:  [3]float64{1, 2, 3},
		CreatedAt: base,
	}
	if err := store.AppendOriginEvent(ctx, origin); err != nil {
		t.Fatalf("AppendOriginEvent failed: %v", err)
	}
	if origin.ID == "" {
		t.Error("expected generated ID")
	}

	tr := &Transition{SessionID: "s1", FromID: "", ToID: "airport", FromIndex: -1, ToIndex: 0, CreatedAt: base.Add(time.Second)}
	if err := store.AppendTransition(ctx, tr); err != nil {
		t.Fatalf("AppendTransition failed: %v", err)
	}
	second := &OriginEvent{SessionID: "s1", Revision: 3, Cause: "sublevel", CreatedAt: base.Add(2 * time.Second)}
	if err := store.AppendOriginEvent(ctx, second); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		limit     int
		wantKinds []string
	}{
		{"all", 0, []string{KindOrigin, KindSubLevel, KindOrigin}},
		{"limited", 2, []string{KindOrigin, KindSubLevel}},
		{"one", 1, []string{KindOrigin}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := store.RecentEvents(ctx, tt.limit)
			if err != nil {
				t.Fatalf("RecentEvents failed: %v", err)
			}
			if len(events) != len(tt.wantKinds) {
				t.Fatalf("expected %d events, got %d", len(tt.wantKinds), len(events))
			}
			for i, k := range tt.wantKinds {
				if events[i].Kind != k {
					t.Errorf("event %d kind = %s, want %s", i, events[i].Kind, k)
				}
			}
		})
	}

	events, _ := store.RecentEvents(ctx, 0)
	got := events[2].Origin
	if got == nil {
		t.Fatal("expected origin payload")
	}
	if got.Revision != 2 || got.Cause != "rebase" || got.Floating != [3]float64{1, 2, 3} || got.Height != 2250 {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if tr := events[1].Transition; tr == nil || tr.ToID != "airport" || tr.FromIndex != -1 {
		t.Errorf("transition mismatch: %+v", tr)
	}
}
