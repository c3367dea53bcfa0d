package db_test

import (
	"path/filepath"
	"testing"
	"time"

	"georefgo/pkg/db"
)

func TestDB(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "nested", "db_test.db")

	d, err := db.Init(path)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if d == nil {
		t.Fatal("Init() returned nil DB")
	}
	d.Close()

	// Re-opening runs the migrations again on an existing schema
	d, err = db.Init(path)
	if err != nil {
		t.Fatalf("second Init() failed: %v", err)
	}
	defer d.Close()

	for _, table := range []string{"persistent_state", "origin_events", "sublevel_transitions"} {
		var n int
		if err := d.QueryRow("SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&n); err != nil {
			t.Fatalf("query %s: %v", table, err)
		}
		if n != 1 {
			t.Errorf("table %s missing", table)
		}
	}
}

func TestPruneEvents(t *testing.T) {
	d, err := db.Init(filepath.Join(t.TempDir(), "prune.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	old := time.Now().Add(-40 * 24 * time.Hour).UTC()
	recent := time.Now().Add(-time.Hour).UTC()

	inserts := []struct {
		query string
		args  []any
	}{
		{"INSERT INTO origin_events (id, created_at) VALUES (?, ?)", []any{"o-old", old}},
		{"INSERT INTO origin_events (id, created_at) VALUES (?, ?)", []any{"o-new", recent}},
		{"INSERT INTO sublevel_transitions (id, created_at) VALUES (?, ?)", []any{"s-old", old}},
	}
	for _, in := range inserts {
		if _, err := d.Exec(in.query, in.args...); err != nil {
			t.Fatal(err)
		}
	}

	n, err := d.PruneEvents(30 * 24 * time.Hour)
	if err != nil {
		t.Fatalf("PruneEvents() error = %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 rows pruned, got %d", n)
	}

	var left int
	if err := d.QueryRow("SELECT count(*) FROM origin_events").Scan(&left); err != nil {
		t.Fatal(err)
	}
	if left != 1 {
		t.Errorf("expected 1 origin event left, got %d", left)
	}
}
