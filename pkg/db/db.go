package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Register driver
)

// DB wraps the sql.DB connection.
type DB struct {
	*sql.DB
}

// Init opens the database and runs migrations.
func Init(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000;"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	d := &DB{db}
	// Single writer; the journal is appended from the frame loop and read by the API
	db.SetMaxOpenConns(1)

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return d, nil
}

// PruneEvents removes journal rows older than the specified duration.
// It returns the number of rows deleted across both journal tables.
func (d *DB) PruneEvents(olderThan time.Duration) (int64, error) {
	deadline := time.Now().Add(-olderThan).UTC()
	var total int64
	for _, table := range []string{"origin_events", "sublevel_transitions"} {
		res, err := d.Exec("DELETE FROM "+table+" WHERE created_at < ?", deadline)
		if err != nil {
			return total, fmt.Errorf("prune %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

func (d *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS persistent_state (
			key TEXT PRIMARY KEY,
			value TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS origin_events (
			id TEXT PRIMARY KEY,
			session_id TEXT,
			revision INTEGER,
			cause TEXT,
			placement TEXT,
			lon REAL,
			lat REAL,
			height REAL,
			floating_x REAL,
			floating_y REAL,
			floating_z REAL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS sublevel_transitions (
			id TEXT PRIMARY KEY,
			session_id TEXT,
			from_id TEXT,
			to_id TEXT,
			from_index INTEGER,
			to_index INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_origin_events_created ON origin_events(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_sublevel_transitions_created ON sublevel_transitions(created_at);`,
	}

	for _, q := range queries {
		if _, err := d.Exec(q); err != nil {
			return fmt.Errorf("exec error: %w query: %s", err, q)
		}
	}

	// Migration: Add session_id if missing (journals created before sessions were tracked)
	for _, table := range []string{"origin_events", "sublevel_transitions"} {
		var colCount int
		err := d.QueryRow("SELECT count(*) FROM pragma_table_info(?) WHERE name='session_id'", table).Scan(&colCount)
		if err == nil && colCount == 0 {
			if _, err := d.Exec("ALTER TABLE " + table + " ADD COLUMN session_id TEXT"); err != nil {
				return fmt.Errorf("failed to add session_id column to %s: %w", table, err)
			}
		}
	}

	return nil
}
