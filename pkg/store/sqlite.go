package store

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"georefgo/pkg/db"
)

// Store composes the state and journal stores.
type Store interface {
	StateStore
	JournalStore

	// Close closes the store connection.
	Close() error
}

// DefaultEventLimit caps RecentEvents when the caller passes no limit.
const DefaultEventLimit = 50

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- State ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM persistent_state WHERE key = ?", key).Scan(&val)
	if err != nil {
		return "", false
	}
	return val, true
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	query := `INSERT OR REPLACE INTO persistent_state (key, value, created_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, key, val, time.Now().UTC())
	return err
}

func (s *SQLiteStore) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM persistent_state WHERE key = ?", key)
	return err
}

// --- Journal ---

// AppendOriginEvent stores e, filling in ID and CreatedAt when unset.
func (s *SQLiteStore) AppendOriginEvent(ctx context.Context, e *OriginEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO origin_events
		(id, session_id, revision, cause, placement, lon, lat, height, floating_x, floating_y, floating_z, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.SessionID, int64(e.Revision), e.Cause, e.Placement,
		e.Longitude, e.Latitude, e.Height,
		e.Floating[0], e.Floating[1], e.Floating[2],
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append origin event: %w", err)
	}
	return nil
}

// AppendTransition stores tr, filling in ID and CreatedAt when unset.
func (s *SQLiteStore) AppendTransition(ctx context.Context, tr *Transition) error {
	if tr.ID == "" {
		tr.ID = uuid.NewString()
	}
	if tr.CreatedAt.IsZero() {
		tr.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO sublevel_transitions
		(id, session_id, from_id, to_id, from_index, to_index, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		tr.ID, tr.SessionID, tr.FromID, tr.ToID, tr.FromIndex, tr.ToIndex, tr.CreatedAt)
	if err != nil {
		return fmt.Errorf("append transition: %w", err)
	}
	return nil
}

// RecentEvents returns up to limit journal rows of both kinds, newest first.
func (s *SQLiteStore) RecentEvents(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = DefaultEventLimit
	}

	origins, err := s.recentOriginEvents(ctx, limit)
	if err != nil {
		return nil, err
	}
	transitions, err := s.recentTransitions(ctx, limit)
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(origins)+len(transitions))
	for _, o := range origins {
		events = append(events, Event{Kind: KindOrigin, Origin: o, CreatedAt: o.CreatedAt})
	}
	for _, tr := range transitions {
		events = append(events, Event{Kind: KindSubLevel, Transition: tr, CreatedAt: tr.CreatedAt})
	}
	slices.SortStableFunc(events, func(a, b Event) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func (s *SQLiteStore) recentOriginEvents(ctx context.Context, limit int) ([]*OriginEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, revision, cause, placement, lon, lat, height, floating_x, floating_y, floating_z, created_at
		 FROM origin_events ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*OriginEvent
	for rows.Next() {
		var e OriginEvent
		var session, cause, placement sql.NullString
		var rev int64
		if err := rows.Scan(&e.ID, &session, &rev, &cause, &placement,
			&e.Longitude, &e.Latitude, &e.Height,
			&e.Floating[0], &e.Floating[1], &e.Floating[2], &e.CreatedAt); err != nil {
			return nil, err
		}
		e.SessionID, e.Cause, e.Placement = session.String, cause.String, placement.String
		e.Revision = uint64(rev)
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) recentTransitions(ctx context.Context, limit int) ([]*Transition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, from_id, to_id, from_index, to_index, created_at
		 FROM sublevel_transitions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Transition
	for rows.Next() {
		var tr Transition
		var session, from, to sql.NullString
		if err := rows.Scan(&tr.ID, &session, &from, &to, &tr.FromIndex, &tr.ToIndex, &tr.CreatedAt); err != nil {
			return nil, err
		}
		tr.SessionID, tr.FromID, tr.ToID = session.String, from.String, to.String
		out = append(out, &tr)
	}
	return out, rows.Err()
}
