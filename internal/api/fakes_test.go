package api

import (
	"context"
	"errors"
	"sync"

	"georefgo/pkg/core"
	"georefgo/pkg/geo"
	"georefgo/pkg/georef"
	"georefgo/pkg/rebase"
	"georefgo/pkg/store"
	"georefgo/pkg/sublevel"
)

type fakeEngine struct {
	mu        sync.Mutex
	snap      *core.Snapshot
	err       error
	origins   []geo.Geodetic
	selected  []int
	jumps     int
	refreshes int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{snap: &core.Snapshot{
		SessionID: "session",
		Georeference: georef.Snapshot{
			Origin:    geo.Geodetic{Longitude: -105.25737, Latitude: 39.736401, Height: 2250},
			Placement: georef.PlacementCartographic,
			Frame:     georef.EngineFrame{UnitsPerMeter: 100, LeftHanded: true},
			Revision:  1,
		},
		Levels: []sublevel.Level{
			{ID: "airport", Origin: geo.Geodetic{Longitude: -104.67, Latitude: 39.86, Height: 1650}, LoadRadius: 5000},
			{ID: "city", Origin: geo.Geodetic{Longitude: -104.99, Latitude: 39.74, Height: 1600}, LoadRadius: 3000},
		},
		ActiveIndex:    -1,
		Loaded:         []string{},
		RebaseSettings: rebase.Settings{Enabled: true, MaxDistance: 100},
	}}
}

func (f *fakeEngine) Snapshot() *core.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeEngine) SetOrigin(ctx context.Context, g geo.Geodetic) (georef.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return georef.Snapshot{}, f.err
	}
	f.origins = append(f.origins, g)
	s := f.snap.Georeference
	s.Origin = g
	s.Revision++
	return s, nil
}

func (f *fakeEngine) PlaceOriginAtViewer(ctx context.Context) (georef.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return georef.Snapshot{}, f.err
	}
	return f.snap.Georeference, nil
}

func (f *fakeEngine) SelectSubLevel(ctx context.Context, k int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if k < -1 || k >= len(f.snap.Levels) {
		return georef.ErrInvalidArgument
	}
	f.selected = append(f.selected, k)
	cp := *f.snap
	cp.ActiveIndex = k
	cp.ActiveID = ""
	if k >= 0 {
		cp.ActiveID = cp.Levels[k].ID
	}
	f.snap = &cp
	return nil
}

func (f *fakeEngine) JumpToCurrentLevel(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.jumps++
	return nil
}

func (f *fakeEngine) RefreshOverrides(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return nil
}

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemStore() *memStore { return &memStore{data: map[string]string{}} }

func (m *memStore) GetState(ctx context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *memStore) SetState(ctx context.Context, key, val string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = val
	return nil
}

func (m *memStore) DeleteState(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type fakeJournal struct {
	events []store.Event
	limit  int
	err    error
}

func (j *fakeJournal) AppendOriginEvent(ctx context.Context, e *store.OriginEvent) error { return nil }
func (j *fakeJournal) AppendTransition(ctx context.Context, tr *store.Transition) error  { return nil }

func (j *fakeJournal) RecentEvents(ctx context.Context, limit int) ([]store.Event, error) {
	j.limit = limit
	if j.err != nil {
		return nil, j.err
	}
	if len(j.events) > limit {
		return j.events[:limit], nil
	}
	return j.events, nil
}

var errBroken = errors.New("broken")
