package rebase

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"georefgo/pkg/georef"
)

type shiftRecorder struct {
	deltas []mgl64.Vec3
}

func (s *shiftRecorder) ShiftOrigin(d mgl64.Vec3) { s.deltas = append(s.deltas, d) }

type listenerCount struct{ n int }

func (l *listenerCount) OnGeoreferenceUpdated(georef.Snapshot) { l.n++ }

type fakeLevels bool

func (f fakeLevels) InsideSubLevel() bool { return bool(f) }

func setup(t *testing.T, placement georef.Placement, levels SubLevelState, s Settings) (*Monitor, *georef.Georeference, *shiftRecorder, *listenerCount) {
	t.Helper()
	opts := georef.DefaultOptions()
	opts.Placement = placement
	g, err := georef.New(opts)
	require.NoError(t, err)

	lc := &listenerCount{}
	g.AddListener(lc)
	sh := &shiftRecorder{}
	m, err := NewMonitor(g, sh, levels, s)
	require.NoError(t, err)
	return m, g, sh, lc
}

func TestCheckAndRebase_BelowThreshold(t *testing.T) {
	m, g, sh, lc := setup(t, georef.PlacementCartographic, nil, Settings{Enabled: true, MaxDistance: 10000})
	before := g.Snapshot()

	// 50 m in centimeters
	rebased, err := m.CheckAndRebase(mgl64.Vec3{3000, 4000, 0})
	require.NoError(t, err)

	assert.False(t, rebased)
	assert.Equal(t, before, g.Snapshot())
	assert.Zero(t, lc.n)
	assert.Empty(t, sh.deltas)
	assert.Zero(t, m.Count())
}

func TestCheckAndRebase_Explicit(t *testing.T) {
	m, g, sh, lc := setup(t, georef.PlacementCartographic, nil, DefaultSettings())
	g.ShiftFloatingOrigin(mgl64.Vec3{700, 0, 0})

	viewer := mgl64.Vec3{15000, -2000, 300}
	want, ok := g.EngineToGeodetic(viewer)
	require.True(t, ok)
	viewerEcef := g.EngineToEcef(viewer)

	rebased, err := m.CheckAndRebase(viewer)
	require.NoError(t, err)
	require.True(t, rebased)

	assert.Equal(t, 1, lc.n, "one notification per rebase")
	assert.Equal(t, []mgl64.Vec3{viewer}, sh.deltas)
	assert.InDelta(t, want.Longitude, g.Origin().Longitude, 1e-9)
	assert.InDelta(t, want.Latitude, g.Origin().Latitude, 1e-9)
	assert.Equal(t, mgl64.Vec3{}, g.FloatingOrigin())

	// after the engine shift the viewer sits at local zero
	assert.InDelta(t, 0, g.EcefToEngine(viewerEcef).Len(), 0.1)
	assert.True(t, m.Last().Moved)
	assert.InDelta(t, viewer.Len()/100, m.Last().Distance, 1e-9)
}

func TestCheckAndRebase_BoundingVolume(t *testing.T) {
	m, g, sh, lc := setup(t, georef.PlacementBoundingVolume, nil, DefaultSettings())
	origin := g.Origin()

	viewer := mgl64.Vec3{0, 20000, 0}
	viewerEcef := g.EngineToEcef(viewer)

	rebased, err := m.CheckAndRebase(viewer)
	require.NoError(t, err)
	require.True(t, rebased)

	assert.Equal(t, origin, g.Origin())
	assert.Zero(t, lc.n)
	assert.Equal(t, viewer, g.FloatingOrigin())
	assert.Len(t, sh.deltas, 1)
	assert.InDelta(t, 0, g.EcefToEngine(viewerEcef).Len(), 1e-3)
	assert.False(t, m.Last().Moved)
}

func TestCheckAndRebase_Disabled(t *testing.T) {
	far := mgl64.Vec3{1e6, 0, 0}
	tests := []struct {
		name     string
		settings Settings
		levels   SubLevelState
		want     bool
	}{
		{"disabled", Settings{Enabled: false, MaxDistance: 100}, nil, false},
		{"inside sub-level", Settings{Enabled: true, MaxDistance: 100}, fakeLevels(true), false},
		{"inside sub-level allowed", Settings{Enabled: true, MaxDistance: 100, InsideSubLevels: true}, fakeLevels(true), true},
		{"outside sub-level", Settings{Enabled: true, MaxDistance: 100}, fakeLevels(false), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, sh, _ := setup(t, georef.PlacementCartographic, tt.levels, tt.settings)
			got, err := m.CheckAndRebase(far)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, len(sh.deltas) == 1)
		})
	}
}

func TestSettings_Validate(t *testing.T) {
	_, err := NewMonitor(nil, nil, nil, Settings{Enabled: true, MaxDistance: 0})
	assert.ErrorIs(t, err, georef.ErrInvalidArgument)

	m, _, _, _ := setup(t, georef.PlacementCartographic, nil, DefaultSettings())
	assert.ErrorIs(t, m.SetSettings(Settings{MaxDistance: -5}), georef.ErrInvalidArgument)
	assert.Equal(t, DefaultSettings(), m.Settings())
}
