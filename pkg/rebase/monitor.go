// Package rebase keeps the engine's floating origin near the viewer.
package rebase

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"georefgo/pkg/georef"
	"georefgo/pkg/logging"
)

// DefaultMaxDistance is the rebase threshold in meters.
const DefaultMaxDistance = 100.0

// OriginShifter is the engine primitive that moves every object in the
// local frame by -delta so the viewer returns near zero.
type OriginShifter interface {
	ShiftOrigin(delta mgl64.Vec3)
}

// SubLevelState reports whether a sub-level currently owns the origin.
type SubLevelState interface {
	InsideSubLevel() bool
}

// Settings control when a rebase fires.
type Settings struct {
	Enabled         bool    `json:"enabled"`
	MaxDistance     float64 `json:"max_distance"` // meters
	InsideSubLevels bool    `json:"inside_sublevels"`
}

// DefaultSettings enables rebasing at DefaultMaxDistance.
func DefaultSettings() Settings {
	return Settings{Enabled: true, MaxDistance: DefaultMaxDistance}
}

// Validate rejects non-positive thresholds.
func (s Settings) Validate() error {
	if math.IsNaN(s.MaxDistance) || s.MaxDistance <= 0 {
		return fmt.Errorf("%w: max origin distance %v must be positive", georef.ErrInvalidArgument, s.MaxDistance)
	}
	return nil
}

// Result describes a rebase that happened.
type Result struct {
	Delta    mgl64.Vec3 `json:"delta"`    // engine units
	Distance float64    `json:"distance"` // meters
	Moved    bool       `json:"moved"`    // origin moved, false when only the floating origin advanced
}

// Monitor checks the viewer distance once per tick.
type Monitor struct {
	geo      *georef.Georeference
	shifter  OriginShifter
	levels   SubLevelState
	settings Settings
	last     Result
	count    uint64
	logger   *slog.Logger
}

// NewMonitor wires a monitor. levels may be nil when no sub-levels exist.
func NewMonitor(g *georef.Georeference, shifter OriginShifter, levels SubLevelState, s Settings) (*Monitor, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &Monitor{
		geo:      g,
		shifter:  shifter,
		levels:   levels,
		settings: s,
		logger:   slog.With("component", "rebase"),
	}, nil
}

func (m *Monitor) Settings() Settings { return m.settings }

// SetSettings replaces the settings if they are valid.
func (m *Monitor) SetSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	m.settings = s
	return nil
}

// Active reports whether a check can currently rebase.
func (m *Monitor) Active() bool {
	if !m.settings.Enabled {
		return false
	}
	if !m.settings.InsideSubLevels && m.levels != nil && m.levels.InsideSubLevel() {
		return false
	}
	return true
}

// Count is the number of rebases performed.
func (m *Monitor) Count() uint64 { return m.count }

// Last returns the most recent rebase.
func (m *Monitor) Last() Result { return m.last }

// CheckAndRebase rebases when the viewer is further than the threshold from
// the floating origin. Below the threshold it has no side effects.
func (m *Monitor) CheckAndRebase(viewerRelative mgl64.Vec3) (bool, error) {
	if !m.Active() {
		return false, nil
	}

	distance := m.geo.Frame().ToMeters(viewerRelative.Len())
	if !(distance > m.settings.MaxDistance) {
		return false, nil
	}

	res := Result{Delta: viewerRelative, Distance: distance}
	switch m.geo.Placement() {
	case georef.PlacementBoundingVolume:
		m.geo.ShiftFloatingOrigin(viewerRelative)
	default:
		target, ok := m.geo.EngineToGeodetic(viewerRelative)
		if !ok {
			return false, fmt.Errorf("%w: viewer at ellipsoid center", georef.ErrInvalidArgument)
		}
		if err := m.geo.Rebase(target); err != nil {
			return false, err
		}
		res.Moved = true
	}

	if m.shifter != nil {
		m.shifter.ShiftOrigin(viewerRelative)
	}

	m.count++
	m.last = res
	logging.Trace(m.logger, "Rebased",
		"distance_m", distance,
		"moved", res.Moved,
		"origin", m.geo.Origin().String(),
	)
	return true, nil
}
