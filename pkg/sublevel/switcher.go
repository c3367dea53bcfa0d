// Package sublevel selects which independently georeferenced partition of
// the world is active and moves the origin when it changes.
package sublevel

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"georefgo/pkg/geo"
	"georefgo/pkg/georef"
)

// NoLevelActive is the index reported when no sub-level is active.
const NoLevelActive = -1

// Level is a declared sub-level.
type Level struct {
	ID         string       `json:"id"`
	Origin     geo.Geodetic `json:"origin"`
	LoadRadius float64      `json:"load_radius"` // meters
}

// Validate checks a single level.
func (l Level) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("%w: sub-level id is empty", georef.ErrInvalidArgument)
	}
	if math.IsNaN(l.LoadRadius) || l.LoadRadius <= 0 {
		return fmt.Errorf("%w: sub-level %q load radius %v must be positive", georef.ErrInvalidArgument, l.ID, l.LoadRadius)
	}
	if err := l.Origin.Validate(); err != nil {
		return fmt.Errorf("%w: sub-level %q: %v", georef.ErrInvalidArgument, l.ID, err)
	}
	return nil
}

// ValidateLevels checks every level and that ids are unique.
func ValidateLevels(levels []Level) error {
	seen := make(map[string]bool, len(levels))
	for _, l := range levels {
		if err := l.Validate(); err != nil {
			return err
		}
		if seen[l.ID] {
			return fmt.Errorf("%w: duplicate sub-level id %q", georef.ErrInvalidArgument, l.ID)
		}
		seen[l.ID] = true
	}
	return nil
}

// Streamer loads and unloads level content. Calls are fire-and-forget.
type Streamer interface {
	Load(l Level)
	Unload(l Level)
}

// Transition records one change of the active level.
type Transition struct {
	From   int    `json:"from"`
	To     int    `json:"to"`
	FromID string `json:"from_id,omitempty"`
	ToID   string `json:"to_id,omitempty"`
}

// Switcher holds the active-level state machine. At most one level is
// active at a time. It is not safe for concurrent use.
type Switcher struct {
	geo      *georef.Georeference
	streamer Streamer
	levels   []Level
	active   int
	onSwitch func(Transition)
	logger   *slog.Logger
}

// NewSwitcher starts with no level active.
func NewSwitcher(g *georef.Georeference, streamer Streamer, levels []Level) (*Switcher, error) {
	if err := ValidateLevels(levels); err != nil {
		return nil, err
	}
	return &Switcher{
		geo:      g,
		streamer: streamer,
		levels:   append([]Level(nil), levels...),
		active:   NoLevelActive,
		logger:   slog.With("component", "sublevel"),
	}, nil
}

// OnSwitch sets a hook called after every transition.
func (s *Switcher) OnSwitch(fn func(Transition)) {
	s.onSwitch = fn
}

// Levels returns a copy of the declared levels.
func (s *Switcher) Levels() []Level {
	return append([]Level(nil), s.levels...)
}

// Current returns the active level.
func (s *Switcher) Current() (Level, int, bool) {
	if s.active == NoLevelActive {
		return Level{}, NoLevelActive, false
	}
	return s.levels[s.active], s.active, true
}

func (s *Switcher) CurrentIndex() int { return s.active }

// InsideSubLevel reports whether a level is active.
func (s *Switcher) InsideSubLevel() bool { return s.active != NoLevelActive }

func (s *Switcher) inRange(i int, viewerEcef mgl64.Vec3) bool {
	center := s.geo.GeodeticToEcef(s.levels[i].Origin)
	return viewerEcef.Sub(center).Len() <= s.levels[i].LoadRadius
}

// SelectByProximity activates the first level in declaration order whose
// radius contains the viewer. The active level is kept while the viewer
// stays inside its radius. It reports whether a transition happened.
func (s *Switcher) SelectByProximity(viewerAbsolute mgl64.Vec3) (bool, error) {
	viewerEcef := s.geo.EngineAbsoluteToEcef(viewerAbsolute)

	if s.active != NoLevelActive && s.inRange(s.active, viewerEcef) {
		return false, nil
	}
	for i := range s.levels {
		if s.inRange(i, viewerEcef) {
			return true, s.activate(i)
		}
	}
	if s.active == NoLevelActive {
		return false, nil
	}
	s.deactivate()
	return true, nil
}

// SelectByIndex activates level k regardless of the viewer position.
// Selecting the active level re-applies its origin.
func (s *Switcher) SelectByIndex(k int) error {
	if k < 0 || k >= len(s.levels) {
		return fmt.Errorf("%w: sub-level index %d out of range [0, %d)", georef.ErrInvalidArgument, k, len(s.levels))
	}
	if k == s.active {
		return s.JumpToCurrentLevel()
	}
	return s.activate(k)
}

// JumpToCurrentLevel re-applies the active level's origin. Without an
// active level it does nothing.
func (s *Switcher) JumpToCurrentLevel() error {
	if s.active == NoLevelActive {
		return nil
	}
	return s.geo.SetOrigin(s.levels[s.active].Origin)
}

// Surviving returns the declaration in levels of the active level, matched
// by id.
func (s *Switcher) Surviving(levels []Level) (Level, bool) {
	if s.active == NoLevelActive {
		return Level{}, false
	}
	id := s.levels[s.active].ID
	for _, l := range levels {
		if l.ID == id {
			return l, true
		}
	}
	return Level{}, false
}

// SetLevels replaces the declared levels. The active level stays active
// when its id is still declared and the origin is moved back to it if it
// differs; otherwise the level is unloaded.
func (s *Switcher) SetLevels(levels []Level) error {
	if err := ValidateLevels(levels); err != nil {
		return err
	}

	if s.active == NoLevelActive {
		s.levels = append([]Level(nil), levels...)
		return nil
	}

	current := s.levels[s.active]
	for i, l := range levels {
		if l.ID != current.ID {
			continue
		}
		s.levels = append([]Level(nil), levels...)
		s.active = i
		if l.Origin != s.geo.Origin() {
			return s.geo.SetOrigin(l.Origin)
		}
		return nil
	}

	s.deactivate()
	s.levels = append([]Level(nil), levels...)
	return nil
}

// activate marks k active before committing its origin so listeners see
// the new level from Current.
func (s *Switcher) activate(k int) error {
	next := s.levels[k]
	prev := s.active
	s.active = k
	if err := s.geo.SetOrigin(next.Origin); err != nil {
		s.active = prev
		return err
	}

	if s.streamer != nil {
		s.streamer.Load(next)
		if prev != NoLevelActive {
			s.streamer.Unload(s.levels[prev])
		}
	}
	s.emit(prev, k)
	return nil
}

func (s *Switcher) deactivate() {
	prev := s.active
	s.active = NoLevelActive
	if s.streamer != nil {
		s.streamer.Unload(s.levels[prev])
	}
	s.emit(prev, NoLevelActive)
}

func (s *Switcher) emit(from, to int) {
	tr := Transition{From: from, To: to}
	if from != NoLevelActive {
		tr.FromID = s.levels[from].ID
	}
	if to != NoLevelActive {
		tr.ToID = s.levels[to].ID
	}
	s.logger.Info("Sub-level switched", "from", tr.FromID, "to", tr.ToID)
	if s.onSwitch != nil {
		s.onSwitch(tr)
	}
}
