package sunsky

import (
	"log/slog"
	"sync/atomic"
	"time"

	"georefgo/pkg/geo"
	"georefgo/pkg/georef"
	"georefgo/pkg/logging"
)

// Position is the sun as seen from the origin.
type Position struct {
	Origin       geo.Geodetic `json:"origin"`
	Time         time.Time    `json:"time"`
	AzimuthDeg   float64      `json:"azimuth_deg"`
	ElevationDeg float64      `json:"elevation_deg"`
	Daylight     bool         `json:"daylight"`
}

// Sky recomputes the sun position whenever the georeference changes. It only
// follows explicit (cartographic) origins. Current is safe to call from any
// goroutine.
type Sky struct {
	now    func() time.Time
	last   atomic.Pointer[Position]
	logger *slog.Logger
}

// New returns a Sky. A nil clock uses time.Now.
func New(now func() time.Time) *Sky {
	if now == nil {
		now = time.Now
	}
	return &Sky{now: now, logger: slog.With("component", "sunsky")}
}

// OnGeoreferenceUpdated implements georef.Listener. Any other placement
// clears the position.
func (s *Sky) OnGeoreferenceUpdated(snap georef.Snapshot) {
	if snap.Placement != georef.PlacementCartographic {
		s.last.Store(nil)
		return
	}
	r := snap.Radii
	e, err := geo.NewEllipsoid(r[0], r[1], r[2])
	if err != nil {
		s.logger.Warn("Skipping sun update", "error", err)
		return
	}
	s.Update(e, snap.Origin)
}

// Update recomputes the position for the current time.
func (s *Sky) Update(e *geo.Ellipsoid, origin geo.Geodetic) Position {
	t := s.now().UTC()
	az, el := LookAngles(e, origin, SunDirectionEcef(t))
	p := Position{
		Origin:       origin,
		Time:         t,
		AzimuthDeg:   az,
		ElevationDeg: el,
		Daylight:     el > -0.833,
	}
	s.last.Store(&p)
	logging.Trace(s.logger, "Sun updated", "azimuth", az, "elevation", el)
	return p
}

// Refresh recomputes at the last origin so the sun tracks wall time.
func (s *Sky) Refresh(e *geo.Ellipsoid) (Position, bool) {
	p := s.last.Load()
	if p == nil {
		return Position{}, false
	}
	return s.Update(e, p.Origin), true
}

// Current returns the last computed position.
func (s *Sky) Current() (Position, bool) {
	p := s.last.Load()
	if p == nil {
		return Position{}, false
	}
	return *p, true
}
