package config

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

const (
	PlacementCartographic   = "cartographic"
	PlacementBoundingVolume = "bounding_volume"
)

// Validate rejects configurations the georeference would refuse.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	for i, r := range []float64{c.Ellipsoid.RadiusX, c.Ellipsoid.RadiusY, c.Ellipsoid.RadiusZ} {
		if !(r > 0) || math.IsInf(r, 0) {
			bad("ellipsoid.radius_%c must be positive, got %v", 'x'+rune(i), r)
		}
	}

	if upm := c.Engine.UnitsPerMeter; !(upm >= 1e-3 && upm <= 1e6) {
		bad("engine.units_per_meter %v outside [0.001, 1000000]", upm)
	}

	g := c.Georeference
	switch g.Placement {
	case PlacementCartographic, PlacementBoundingVolume:
	default:
		bad("georeference.placement %q must be %s or %s", g.Placement, PlacementCartographic, PlacementBoundingVolume)
	}
	if err := checkCoordinate(g.Longitude, g.Latitude, g.Height); err != nil {
		bad("georeference: %v", err)
	}
	if !(g.MaxOriginDistance > 0) {
		bad("georeference.max_origin_distance must be positive, got %v", float64(g.MaxOriginDistance))
	}

	seen := make(map[string]bool, len(c.SubLevels))
	for i, sl := range c.SubLevels {
		if sl.ID == "" {
			bad("sublevels[%d].id is empty", i)
		} else if seen[sl.ID] {
			bad("sublevels[%d].id %q is duplicated", i, sl.ID)
		}
		seen[sl.ID] = true
		if err := checkCoordinate(sl.Longitude, sl.Latitude, sl.Height); err != nil {
			bad("sublevels[%d]: %v", i, err)
		}
		if !(sl.LoadRadius > 0) {
			bad("sublevels[%d].load_radius must be positive", i)
		}
	}

	if c.Ticker.FrameLoop <= 0 {
		bad("ticker.frame_loop must be positive")
	}
	if c.Viewer.Provider != "mock" {
		bad("viewer.provider %q is not supported", c.Viewer.Provider)
	}
	m := c.Viewer.Mock
	if err := checkCoordinate(m.StartLongitude, m.StartLatitude, m.StartHeight); err != nil {
		bad("viewer.mock: %v", err)
	}
	for i, wp := range m.Route {
		if err := checkCoordinate(wp.Longitude, wp.Latitude, wp.Height); err != nil {
			bad("viewer.mock.route[%d]: %v", i, err)
		}
	}
	if m.Speed < 0 {
		bad("viewer.mock.speed must not be negative")
	}

	return errors.Join(errs...)
}

func checkCoordinate(lon, lat, height float64) error {
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return fmt.Errorf("longitude %v outside [-180, 180]", lon)
	}
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v outside [-90, 90]", lat)
	}
	if math.IsNaN(height) || math.IsInf(height, 0) {
		return fmt.Errorf("height %v is not finite", height)
	}
	return nil
}
