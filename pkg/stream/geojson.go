package stream

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"georefgo/pkg/geo"
	"georefgo/pkg/sublevel"
)

// CircleSegments is the number of polygon edges used for a load radius.
const CircleSegments = 64

// LevelCircle approximates a level's activation circle on the ground.
func LevelCircle(l sublevel.Level, segments int) orb.Polygon {
	if segments < 3 {
		segments = CircleSegments
	}
	center := l.Origin.Point()
	ring := make(orb.Ring, 0, segments+1)
	for i := 0; i < segments; i++ {
		p := geo.DestinationPoint(center, l.LoadRadius, float64(i)*360/float64(segments))
		ring = append(ring, p.Orb())
	}
	ring = append(ring, ring[0])
	return orb.Polygon{ring}
}

// LevelsFeatureCollection exports each level's circle as a polygon feature
// and its origin as a point feature. active is the active level index or
// sublevel.NoLevelActive.
func LevelsFeatureCollection(levels []sublevel.Level, active int, segments int) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, l := range levels {
		circle := geojson.NewFeature(LevelCircle(l, segments))
		circle.ID = l.ID
		circle.Properties["id"] = l.ID
		circle.Properties["index"] = i
		circle.Properties["kind"] = "load_radius"
		circle.Properties["load_radius_m"] = l.LoadRadius
		circle.Properties["active"] = i == active
		fc.Append(circle)

		origin := geojson.NewFeature(l.Origin.Point().Orb())
		origin.Properties["id"] = l.ID
		origin.Properties["index"] = i
		origin.Properties["kind"] = "origin"
		origin.Properties["height_m"] = l.Origin.Height
		fc.Append(origin)
	}
	return fc
}
