package georef

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"

	"georefgo/pkg/geo"
)

// The Inaccurate* entry points take and return float32 values for callers
// that only have single precision. Geodetic values are packed as
// (longitude, latitude, height). A float32 ECEF coordinate resolves to about
// 0.5 m at Earth radius, so prefer the float64 API where it matters.

func toVec64(v mgl32.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
}

func toVec32(v mgl64.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
}

func toGeodetic(llh mgl32.Vec3) geo.Geodetic {
	return geo.Geodetic{Longitude: float64(llh[0]), Latitude: float64(llh[1]), Height: float64(llh[2])}
}

func fromGeodetic(g geo.Geodetic) mgl32.Vec3 {
	return mgl32.Vec3{float32(g.Longitude), float32(g.Latitude), float32(g.Height)}
}

func (g *Georeference) InaccurateSetOrigin(llh mgl32.Vec3) error {
	return g.SetOrigin(toGeodetic(llh))
}

func (g *Georeference) InaccurateGeodeticToEcef(llh mgl32.Vec3) mgl32.Vec3 {
	return toVec32(g.GeodeticToEcef(toGeodetic(llh)))
}

func (g *Georeference) InaccurateEcefToGeodetic(ecef mgl32.Vec3) (mgl32.Vec3, bool) {
	out, ok := g.EcefToGeodetic(toVec64(ecef))
	return fromGeodetic(out), ok
}

func (g *Georeference) InaccurateGeodeticToEngine(llh mgl32.Vec3) mgl32.Vec3 {
	return toVec32(g.GeodeticToEngine(toGeodetic(llh)))
}

func (g *Georeference) InaccurateEngineToGeodetic(engine mgl32.Vec3) (mgl32.Vec3, bool) {
	out, ok := g.EngineToGeodetic(toVec64(engine))
	return fromGeodetic(out), ok
}

func (g *Georeference) InaccurateEcefToEngine(ecef mgl32.Vec3) mgl32.Vec3 {
	return toVec32(g.EcefToEngine(toVec64(ecef)))
}

func (g *Georeference) InaccurateEngineToEcef(engine mgl32.Vec3) mgl32.Vec3 {
	return toVec32(g.EngineToEcef(toVec64(engine)))
}

func (g *Georeference) InaccurateComputeEastNorthUpToEngine(engine mgl32.Vec3) mgl32.Mat3 {
	m := g.ComputeEastNorthUpToEngine(toVec64(engine))
	var out mgl32.Mat3
	for i := range m {
		out[i] = float32(m[i])
	}
	return out
}

func (g *Georeference) InaccurateTransformRotatorEnuToEngine(r Rotator, engine mgl32.Vec3) Rotator {
	return g.TransformRotatorEnuToEngine(r, toVec64(engine))
}

func (g *Georeference) InaccurateTransformRotatorEngineToEnu(r Rotator, engine mgl32.Vec3) Rotator {
	return g.TransformRotatorEngineToEnu(r, toVec64(engine))
}
