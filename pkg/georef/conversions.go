package georef

import (
	"github.com/go-gl/mathgl/mgl64"

	"georefgo/pkg/geo"
)

// Engine positions are relative to the floating origin unless the name says
// Absolute. All conversions apply the current TransformSet.

func (g *Georeference) GeodeticToEcef(p geo.Geodetic) mgl64.Vec3 {
	return g.ellipsoid.GeodeticToEcef(p)
}

// EcefToGeodetic returns false for points too close to the ellipsoid center.
func (g *Georeference) EcefToGeodetic(p mgl64.Vec3) (geo.Geodetic, bool) {
	return g.ellipsoid.EcefToGeodetic(p)
}

func (g *Georeference) GeoreferencedToEcef(p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformCoordinate(p, g.transforms.GeoreferencedToEcef)
}

func (g *Georeference) EcefToGeoreferenced(p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformCoordinate(p, g.transforms.EcefToGeoreferenced)
}

func (g *Georeference) EngineAbsoluteToEcef(p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformCoordinate(p, g.transforms.EngineAbsoluteToEcef)
}

func (g *Georeference) EcefToEngineAbsolute(p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformCoordinate(p, g.transforms.EcefToEngineAbsolute)
}

// RelativeToAbsolute adds the floating origin.
func (g *Georeference) RelativeToAbsolute(p mgl64.Vec3) mgl64.Vec3 {
	return p.Add(g.floating)
}

// AbsoluteToRelative subtracts the floating origin.
func (g *Georeference) AbsoluteToRelative(p mgl64.Vec3) mgl64.Vec3 {
	return p.Sub(g.floating)
}

func (g *Georeference) EngineToEcef(p mgl64.Vec3) mgl64.Vec3 {
	return g.EngineAbsoluteToEcef(g.RelativeToAbsolute(p))
}

func (g *Georeference) EcefToEngine(p mgl64.Vec3) mgl64.Vec3 {
	return g.AbsoluteToRelative(g.EcefToEngineAbsolute(p))
}

func (g *Georeference) GeodeticToEngine(p geo.Geodetic) mgl64.Vec3 {
	return g.EcefToEngine(g.GeodeticToEcef(p))
}

func (g *Georeference) EngineToGeodetic(p mgl64.Vec3) (geo.Geodetic, bool) {
	return g.EcefToGeodetic(g.EngineToEcef(p))
}

// EngineDirectionToEcef maps a direction, ignoring translation. Scale is
// kept: one engine unit maps to 1/UnitsPerMeter meters.
func (g *Georeference) EngineDirectionToEcef(d mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformNormal(d, g.transforms.EngineAbsoluteToEcef)
}

func (g *Georeference) EcefDirectionToEngine(d mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformNormal(d, g.transforms.EcefToEngineAbsolute)
}

// ComputeEastNorthUpToEcef returns the ENU axes at an ECEF position as columns.
func (g *Georeference) ComputeEastNorthUpToEcef(ecef mgl64.Vec3) mgl64.Mat3 {
	return g.ellipsoid.EastNorthUpToEcef(ecef)
}

// ComputeEastNorthUpToEngine returns the rotation from the local ENU frame at
// an engine position into engine axes, expressed in the engine's handedness.
// It is the identity at the origin.
func (g *Georeference) ComputeEastNorthUpToEngine(engineRelative mgl64.Vec3) mgl64.Mat3 {
	enu := g.ellipsoid.EastNorthUpToEcef(g.EngineToEcef(engineRelative))
	f := g.frame.handedness()
	r0 := g.transforms.GeoreferencedToEcef.Mat3()
	return f.Mul3(r0.Transpose()).Mul3(enu).Mul3(f)
}

// ComputeToEcef maps an engine-space transform located at absoluteLocation
// into ECEF. The translation of m is replaced by absoluteLocation.
func (g *Georeference) ComputeToEcef(m mgl64.Mat4, absoluteLocation mgl64.Vec3) mgl64.Mat4 {
	m.SetCol(3, absoluteLocation.Vec4(1))
	return g.transforms.EngineAbsoluteToEcef.Mul4(m)
}

// ComputeFromEcef maps an ECEF transform into the engine's relative frame.
func (g *Georeference) ComputeFromEcef(m mgl64.Mat4) mgl64.Mat4 {
	out := g.transforms.EcefToEngineAbsolute.Mul4(m)
	rel := g.AbsoluteToRelative(out.Col(3).Vec3())
	out.SetCol(3, rel.Vec4(1))
	return out
}
