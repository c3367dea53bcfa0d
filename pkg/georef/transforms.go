package georef

import (
	"github.com/go-gl/mathgl/mgl64"

	"georefgo/pkg/geo"
)

// TransformSet holds the four matrices relating the georeferenced frame,
// ECEF and the engine's absolute frame. Each Ecef* matrix is the affine
// inverse of its counterpart.
type TransformSet struct {
	GeoreferencedToEcef  mgl64.Mat4 `json:"georeferenced_to_ecef"`
	EcefToGeoreferenced  mgl64.Mat4 `json:"ecef_to_georeferenced"`
	EngineAbsoluteToEcef mgl64.Mat4 `json:"engine_absolute_to_ecef"`
	EcefToEngineAbsolute mgl64.Mat4 `json:"ecef_to_engine_absolute"`
}

// ComputeTransforms derives all four matrices from one origin.
func ComputeTransforms(e *geo.Ellipsoid, origin geo.Geodetic, frame EngineFrame) TransformSet {
	center := e.GeodeticToEcef(origin)
	enu := e.EastNorthUpToEcef(center)

	georefToEcef := mgl64.Mat4FromCols(
		enu.Col(0).Vec4(0),
		enu.Col(1).Vec4(0),
		enu.Col(2).Vec4(0),
		center.Vec4(1),
	)
	engineToEcef := georefToEcef.Mul4(frame.EngineToGeoreferenced())

	return TransformSet{
		GeoreferencedToEcef:  georefToEcef,
		EcefToGeoreferenced:  inverseAffine(georefToEcef),
		EngineAbsoluteToEcef: engineToEcef,
		EcefToEngineAbsolute: inverseAffine(engineToEcef),
	}
}

// inverseAffine inverts a matrix whose last row is (0, 0, 0, 1).
// The linear block is inverted through its adjugate.
func inverseAffine(m mgl64.Mat4) mgl64.Mat4 {
	a := m.Col(0).Vec3()
	b := m.Col(1).Vec3()
	c := m.Col(2).Vec3()
	t := m.Col(3).Vec3()

	bc, ca, ab := b.Cross(c), c.Cross(a), a.Cross(b)
	invDet := 1 / a.Dot(bc)

	linv := mgl64.Mat3FromRows(bc.Mul(invDet), ca.Mul(invDet), ab.Mul(invDet))
	nt := linv.Mul3x1(t).Mul(-1)

	return mgl64.Mat4FromCols(
		linv.Col(0).Vec4(0),
		linv.Col(1).Vec4(0),
		linv.Col(2).Vec4(0),
		nt.Vec4(1),
	)
}

// Flat returns the matrices as column-major arrays for storage.
func (ts TransformSet) Flat() [4][16]float64 {
	return [4][16]float64{
		ts.GeoreferencedToEcef,
		ts.EcefToGeoreferenced,
		ts.EngineAbsoluteToEcef,
		ts.EcefToEngineAbsolute,
	}
}

// TransformSetFromFlat is the inverse of Flat.
func TransformSetFromFlat(f [4][16]float64) TransformSet {
	return TransformSet{
		GeoreferencedToEcef:  f[0],
		EcefToGeoreferenced:  f[1],
		EngineAbsoluteToEcef: f[2],
		EcefToEngineAbsolute: f[3],
	}
}
