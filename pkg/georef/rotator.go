package georef

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const gimbalEpsilon = 1e-9

// Rotator is an orientation in degrees. The rotation applies Roll about X,
// then Pitch about Y, then Yaw about Z.
type Rotator struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Roll  float64 `json:"roll"`
}

// Matrix returns Rz(Yaw)·Ry(Pitch)·Rx(Roll).
func (r Rotator) Matrix() mgl64.Mat3 {
	return mgl64.Rotate3DZ(mgl64.DegToRad(r.Yaw)).
		Mul3(mgl64.Rotate3DY(mgl64.DegToRad(r.Pitch))).
		Mul3(mgl64.Rotate3DX(mgl64.DegToRad(r.Roll)))
}

// RotatorFromMatrix extracts angles from a rotation matrix. At ±90° pitch
// roll is folded into yaw.
func RotatorFromMatrix(m mgl64.Mat3) Rotator {
	sp := mgl64.Clamp(-m.At(2, 0), -1, 1)
	pitch := math.Asin(sp)

	var yaw, roll float64
	if math.Cos(pitch) > gimbalEpsilon {
		roll = math.Atan2(m.At(2, 1), m.At(2, 2))
		yaw = math.Atan2(m.At(1, 0), m.At(0, 0))
	} else {
		yaw = math.Atan2(-m.At(0, 1), m.At(1, 1))
	}

	return Rotator{
		Pitch: mgl64.RadToDeg(pitch),
		Yaw:   mgl64.RadToDeg(yaw),
		Roll:  mgl64.RadToDeg(roll),
	}
}

// TransformRotatorEnuToEngine re-expresses an orientation given in the local
// ENU frame at engineRelative as an engine orientation.
func (g *Georeference) TransformRotatorEnuToEngine(r Rotator, engineRelative mgl64.Vec3) Rotator {
	m := g.ComputeEastNorthUpToEngine(engineRelative)
	return RotatorFromMatrix(m.Mul3(r.Matrix()))
}

// TransformRotatorEngineToEnu is the inverse of TransformRotatorEnuToEngine.
func (g *Georeference) TransformRotatorEngineToEnu(r Rotator, engineRelative mgl64.Vec3) Rotator {
	m := g.ComputeEastNorthUpToEngine(engineRelative)
	return RotatorFromMatrix(m.Transpose().Mul3(r.Matrix()))
}
