package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrInvalidEllipsoid is returned when a radius is not a positive finite number.
var ErrInvalidEllipsoid = errors.New("invalid ellipsoid")

const (
	// Scaled squared norm below which a point is treated as the center.
	centerToleranceSquared = 0.1
	surfaceEpsilon         = 1e-12
	maxSurfaceIterations   = 64
)

// WGS84 is the default reference ellipsoid.
var WGS84 = MustEllipsoid(6378137.0, 6378137.0, 6356752.3142451793)

// Ellipsoid is an immutable triaxial reference ellipsoid centered at the ECEF origin.
type Ellipsoid struct {
	radii               mgl64.Vec3
	radiiSquared        mgl64.Vec3
	oneOverRadiiSquared mgl64.Vec3
}

// NewEllipsoid builds an ellipsoid from its three semi-axis radii in meters.
func NewEllipsoid(x, y, z float64) (*Ellipsoid, error) {
	for _, r := range []float64{x, y, z} {
		if !(r > 0) || math.IsInf(r, 0) {
			return nil, fmt.Errorf("%w: radii (%v, %v, %v) must be positive and finite", ErrInvalidEllipsoid, x, y, z)
		}
	}
	return &Ellipsoid{
		radii:               mgl64.Vec3{x, y, z},
		radiiSquared:        mgl64.Vec3{x * x, y * y, z * z},
		oneOverRadiiSquared: mgl64.Vec3{1 / (x * x), 1 / (y * y), 1 / (z * z)},
	}, nil
}

// MustEllipsoid is like NewEllipsoid but panics on invalid radii.
func MustEllipsoid(x, y, z float64) *Ellipsoid {
	e, err := NewEllipsoid(x, y, z)
	if err != nil {
		panic(err)
	}
	return e
}

// Radii returns the semi-axis radii.
func (e *Ellipsoid) Radii() mgl64.Vec3 {
	return e.radii
}

// Equal reports whether both ellipsoids have identical radii.
func (e *Ellipsoid) Equal(o *Ellipsoid) bool {
	if e == nil || o == nil {
		return e == o
	}
	return e.radii == o.radii
}

// GeodeticSurfaceNormal returns the unit normal of the ellipsoid surface
// passing through the ECEF position p.
func (e *Ellipsoid) GeodeticSurfaceNormal(p mgl64.Vec3) mgl64.Vec3 {
	n := mgl64.Vec3{
		p[0] * e.oneOverRadiiSquared[0],
		p[1] * e.oneOverRadiiSquared[1],
		p[2] * e.oneOverRadiiSquared[2],
	}
	return n.Normalize()
}

// GeodeticSurfaceNormalFromGeodetic returns the unit normal at the given longitude and latitude.
func (e *Ellipsoid) GeodeticSurfaceNormalFromGeodetic(g Geodetic) mgl64.Vec3 {
	lon := mgl64.DegToRad(g.Longitude)
	lat := mgl64.DegToRad(g.Latitude)
	sinLon, cosLon := math.Sincos(lon)
	sinLat, cosLat := math.Sincos(lat)
	return mgl64.Vec3{cosLat * cosLon, cosLat * sinLon, sinLat}.Normalize()
}

// GeodeticToEcef converts a geodetic position to Earth-centered, Earth-fixed meters.
func (e *Ellipsoid) GeodeticToEcef(g Geodetic) mgl64.Vec3 {
	n := e.GeodeticSurfaceNormalFromGeodetic(g)
	k := mgl64.Vec3{
		e.radiiSquared[0] * n[0],
		e.radiiSquared[1] * n[1],
		e.radiiSquared[2] * n[2],
	}
	gamma := math.Sqrt(n.Dot(k))
	return k.Mul(1 / gamma).Add(n.Mul(g.Height))
}

// EcefToGeodetic converts an ECEF position to longitude, latitude and height.
// It returns false for positions too close to the center of the ellipsoid.
func (e *Ellipsoid) EcefToGeodetic(p mgl64.Vec3) (Geodetic, bool) {
	surface, ok := e.ScaleToGeodeticSurface(p)
	if !ok {
		return Geodetic{}, false
	}

	n := e.GeodeticSurfaceNormal(surface)
	h := p.Sub(surface)

	height := h.Len()
	if h.Dot(p) < 0 {
		height = -height
	}

	return Geodetic{
		Longitude: mgl64.RadToDeg(math.Atan2(n[1], n[0])),
		Latitude:  mgl64.RadToDeg(math.Atan2(n[2], math.Hypot(n[0], n[1]))),
		Height:    height,
	}, true
}

// ScaleToGeodeticSurface moves p along the geodetic normal onto the surface.
// Points deep inside the ellipsoid fall back to the radial projection.
func (e *Ellipsoid) ScaleToGeodeticSurface(p mgl64.Vec3) (mgl64.Vec3, bool) {
	x2 := p[0] * p[0] * e.oneOverRadiiSquared[0]
	y2 := p[1] * p[1] * e.oneOverRadiiSquared[1]
	z2 := p[2] * p[2] * e.oneOverRadiiSquared[2]

	squaredNorm := x2 + y2 + z2
	ratio := math.Sqrt(1.0 / squaredNorm)
	intersection := p.Mul(ratio)

	if squaredNorm < centerToleranceSquared {
		if math.IsInf(ratio, 0) || math.IsNaN(ratio) {
			return mgl64.Vec3{}, false
		}
		return intersection, true
	}

	gradient := mgl64.Vec3{
		intersection[0] * e.oneOverRadiiSquared[0] * 2.0,
		intersection[1] * e.oneOverRadiiSquared[1] * 2.0,
		intersection[2] * e.oneOverRadiiSquared[2] * 2.0,
	}

	// Newton iteration on the multiplier along the normal.
	lambda := (1.0 - ratio) * p.Len() / (0.5 * gradient.Len())
	correction := 0.0
	var xm, ym, zm float64

	for i := 0; i < maxSurfaceIterations; i++ {
		lambda -= correction

		xm = 1.0 / (1.0 + lambda*e.oneOverRadiiSquared[0])
		ym = 1.0 / (1.0 + lambda*e.oneOverRadiiSquared[1])
		zm = 1.0 / (1.0 + lambda*e.oneOverRadiiSquared[2])

		xm2, ym2, zm2 := xm*xm, ym*ym, zm*zm
		f := x2*xm2 + y2*ym2 + z2*zm2 - 1.0
		if math.Abs(f) <= surfaceEpsilon {
			break
		}

		denominator := x2*xm2*xm*e.oneOverRadiiSquared[0] +
			y2*ym2*ym*e.oneOverRadiiSquared[1] +
			z2*zm2*zm*e.oneOverRadiiSquared[2]
		correction = f / (-2.0 * denominator)
	}

	return mgl64.Vec3{p[0] * xm, p[1] * ym, p[2] * zm}, true
}

// EastNorthUpToEcef returns the rotation whose columns are the local east,
// north and up axes at the ECEF position p.
func (e *Ellipsoid) EastNorthUpToEcef(p mgl64.Vec3) mgl64.Mat3 {
	up := e.GeodeticSurfaceNormal(p)

	east := mgl64.Vec3{-p[1], p[0], 0}
	if math.Hypot(p[0], p[1]) < 1e-9 {
		// Poles: east is undefined, pick +Y.
		east = mgl64.Vec3{0, 1, 0}
	} else {
		east = east.Normalize()
	}
	north := up.Cross(east)

	return mgl64.Mat3FromCols(east, north, up)
}
