// Package sunsky keeps the sun's position in sync with the georeferenced origin.
package sunsky

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"georefgo/pkg/geo"
)

// j2000 is the Julian Date of the J2000.0 epoch.
const j2000 = 2451545.0

// JulianDate converts a UTC time to a Julian Date.
func JulianDate(t time.Time) float64 {
	t = t.UTC()
	y := float64(t.Year())
	m := float64(t.Month())
	d := float64(t.Day())
	h := float64(t.Hour())
	mi := float64(t.Minute())
	s := float64(t.Second()) + float64(t.Nanosecond())/1e9

	if m <= 2 {
		y--
		m += 12
	}

	a := math.Floor(y / 100)
	b := 2 - a + math.Floor(a/4)

	jd := math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + d + b - 1524.5
	return jd + (h+mi/60+s/3600)/24
}

// GMST is Greenwich Mean Sidereal Time in radians (IAU-82).
func GMST(t time.Time) float64 {
	tu := (JulianDate(t) - j2000) / 36525.0

	sec := 67310.54841 +
		(3155760000.0+8640184.812866)*tu +
		0.093104*tu*tu -
		6.2e-6*tu*tu*tu

	sec = math.Mod(sec, 86400)
	if sec < 0 {
		sec += 86400
	}
	return sec / 86400 * 2 * math.Pi
}

// SunDirectionEcef returns the unit vector from Earth's center toward the
// sun, using the low-precision solar coordinates of the Astronomical
// Almanac (about 0.01° until 2050).
func SunDirectionEcef(t time.Time) mgl64.Vec3 {
	n := JulianDate(t) - j2000

	meanLon := mgl64.DegToRad(280.460 + 0.9856474*n)
	anomaly := mgl64.DegToRad(357.528 + 0.9856003*n)
	eclLon := meanLon + mgl64.DegToRad(1.915*math.Sin(anomaly)+0.020*math.Sin(2*anomaly))
	obliquity := mgl64.DegToRad(23.439 - 0.0000004*n)

	ra := math.Atan2(math.Cos(obliquity)*math.Sin(eclLon), math.Cos(eclLon))
	dec := math.Asin(math.Sin(obliquity) * math.Sin(eclLon))

	hour := ra - GMST(t)
	return mgl64.Vec3{
		math.Cos(dec) * math.Cos(hour),
		math.Cos(dec) * math.Sin(hour),
		math.Sin(dec),
	}
}

// LookAngles returns azimuth (clockwise from north) and elevation in degrees
// of an ECEF direction seen from an observer, using the local geodetic ENU.
func LookAngles(e *geo.Ellipsoid, observer geo.Geodetic, dir mgl64.Vec3) (azimuth, elevation float64) {
	enu := e.EastNorthUpToEcef(e.GeodeticToEcef(observer))
	d := dir.Normalize()

	east := enu.Col(0).Dot(d)
	north := enu.Col(1).Dot(d)
	up := mgl64.Clamp(enu.Col(2).Dot(d), -1, 1)

	az := math.Atan2(east, north)
	if az < 0 {
		az += 2 * math.Pi
	}
	return mgl64.RadToDeg(az), mgl64.RadToDeg(math.Asin(up))
}
