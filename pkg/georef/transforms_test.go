package georef

import (
	"fmt"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"georefgo/pkg/geo"
)

var testOrigins = []geo.Geodetic{
	{Longitude: -105.25737, Latitude: 39.736401, Height: 2250},
	{Longitude: 0, Latitude: 0, Height: 0},
	{Longitude: 179.9, Latitude: -45, Height: -400},
	{Longitude: -180, Latitude: 89.999, Height: 8000},
	{Longitude: 12.5, Latitude: -90, Height: 10},
	{Longitude: 151.2, Latitude: -33.86, Height: 1e6},
}

var testFrames = []EngineFrame{
	DefaultEngineFrame(),
	{UnitsPerMeter: 1, LeftHanded: false},
	{UnitsPerMeter: 1e-3, LeftHanded: true},
	{UnitsPerMeter: 1e6, LeftHanded: false},
}

// assertAffineInDelta compares the linear block and the translation column
// with separate tolerances.
func assertAffineInDelta(t *testing.T, want, got mgl64.Mat4, linDelta, transDelta float64) {
	t.Helper()
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			delta := linDelta
			if col == 3 {
				delta = transDelta
			}
			assert.InDelta(t, want.At(row, col), got.At(row, col), delta, "element (%d,%d)", row, col)
		}
	}
}

func TestComputeTransforms_InverseConsistency(t *testing.T) {
	for _, frame := range testFrames {
		for _, origin := range testOrigins {
			t.Run(fmt.Sprintf("%v/%s", frame.UnitsPerMeter, origin), func(t *testing.T) {
				ts := ComputeTransforms(geo.WGS84, origin, frame)
				ident := mgl64.Ident4()

				// a few ulp at ECEF magnitude
				const trans = 1e-8
				assertAffineInDelta(t, ident, ts.GeoreferencedToEcef.Mul4(ts.EcefToGeoreferenced), 1e-9, trans)
				assertAffineInDelta(t, ident, ts.EcefToGeoreferenced.Mul4(ts.GeoreferencedToEcef), 1e-9, trans)

				// engine units multiply the translation error of the reverse product
				assertAffineInDelta(t, ident, ts.EngineAbsoluteToEcef.Mul4(ts.EcefToEngineAbsolute), 1e-9, trans)
				assertAffineInDelta(t, ident, ts.EcefToEngineAbsolute.Mul4(ts.EngineAbsoluteToEcef), 1e-9, max(trans, trans*frame.UnitsPerMeter))
			})
		}
	}
}

func toDense(m mgl64.Mat4) *mat.Dense {
	d := mat.NewDense(4, 4, nil)
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			d.Set(r, c, m.At(r, c))
		}
	}
	return d
}

func TestComputeTransforms_MatchesGeneralInverse(t *testing.T) {
	for _, origin := range testOrigins {
		t.Run(origin.String(), func(t *testing.T) {
			ts := ComputeTransforms(geo.WGS84, origin, DefaultEngineFrame())

			var inv mat.Dense
			require.NoError(t, inv.Inverse(toDense(ts.GeoreferencedToEcef)))

			for r := 0; r < 4; r++ {
				for c := 0; c < 4; c++ {
					delta := 1e-9
					if c == 3 {
						delta = 1e-6
					}
					assert.InDelta(t, inv.At(r, c), ts.EcefToGeoreferenced.At(r, c), delta, "element (%d,%d)", r, c)
				}
			}
		})
	}
}

func TestComputeTransforms_Axes(t *testing.T) {
	origin := geo.Geodetic{Longitude: -105.25737, Latitude: 39.736401, Height: 2250}
	ts := ComputeTransforms(geo.WGS84, origin, DefaultEngineFrame())
	enu := geo.WGS84.EastNorthUpToEcef(geo.WGS84.GeodeticToEcef(origin))

	// 100 engine units east is one meter east
	east := mgl64.TransformNormal(mgl64.Vec3{100, 0, 0}, ts.EngineAbsoluteToEcef)
	assert.InDelta(t, 0, east.Sub(enu.Col(0)).Len(), 1e-12)

	// left-handed: engine +Y is south
	south := mgl64.TransformNormal(mgl64.Vec3{0, 100, 0}, ts.EngineAbsoluteToEcef)
	assert.InDelta(t, 0, south.Add(enu.Col(1)).Len(), 1e-12)

	up := mgl64.TransformNormal(mgl64.Vec3{0, 0, 100}, ts.EngineAbsoluteToEcef)
	assert.InDelta(t, 0, up.Sub(enu.Col(2)).Len(), 1e-12)
}

func TestTransformSet_Flat(t *testing.T) {
	ts := ComputeTransforms(geo.WGS84, testOrigins[0], DefaultEngineFrame())
	flat := ts.Flat()

	// column-major: translation lives in elements 12..14
	center := geo.WGS84.GeodeticToEcef(testOrigins[0])
	assert.Equal(t, center[0], flat[0][12])
	assert.Equal(t, center[1], flat[0][13])
	assert.Equal(t, center[2], flat[0][14])
	assert.Equal(t, ts, TransformSetFromFlat(flat))
}

func TestEngineFrame_Validate(t *testing.T) {
	tests := []struct {
		name    string
		upm     float64
		wantErr bool
	}{
		{"centimeters", 100, false},
		{"lower bound", 1e-3, false},
		{"upper bound", 1e6, false},
		{"zero", 0, true},
		{"negative", -100, true},
		{"too large", 1e7, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := EngineFrame{UnitsPerMeter: tt.upm}.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidArgument)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
