package sunsky

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"georefgo/pkg/geo"
	"georefgo/pkg/georef"
)

func TestJulianDate(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want float64
	}{
		{"J2000", time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC), 2451545.0},
		{"unix epoch", time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), 2440587.5},
		{"february", time.Date(2024, 2, 29, 18, 0, 0, 0, time.UTC), 2460370.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, JulianDate(tt.t), 1e-9)
		})
	}
}

func TestGMST_J2000(t *testing.T) {
	// 280.46061837 degrees
	got := GMST(time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC))
	assert.InDelta(t, 4.894961212735792, got, 1e-6)
}

func TestLookAngles(t *testing.T) {
	tests := []struct {
		name     string
		observer geo.Geodetic
		t        time.Time
		minEl    float64
		maxEl    float64
		az       float64 // negative skips the azimuth check
	}{
		{"equinox noon at the equator", geo.Geodetic{}, time.Date(2024, 3, 20, 12, 7, 0, 0, time.UTC), 85, 90, -1},
		{"equinox midnight opposite side", geo.Geodetic{Longitude: 180}, time.Date(2024, 3, 20, 12, 7, 0, 0, time.UTC), -90, -85, -1},
		{"solstice noon on the tropic", geo.Geodetic{Latitude: 23.44}, time.Date(2024, 6, 21, 12, 2, 0, 0, time.UTC), 88, 90, -1},
		{"april noon at 40N", geo.Geodetic{Latitude: 40}, time.Date(2024, 4, 15, 12, 0, 0, 0, time.UTC), 58, 61, 180},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			az, el := LookAngles(geo.WGS84, tt.observer, SunDirectionEcef(tt.t))
			assert.GreaterOrEqual(t, el, tt.minEl)
			assert.LessOrEqual(t, el, tt.maxEl)
			if tt.az >= 0 {
				assert.InDelta(t, tt.az, az, 2)
			}
		})
	}
}

func TestSky_FollowsCartographicOrigin(t *testing.T) {
	clock := time.Date(2024, 4, 15, 12, 0, 0, 0, time.UTC)
	sky := New(func() time.Time { return clock })

	_, ok := sky.Current()
	assert.False(t, ok)

	g, err := georef.New(georef.DefaultOptions())
	require.NoError(t, err)
	g.AddListener(sky)

	require.NoError(t, g.SetOrigin(geo.Geodetic{Latitude: 40}))
	p, ok := sky.Current()
	require.True(t, ok)
	assert.True(t, p.Daylight)
	assert.Equal(t, clock, p.Time)
	assert.Equal(t, geo.Geodetic{Latitude: 40}, p.Origin)

	clock = clock.Add(12 * time.Hour)
	p, ok = sky.Refresh(geo.WGS84)
	require.True(t, ok)
	assert.False(t, p.Daylight)
}

func TestSky_IgnoresBoundingVolumePlacement(t *testing.T) {
	sky := New(nil)
	sky.OnGeoreferenceUpdated(georef.Snapshot{
		Placement: georef.PlacementBoundingVolume,
		Radii:     geo.WGS84.Radii(),
	})
	_, ok := sky.Current()
	assert.False(t, ok)
}

func TestSky_ClearedWhenPlacementLeavesCartographic(t *testing.T) {
	sky := New(nil)
	sky.OnGeoreferenceUpdated(georef.Snapshot{
		Placement: georef.PlacementCartographic,
		Origin:    geo.Geodetic{Latitude: 40},
		Radii:     geo.WGS84.Radii(),
	})
	_, ok := sky.Current()
	require.True(t, ok)

	sky.OnGeoreferenceUpdated(georef.Snapshot{
		Placement: georef.PlacementBoundingVolume,
		Origin:    geo.Geodetic{Latitude: 40},
		Radii:     geo.WGS84.Radii(),
	})
	_, ok = sky.Current()
	assert.False(t, ok)
	_, ok = sky.Refresh(geo.WGS84)
	assert.False(t, ok, "no refresh without a cartographic origin")
}
