package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const testConfig = `sublevels:
  - id: airport
    longitude: -104.67
    latitude: 39.86
    height: 1650
    load_radius: 5km
  - id: city
    longitude: -104.99
    latitude: 39.74
    load_radius: 3000
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "georef.yaml")
	if err := os.WriteFile(path, []byte(testConfig), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun(t *testing.T) {
	cfgPath := writeConfig(t)
	outPath := filepath.Join(t.TempDir(), "radii.geojson")

	tests := []struct {
		name    string
		args    []string
		wantErr bool
		read    func(t *testing.T, stdout string) []byte
	}{
		{
			name: "stdout",
			args: []string{"-config", cfgPath, "-segments", "12"},
			read: func(t *testing.T, stdout string) []byte { return []byte(stdout) },
		},
		{
			name: "file",
			args: []string{"-config", cfgPath, "-segments", "12", "-o", outPath},
			read: func(t *testing.T, stdout string) []byte {
				if !strings.Contains(stdout, "Wrote 2 sub-levels") {
					t.Errorf("unexpected stdout %q", stdout)
				}
				data, err := os.ReadFile(outPath)
				if err != nil {
					t.Fatal(err)
				}
				return data
			},
		},
		{name: "missing config", args: []string{"-config", filepath.Join(t.TempDir(), "none.yaml")}, wantErr: true},
		{name: "too few segments", args: []string{"-config", cfgPath, "-segments", "2"}, wantErr: true},
		{name: "unknown flag", args: []string{"-bogus"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout bytes.Buffer
			err := run(tt.args, &stdout)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("run() error = %v", err)
			}

			fc, err := geojson.UnmarshalFeatureCollection(tt.read(t, stdout.String()))
			if err != nil {
				t.Fatalf("invalid GeoJSON: %v", err)
			}
			if len(fc.Features) != 4 {
				t.Fatalf("expected 4 features, got %d", len(fc.Features))
			}
			poly, ok := fc.Features[0].Geometry.(orb.Polygon)
			if !ok {
				t.Fatalf("expected polygon, got %T", fc.Features[0].Geometry)
			}
			if len(poly[0]) != 13 {
				t.Errorf("expected closed ring of 13 points, got %d", len(poly[0]))
			}
			if fc.Features[0].Properties["active"] != false {
				t.Errorf("no level should be active, got %v", fc.Features[0].Properties["active"])
			}
		})
	}
}
