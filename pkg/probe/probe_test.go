package probe

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"testing"

	"georefgo/pkg/db"
	"georefgo/pkg/geo"
)

func TestRun(t *testing.T) {
	probes := []Probe{
		{
			Name: "Database",
			Check: func(ctx context.Context) error {
				return nil
			},
			Critical: true,
		},
		{
			Name: "Logs Directory",
			Check: func(ctx context.Context) error {
				return errors.New("minor issue")
			},
			Critical: false,
		},
	}

	results := Run(context.Background(), probes)

	if len(results) != 2 {
		t.Errorf("Expected 2 results, got %d", len(results))
	}

	if results[0].Error != nil {
		t.Errorf("Expected success probe to pass, got error: %v", results[0].Error)
	}

	if results[1].Error == nil {
		t.Error("Expected failure probe to fail, got nil")
	}
}

func TestAnalyzeResults(t *testing.T) {
	tests := []struct {
		name    string
		results []Result
		wantErr bool
	}{
		{
			name: "All Pass",
			results: []Result{
				{Probe: Probe{Name: "P1", Critical: true}, Error: nil},
			},
			wantErr: false,
		},
		{
			name: "Critical Failure",
			results: []Result{
				{Probe: Probe{Name: "P1", Critical: true}, Error: errors.New("fail")},
			},
			wantErr: true,
		},
		{
			name: "Non-Critical Failure",
			results: []Result{
				{Probe: Probe{Name: "P1", Critical: false}, Error: errors.New("fail")},
			},
			wantErr: false,
		},
		{
			name: "Mixed Failure",
			results: []Result{
				{Probe: Probe{Name: "P1", Critical: false}, Error: errors.New("fail")},
				{Probe: Probe{Name: "P2", Critical: true}, Error: errors.New("fail")},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AnalyzeResults(tt.results)
			if (err != nil) != tt.wantErr {
				t.Errorf("AnalyzeResults() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProbes(t *testing.T) {
	d, err := db.Init(filepath.Join(t.TempDir(), "probe.db"))
	if err != nil {
		t.Fatalf("db.Init() error = %v", err)
	}
	defer d.Close()

	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer busy.Close()

	flat, err := geo.NewEllipsoid(6378137, 6378137, 6356752.3142451793)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		probe    Probe
		wantErr  bool
		critical bool
	}{
		{"database", Database(d), false, true},
		{"free address", ListenAddress("127.0.0.1:0"), false, true},
		{"busy address", ListenAddress(busy.Addr().String()), true, true},
		{"ellipsoid", Ellipsoid(flat, geo.Geodetic{Longitude: -105.25737, Latitude: 39.736401, Height: 2250}), false, true},
		{"pole", Ellipsoid(geo.WGS84, geo.Geodetic{Latitude: 90, Height: 10}), false, true},
		{"writable", Writable("Logs", filepath.Join(t.TempDir(), "logs")), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Run(context.Background(), []Probe{tt.probe})
			if (res[0].Error != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", res[0].Error, tt.wantErr)
			}
			if tt.probe.Critical != tt.critical {
				t.Errorf("critical = %v, want %v", tt.probe.Critical, tt.critical)
			}
		})
	}
}

func TestDatabase_Closed(t *testing.T) {
	d, err := db.Init(filepath.Join(t.TempDir(), "probe.db"))
	if err != nil {
		t.Fatalf("db.Init() error = %v", err)
	}
	d.Close()

	if err := Database(d).Check(context.Background()); err == nil {
		t.Error("expected closed database to fail")
	}
}
