package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "georef.yaml")

	tests := []struct {
		name          string
		setup         func()
		validate      func(*testing.T, *Config)
		checkFile     func(*testing.T)
		expectedError bool
	}{
		{
			name:  "NewFile_Defaults",
			setup: func() {},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Georeference.Placement != PlacementCartographic {
					t.Errorf("expected placement cartographic, got '%s'", cfg.Georeference.Placement)
				}
				if cfg.Georeference.MaxOriginDistance != 100 {
					t.Errorf("expected max origin distance 100m, got %v", cfg.Georeference.MaxOriginDistance)
				}
				if cfg.Engine.UnitsPerMeter != 100 || !cfg.Engine.LeftHanded {
					t.Errorf("unexpected engine defaults %+v", cfg.Engine)
				}
			},
			checkFile: func(t *testing.T) {
				content, err := os.ReadFile(configPath)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				if !strings.Contains(string(content), "placement: cartographic") {
					t.Error("config file missing default values")
				}
				if !strings.Contains(string(content), "# Options: cartographic, bounding_volume") {
					t.Error("config file missing placement comment")
				}
			},
		},
		{
			name: "ExistingFile_Override",
			setup: func() {
				data := `georeference:
  placement: bounding_volume
  max_origin_distance: 2km
sublevels:
  - id: airport
    longitude: -104.67
    latitude: 39.86
    height: 1650
    load_radius: 5km
`
				if err := os.WriteFile(configPath, []byte(data), 0o644); err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Georeference.Placement != PlacementBoundingVolume {
					t.Errorf("expected bounding_volume, got '%s'", cfg.Georeference.Placement)
				}
				if cfg.Georeference.MaxOriginDistance != 2000 {
					t.Errorf("expected 2000m, got %v", cfg.Georeference.MaxOriginDistance)
				}
				if len(cfg.SubLevels) != 1 || cfg.SubLevels[0].LoadRadius != 5000 {
					t.Errorf("unexpected sublevels %+v", cfg.SubLevels)
				}
				if cfg.Georeference.Longitude != -105.25737 {
					t.Errorf("expected default longitude to survive merge, got %v", cfg.Georeference.Longitude)
				}
			},
			checkFile: func(t *testing.T) {
				content, err := os.ReadFile(configPath)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				if strings.Contains(string(content), "# georefd Configuration") {
					t.Error("existing file should not be rewritten")
				}
			},
		},
		{
			name: "SubLevel_DefaultRadius",
			setup: func() {
				data := "sublevels:\n  - id: a\n    longitude: -105\n    latitude: 39\n    height: 0\n  - id: b\n    load_radius: 250m\n"
				if err := os.WriteFile(configPath, []byte(data), 0o644); err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			validate: func(t *testing.T, cfg *Config) {
				if len(cfg.SubLevels) != 2 {
					t.Fatalf("expected 2 sublevels, got %d", len(cfg.SubLevels))
				}
				if cfg.SubLevels[0].LoadRadius != DefaultLoadRadius {
					t.Errorf("expected default radius, got %v", cfg.SubLevels[0].LoadRadius)
				}
				if cfg.SubLevels[1].LoadRadius != 250 {
					t.Errorf("expected explicit radius to survive, got %v", cfg.SubLevels[1].LoadRadius)
				}
			},
		},
		{
			name: "Env_Override",
			setup: func() {
				t.Setenv("GEOREF_SERVER_ADDRESS", "0.0.0.0:9000")
				if err := os.WriteFile(configPath, []byte("server:\n  address: localhost:1\n"), 0o644); err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Server.Address != "0.0.0.0:9000" {
					t.Errorf("expected env address, got %s", cfg.Server.Address)
				}
			},
		},
		{
			name: "Invalid_Rejected",
			setup: func() {
				if err := os.WriteFile(configPath, []byte("georeference:\n  latitude: 123\n"), 0o644); err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			expectedError: true,
		},
		{
			name: "Malformed_YAML",
			setup: func() {
				if err := os.WriteFile(configPath, []byte("georeference: [\n"), 0o644); err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_ = os.Remove(configPath)
			tt.setup()

			cfg, err := Load(configPath)
			if tt.expectedError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
			if tt.checkFile != nil {
				tt.checkFile(t)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero radius", func(c *Config) { c.Ellipsoid.RadiusZ = 0 }, true},
		{"tiny units", func(c *Config) { c.Engine.UnitsPerMeter = 1e-4 }, true},
		{"unknown placement", func(c *Config) { c.Georeference.Placement = "here" }, true},
		{"longitude", func(c *Config) { c.Georeference.Longitude = 190 }, true},
		{"zero rebase distance", func(c *Config) { c.Georeference.MaxOriginDistance = 0 }, true},
		{"zero frame loop", func(c *Config) { c.Ticker.FrameLoop = 0 }, true},
		{"unknown viewer", func(c *Config) { c.Viewer.Provider = "simconnect" }, true},
		{"bad waypoint", func(c *Config) {
			c.Viewer.Mock.Route = []WaypointConfig{{Latitude: -91}}
		}, true},
		{"valid sublevels", func(c *Config) {
			c.SubLevels = []SubLevelConfig{
				{ID: "a", LoadRadius: 1000},
				{ID: "b", Longitude: 10, LoadRadius: 500},
			}
		}, false},
		{"duplicate sublevel", func(c *Config) {
			c.SubLevels = []SubLevelConfig{{ID: "a", LoadRadius: 1}, {ID: "a", LoadRadius: 1}}
		}, true},
		{"empty sublevel id", func(c *Config) {
			c.SubLevels = []SubLevelConfig{{LoadRadius: 1}}
		}, true},
		{"zero load radius", func(c *Config) {
			c.SubLevels = []SubLevelConfig{{ID: "a"}}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestGenerateDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "georef.yaml")

	if err := GenerateDefault(path); err != nil {
		t.Fatalf("GenerateDefault() error = %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() of generated file failed: %v", err)
	}
	if time.Duration(cfg.Ticker.FrameLoop) != 50*time.Millisecond {
		t.Errorf("expected 50ms frame loop, got %v", time.Duration(cfg.Ticker.FrameLoop))
	}

	// second call leaves the file alone
	if err := os.WriteFile(path, []byte("server:\n  address: keep:1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := GenerateDefault(path); err != nil {
		t.Fatalf("GenerateDefault() error = %v", err)
	}
	content, _ := os.ReadFile(path)
	if !strings.Contains(string(content), "keep:1") {
		t.Error("existing file was overwritten")
	}
}
