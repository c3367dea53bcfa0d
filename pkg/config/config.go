package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the daemon configuration.
type Config struct {
	Log          LogConfig          `yaml:"log"`
	DB           DBConfig           `yaml:"db"`
	Server       ServerConfig       `yaml:"server"`
	Ticker       TickerConfig       `yaml:"ticker"`
	Ellipsoid    EllipsoidConfig    `yaml:"ellipsoid"`
	Engine       EngineConfig       `yaml:"engine"`
	Georeference GeoreferenceConfig `yaml:"georeference"`
	SubLevels    []SubLevelConfig   `yaml:"sublevels"`
	Viewer       ViewerConfig       `yaml:"viewer"`
	SunSky       SunSkyConfig       `yaml:"sunsky"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
	Events   LogSettings `yaml:"events"`
	Trace    bool        `yaml:"trace"` // per-frame debug output
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// TickerConfig holds frame loop settings.
type TickerConfig struct {
	FrameLoop        Duration `yaml:"frame_loop"`
	SnapshotInterval Duration `yaml:"snapshot_interval"`
}

// EllipsoidConfig holds the reference ellipsoid radii in meters.
type EllipsoidConfig struct {
	RadiusX float64 `yaml:"radius_x"`
	RadiusY float64 `yaml:"radius_y"`
	RadiusZ float64 `yaml:"radius_z"`
}

// EngineConfig describes the engine's local frame.
type EngineConfig struct {
	UnitsPerMeter float64 `yaml:"units_per_meter"`
	LeftHanded    bool    `yaml:"left_handed"`
}

// GeoreferenceConfig holds the origin and rebasing settings.
type GeoreferenceConfig struct {
	Placement             string   `yaml:"placement"` // "cartographic", "bounding_volume"
	Longitude             float64  `yaml:"longitude"`
	Latitude              float64  `yaml:"latitude"`
	Height                float64  `yaml:"height"`
	KeepOriginNearViewer  bool     `yaml:"keep_origin_near_viewer"`
	MaxOriginDistance     Distance `yaml:"max_origin_distance"`
	RebaseInsideSubLevels bool     `yaml:"rebase_inside_sublevels"`
}

// DefaultLoadRadius applies to sub-levels that omit load_radius.
const DefaultLoadRadius = Distance(1000)

// SubLevelConfig declares one sub-level.
type SubLevelConfig struct {
	ID         string   `yaml:"id"`
	Longitude  float64  `yaml:"longitude"`
	Latitude   float64  `yaml:"latitude"`
	Height     float64  `yaml:"height"`
	LoadRadius Distance `yaml:"load_radius"`
}

// ViewerConfig selects the viewer source.
type ViewerConfig struct {
	Provider string           `yaml:"provider"` // "mock"
	Mock     MockViewerConfig `yaml:"mock"`
}

// MockViewerConfig holds the simulated flight.
type MockViewerConfig struct {
	StartLongitude float64          `yaml:"start_longitude"`
	StartLatitude  float64          `yaml:"start_latitude"`
	StartHeight    float64          `yaml:"start_height"`
	Heading        float64          `yaml:"heading"`
	Speed          float64          `yaml:"speed"` // m/s
	Route          []WaypointConfig `yaml:"route"`
}

// WaypointConfig is a point on the mock route.
type WaypointConfig struct {
	Longitude float64 `yaml:"longitude"`
	Latitude  float64 `yaml:"latitude"`
	Height    float64 `yaml:"height"`
}

// SunSkyConfig toggles sun position tracking.
type SunSkyConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
			Events: LogSettings{
				Path:  "./logs/events.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path: "./data/georef.db",
		},
		Server: ServerConfig{
			Address: "localhost:1921",
		},
		Ticker: TickerConfig{
			FrameLoop:        Duration(50 * time.Millisecond),
			SnapshotInterval: Duration(1 * time.Second),
		},
		Ellipsoid: EllipsoidConfig{
			RadiusX: 6378137.0,
			RadiusY: 6378137.0,
			RadiusZ: 6356752.3142451793,
		},
		Engine: EngineConfig{
			UnitsPerMeter: 100,
			LeftHanded:    true,
		},
		Georeference: GeoreferenceConfig{
			Placement:             PlacementCartographic,
			Longitude:             -105.25737,
			Latitude:              39.736401,
			Height:                2250,
			KeepOriginNearViewer:  true,
			MaxOriginDistance:     Distance(100),
			RebaseInsideSubLevels: false,
		},
		SubLevels: []SubLevelConfig{},
		Viewer: ViewerConfig{
			Provider: "mock",
			Mock: MockViewerConfig{
				StartLongitude: -105.25737,
				StartLatitude:  39.736401,
				StartHeight:    2500,
				Heading:        90,
				Speed:          250,
			},
		},
		SunSky: SunSkyConfig{
			Enabled: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// An existing file is merged over the defaults but never rewritten.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		for i := range cfg.SubLevels {
			if cfg.SubLevels[i].LoadRadius == 0 {
				cfg.SubLevels[i].LoadRadius = DefaultLoadRadius
			}
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	// Env overrides are applied in memory only
	if addr := os.Getenv("GEOREF_SERVER_ADDRESS"); addr != "" {
		cfg.Server.Address = addr
	}
	if p := os.Getenv("GEOREF_DB_PATH"); p != "" {
		cfg.DB.Path = p
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# georefd Configuration
# ---------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
#   Distance: cm, m (meters), km (kilometers), nm (nautical miles), ft
# Angles are degrees, heights are meters above the ellipsoid.

`)
	data = append(header, data...)

	rePlacement := regexp.MustCompile(`(?m)^(\s+)placement:`)
	data = rePlacement.ReplaceAll(data, []byte("${1}# Options: cartographic, bounding_volume\n${1}placement:"))

	reProvider := regexp.MustCompile(`(?m)^(\s+)provider:`)
	data = reProvider.ReplaceAll(data, []byte("${1}# Options: mock\n${1}provider:"))

	reDistance := regexp.MustCompile(`(?m)^(\s+)max_origin_distance:`)
	data = reDistance.ReplaceAll(data, []byte("${1}# Viewer distance from the floating origin that triggers a rebase\n${1}max_origin_distance:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
