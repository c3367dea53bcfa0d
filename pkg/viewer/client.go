// Package viewer provides the viewer (camera/pawn) source that drives the
// frame loop.
package viewer

import (
	"context"
	"errors"

	"github.com/go-gl/mathgl/mgl64"

	"georefgo/pkg/geo"
)

var (
	// ErrNotConnected is returned when a client action requires a connection.
	ErrNotConnected = errors.New("viewer not connected")
)

// State represents the activity state of the viewer source.
type State string

const (
	// StateDisconnected indicates no viewer source is available.
	StateDisconnected State = "disconnected"
	// StateInactive indicates the source exists but is paused.
	StateInactive State = "inactive"
	// StateActive indicates the viewer is moving and should be tracked.
	StateActive State = "active"
)

// Client defines the interface for viewer interaction.
type Client interface {
	// GetTelemetry returns the current true position of the viewer.
	GetTelemetry(ctx context.Context) (Telemetry, error)
	// GetState returns the current activity state.
	GetState() State
	// Close cleans up resources associated with the client.
	Close() error
}

// Telemetry is a snapshot of the viewer's true position.
type Telemetry struct {
	Position      geo.Geodetic `json:"position"`
	Ecef          mgl64.Vec3   `json:"ecef"`
	Heading       float64      `json:"heading"`        // Degrees true (ground track)
	GroundSpeed   float64      `json:"ground_speed"`   // m/s
	VerticalSpeed float64      `json:"vertical_speed"` // m/s
	Waypoint      int          `json:"waypoint"`       // index of the next route point, -1 without a route
}

// Frame converts true positions into the engine's floating frame.
// *georef.Georeference satisfies it.
type Frame interface {
	EcefToEngine(p mgl64.Vec3) mgl64.Vec3
	EcefToEngineAbsolute(p mgl64.Vec3) mgl64.Vec3
}

// Relative returns the viewer position relative to the floating origin.
func Relative(f Frame, t *Telemetry) mgl64.Vec3 {
	return f.EcefToEngine(t.Ecef)
}

// Absolute returns the viewer position in engine-absolute coordinates.
func Absolute(f Frame, t *Telemetry) mgl64.Vec3 {
	return f.EcefToEngineAbsolute(t.Ecef)
}
