package core

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"georefgo/pkg/viewer"
)

// Frame is what the jobs of one tick see. Relative and Absolute are derived
// when the tick starts; jobs that run after an origin change re-derive them
// from Telemetry through the engine.
type Frame struct {
	Now       time.Time        `json:"now"`
	Telemetry viewer.Telemetry `json:"telemetry"`
	Relative  mgl64.Vec3       `json:"relative"`
	Absolute  mgl64.Vec3       `json:"absolute"`
	Revision  uint64           `json:"revision"`
}

// TelemetrySink is an interface for consumers of the per-frame viewer stream.
type TelemetrySink interface {
	Update(f *Frame)
	UpdateState(s viewer.State)
}
