package georef

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	minUnitsPerMeter = 1e-3
	maxUnitsPerMeter = 1e6
)

// EngineFrame describes the engine's axis convention relative to the
// georeferenced East-North-Up frame. X is east and Z is up; Y is south when
// LeftHanded is set and north otherwise.
type EngineFrame struct {
	UnitsPerMeter float64 `json:"units_per_meter"`
	LeftHanded    bool    `json:"left_handed"`
}

// DefaultEngineFrame is a left-handed frame measured in centimeters.
func DefaultEngineFrame() EngineFrame {
	return EngineFrame{UnitsPerMeter: 100, LeftHanded: true}
}

// Validate checks the scale is usable for an invertible transform.
func (f EngineFrame) Validate() error {
	if math.IsNaN(f.UnitsPerMeter) || f.UnitsPerMeter < minUnitsPerMeter || f.UnitsPerMeter > maxUnitsPerMeter {
		return fmt.Errorf("%w: units per meter %v outside [%v, %v]", ErrInvalidArgument, f.UnitsPerMeter, minUnitsPerMeter, maxUnitsPerMeter)
	}
	return nil
}

// ToMeters converts an engine length to meters.
func (f EngineFrame) ToMeters(units float64) float64 {
	return units / f.UnitsPerMeter
}

// FromMeters converts meters to engine units.
func (f EngineFrame) FromMeters(meters float64) float64 {
	return meters * f.UnitsPerMeter
}

// EngineToGeoreferenced maps engine units onto georeferenced meters.
func (f EngineFrame) EngineToGeoreferenced() mgl64.Mat4 {
	s := 1 / f.UnitsPerMeter
	return mgl64.Scale3D(s, f.ySign()*s, s)
}

// handedness is the unit-scale axis flip between the two conventions.
func (f EngineFrame) handedness() mgl64.Mat3 {
	return mgl64.Diag3(mgl64.Vec3{1, f.ySign(), 1})
}

func (f EngineFrame) ySign() float64 {
	if f.LeftHanded {
		return -1
	}
	return 1
}
