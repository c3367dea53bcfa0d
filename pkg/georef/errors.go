package georef

import "errors"

var (
	// ErrInvalidArgument is returned for out-of-range coordinates, frames or indices.
	// Nothing is mutated when it is returned.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrWrongPlacement is returned when an operation requires a different origin placement.
	ErrWrongPlacement = errors.New("operation not valid for current origin placement")
)
