// Package pferrors defines the error kinds surfaced by the particle-filter
// engine. Every operation that can fail wraps one of these sentinels with
// fmt.Errorf("%w") so callers can discriminate on the kind with errors.Is.
package pferrors

import "errors"

var (
	// ErrShapeMismatch is returned by matrix operations on incompatible
	// dimensions, or by a vector copy into a wrong-shape target.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrIndexOutOfRange is returned when a 1-based index falls outside
	// [1, W] or [1, H].
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrTypeMismatch is returned when a typed accessor is used against a
	// matrix of a different element type.
	ErrTypeMismatch = errors.New("element type mismatch")

	// ErrDegenerateWeights is returned when all importance weights are
	// zero or non-finite after normalization.
	ErrDegenerateWeights = errors.New("degenerate weights")

	// ErrSlotBusy is returned when a caller tries to occupy an already
	// occupied RNG slot.
	ErrSlotBusy = errors.New("rng slot busy")

	// ErrSlotUnavailable is returned when a caller references a slot
	// index outside the bank's range.
	ErrSlotUnavailable = errors.New("rng slot unavailable")

	// ErrNotInitialized is returned when a filter method is invoked
	// before Initialize.
	ErrNotInitialized = errors.New("filter not initialized")

	// ErrParameterOutOfDomain is returned for e.g. negative variance,
	// non-increasing time grids, or non-monotone histogram domains.
	ErrParameterOutOfDomain = errors.New("parameter out of domain")
)
