package propagation

import (
	"errors"
	"fmt"
)

var (
	// ErrModelMismatch is returned when a near-earth model is requested for
	// a deep-space body or the other way around. The check runs when the
	// propagator is built, before any state is computed.
	ErrModelMismatch = errors.New("propagation: model does not match orbit class")

	// ErrUnknownModel is returned by ParseModel for an unrecognized name.
	ErrUnknownModel = errors.New("propagation: unknown model")
)

// EccentricityError reports a numeric domain failure: the perturbed
// eccentricity left [0, 1) at the requested offset, so no osculating orbit
// exists there. The propagator itself stays usable; calling it again with
// the same element set and time yields the same error.
type EccentricityError struct {
	Model  Model
	Tsince float64 // minutes from epoch
	Ecc    float64
}

func (e *EccentricityError) Error() string {
	return fmt.Sprintf("propagation: %s eccentricity %g out of range at tsince=%.3f min", e.Model, e.Ecc, e.Tsince)
}

// errorKind maps a propagation error to a stable metrics label.
func errorKind(err error) string {
	var eccErr *EccentricityError
	if errors.As(err, &eccErr) {
		return "eccentricity"
	}
	return "other"
}
