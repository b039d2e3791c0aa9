package device

import "errors"

// Domain errors for the device package.
//
//	if errors.Is(err, device.ErrNotConfigured) {
//	    // role has no entity bound
//	}
var (
	// ErrNotConfigured is returned when the actuator has no entity reference.
	ErrNotConfigured = errors.New("device: not configured")

	// ErrEntityNotFound is returned when the host has no state for the entity.
	ErrEntityNotFound = errors.New("device: entity not found")

	// ErrInvalidEntityID is returned for a reference that is not domain.object_id.
	ErrInvalidEntityID = errors.New("device: invalid entity id")

	// ErrServiceCall is returned when the action failed after all retries.
	ErrServiceCall = errors.New("device: service call failed")

	// ErrStateVerification is returned when the entity did not reach the
	// requested state in time.
	ErrStateVerification = errors.New("device: state verification failed")
)

// permanent reports errors that retrying cannot fix.
func permanent(err error) bool {
	return errors.Is(err, ErrNotConfigured) ||
		errors.Is(err, ErrInvalidEntityID) ||
		errors.Is(err, ErrEntityNotFound)
}
