// Package device drives the pool's on/off equipment through the host
// automation platform.
//
// An Actuator wraps one entity reference ("domain.object_id"), such as
// switch.pool_pump. TurnOn and TurnOff read the entity's current state and
// skip the call when it already matches, unless forced. Otherwise they
// invoke <domain>.turn_on or <domain>.turn_off on the Host with a bounded
// retry and, optionally, poll until the entity reports the target state.
//
// Failures map onto the sentinel errors in errors.go:
//
//	ErrNotConfigured      no entity bound to the role; callers skip quietly
//	ErrInvalidEntityID    reference is not domain.object_id
//	ErrEntityNotFound     host has no state for the entity
//	ErrServiceCall        every attempt failed
//	ErrStateVerification  entity never reported the target state
//
// The last three also raise a user notification when a Notifier is set.
package device
