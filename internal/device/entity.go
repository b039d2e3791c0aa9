package device

import (
	"fmt"
	"strings"
)

// Binary entity states.
const (
	StateOn  = "on"
	StateOff = "off"
)

// Action services.
const (
	ServiceTurnOn  = "turn_on"
	ServiceTurnOff = "turn_off"
)

// ParseDomain validates entityID and returns its domain part.
//
//	domain, err := device.ParseDomain("switch.pool_pump") // "switch"
func ParseDomain(entityID string) (string, error) {
	domain, objectID, ok := strings.Cut(entityID, ".")
	if !ok || domain == "" || objectID == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidEntityID, entityID)
	}
	return domain, nil
}
