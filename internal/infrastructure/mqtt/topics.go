package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every topic the controller publishes or
// subscribes to.
const TopicPrefix = "poolcontrol"

// Topics provides builders for pool controller MQTT topics.
// Using these helpers keeps topic naming consistent between the
// controller, the platform adapter and external dashboards:
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.EntityState("switch.pool_pump")
//	// Returns: "poolcontrol/entity/switch.pool_pump/state"
type Topics struct{}

// EntityState returns the retained state topic for an external entity.
//
// Example: poolcontrol/entity/sensor.pool_water/state
func (Topics) EntityState(entityID string) string {
	return fmt.Sprintf("%s/entity/%s/state", TopicPrefix, entityID)
}

// EntityCommand returns the topic on which turn_on/turn_off commands are
// published for an actuator.
//
// Example: poolcontrol/entity/switch.pool_pump/command
func (Topics) EntityCommand(entityID string) string {
	return fmt.Sprintf("%s/entity/%s/command", TopicPrefix, entityID)
}

// EntitySet returns the topic for writing a numeric value to a display entity.
//
// Example: poolcontrol/entity/input_number.temperature_display/set
func (Topics) EntitySet(entityID string) string {
	return fmt.Sprintf("%s/entity/%s/set", TopicPrefix, entityID)
}

// Display returns the retained topic carrying a status display's text.
//
// Example: poolcontrol/display/backwash
func (Topics) Display(name string) string {
	return fmt.Sprintf("%s/display/%s", TopicPrefix, name)
}

// Button returns the topic on which a button press is received.
//
// Example: poolcontrol/button/booster
func (Topics) Button(name string) string {
	return fmt.Sprintf("%s/button/%s", TopicPrefix, name)
}

// Notification returns the topic for a user-facing notification.
//
// Example: poolcontrol/notification/3f2b...
func (Topics) Notification(id string) string {
	return fmt.Sprintf("%s/notification/%s", TopicPrefix, id)
}

// SystemStatus returns the controller's online/offline topic (also the LWT).
//
// Example: poolcontrol/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", TopicPrefix)
}

// AllEntityStates matches every entity state topic.
//
// Pattern: poolcontrol/entity/+/state
func (Topics) AllEntityStates() string {
	return fmt.Sprintf("%s/entity/+/state", TopicPrefix)
}

// AllButtons matches every button topic.
//
// Pattern: poolcontrol/button/+
func (Topics) AllButtons() string {
	return fmt.Sprintf("%s/button/+", TopicPrefix)
}

// EntityFromStateTopic extracts the entity id from a topic produced by
// EntityState. It reports false for any other topic.
func (Topics) EntityFromStateTopic(topic string) (string, bool) {
	return between(topic, TopicPrefix+"/entity/", "/state")
}

// ButtonFromTopic extracts the button name from a topic produced by Button.
func (Topics) ButtonFromTopic(topic string) (string, bool) {
	return between(topic, TopicPrefix+"/button/", "")
}

func between(topic, prefix, suffix string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, prefix)
	if !ok {
		return "", false
	}
	middle, ok := strings.CutSuffix(rest, suffix)
	if !ok || middle == "" || strings.Contains(middle, "/") {
		return "", false
	}
	return middle, true
}
