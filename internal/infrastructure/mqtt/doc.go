// Package mqtt connects the pool controller to its MQTT broker.
//
// The broker is the controller's only link to the devices it drives:
// entity states arrive as retained messages, actuator commands and status
// displays go out, and button presses come in. Topic layout is built by
// Topics under the "poolcontrol" prefix.
//
// The client publishes a retained online status on connect, registers an
// offline Last Will, reconnects automatically and restores subscriptions.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllEntityStates(), 1, handler)
package mqtt
